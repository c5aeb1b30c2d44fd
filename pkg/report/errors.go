package report

import (
	"fmt"
)

// NotFoundError is returned when a queried path was never observed.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such sequence: %q", e.Path)
}
