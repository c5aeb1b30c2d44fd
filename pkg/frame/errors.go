package frame

import (
	"fmt"
)

// MalformedRecordError is returned when a raw stack record does not have the
// "address name module" shape.
type MalformedRecordError struct {
	Record string
	Fields int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed stack record %q: expected %d fields, got %d", e.Record, recordFields, e.Fields)
}
