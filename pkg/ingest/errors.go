package ingest

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAggregatorNil  = errors.New("aggregator is nil")
	ErrUnknownFormat  = errors.New("unknown input format")
	ErrMissingPath    = errors.New("missing path")
	ErrMalformedCount = errors.New("count must be a positive integer")
	ErrMalformedLine  = errors.New(`expected "<count> <frame;frame;...>"`)
)

// ParseError reports the input line that aborted ingestion.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
