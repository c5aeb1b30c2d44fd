package frame

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Frame is the normalized identity of one stack level.
type Frame = string

const (
	recordFields = 3
	offsetSep    = "+"
)

type Normalizer struct {
	demangle bool
}

type Option func(n *Normalizer)

func NewNormalizer(opts ...Option) *Normalizer {
	n := new(Normalizer)
	for _, f := range opts {
		f(n)
	}

	return n
}

// WithDemangle makes the normalizer demangle C++ and Rust symbol names
// after the offset suffix has been stripped.
func WithDemangle(enabled bool) Option {
	return func(n *Normalizer) {
		n.demangle = enabled
	}
}

// Normalize extracts the frame identity from a raw captured record of the
// form "address name+offset module".
func (n *Normalizer) Normalize(record string) (Frame, error) {
	fields := strings.Fields(record)
	if len(fields) != recordFields {
		return "", &MalformedRecordError{Record: record, Fields: len(fields)}
	}

	return n.Symbol(StripOffset(fields[1])), nil
}

// Symbol returns the frame identity of an already symbolized function name,
// such as the ones found in pprof profiles. The name is only demangled.
func (n *Normalizer) Symbol(name string) Frame {
	if n.demangle {
		return demangle.Filter(name, demangle.NoParams)
	}

	return name
}

// Normalize is a shortcut for a default Normalizer.
func Normalize(record string) (Frame, error) {
	return defaultNormalizer.Normalize(record)
}

// StripOffset truncates a symbol name at its first '+'.
func StripOffset(name string) Frame {
	if i := strings.Index(name, offsetSep); i >= 0 {
		return name[:i]
	}

	return name
}

var defaultNormalizer = NewNormalizer()
