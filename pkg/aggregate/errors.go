package aggregate

import (
	"github.com/pkg/errors"
)

var (
	ErrEmptyInput   = errors.New("no samples ingested")
	ErrEmptyTrace   = errors.New("trace is empty")
	ErrZeroWeight   = errors.New("sample weight must be at least 1")
	ErrFinalized    = errors.New("aggregator is finalized")
	ErrNotFinalized = errors.New("aggregator is not finalized")
)
