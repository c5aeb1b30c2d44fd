package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/maxgio92/xstack/pkg/report"
)

var (
	ErrUnknownRoute  = errors.New("invalid request")
	ErrUnknownFormat = errors.New("unknown response format")
	ErrNilAggregator = errors.New("aggregator is nil")
)

// StatusCode maps a query error to the HTTP status of its response.
func StatusCode(err error) int {
	var notFound *report.NotFoundError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &notFound), errors.Is(err, ErrUnknownRoute):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
