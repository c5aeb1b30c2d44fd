// Package server exposes the report views of a finalized Aggregator over
// an HTTP-shaped route surface.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/elastic/go-freelru"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xstack/internal/utils"
	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/report"
)

const (
	DefaultCacheSize = 256

	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	formatHTML = "html"
	formatJSON = "json"

	seqPrefix = "/seq/"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Response is a rendered view. ETag identifies Body.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	ETag        string
}

type Handler struct {
	agg       *aggregate.Aggregator
	cacheSize uint32
	cache     *lru.SyncedLRU[string, *Response]
	reg       prometheus.Registerer
	metrics   *metrics
	logger    log.Logger
}

type Option func(*Handler)

func WithCacheSize(size uint32) Option {
	return func(h *Handler) {
		h.cacheSize = size
	}
}

func WithLogger(logger log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRegisterer registers the request and cache metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(h *Handler) {
		h.reg = reg
	}
}

// NewHandler returns a Handler over agg, which must be finalized: from
// then on the Handler only reads it. A zero cache size disables caching.
func NewHandler(agg *aggregate.Aggregator, opts ...Option) (*Handler, error) {
	if agg == nil {
		return nil, ErrNilAggregator
	}
	if !agg.Finalized() {
		return nil, aggregate.ErrNotFinalized
	}

	h := &Handler{
		agg:       agg,
		cacheSize: DefaultCacheSize,
		logger:    log.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("component", "server").Logger()
	h.metrics = newMetrics(h.reg)

	if h.cacheSize > 0 {
		cache, err := lru.NewSynced[string, *Response](h.cacheSize, utils.Hash32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create response cache")
		}
		h.cache = cache
	}

	return h, nil
}

// Serve answers route, a request URI such as "/seq/main;parse?format=json".
// A failed query still yields a Response, the error page of the request,
// together with the error.
func (h *Handler) Serve(route string) (*Response, error) {
	if h.cache != nil {
		if resp, ok := h.cache.Get(route); ok {
			h.metrics.cacheHit()
			return resp, nil
		}
		h.metrics.cacheMiss()
	}

	format := formatHTML
	resp, err := func() (*Response, error) {
		u, err := url.Parse(route)
		if err != nil {
			return nil, errors.Wrap(ErrUnknownRoute, err.Error())
		}

		if f := u.Query().Get("format"); f != "" {
			format = f
		}
		if format != formatHTML && format != formatJSON {
			return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
		}

		name, view, err := h.view(u.Path)
		if err != nil {
			return nil, err
		}

		return render(format, name, view)
	}()
	if err != nil {
		if format != formatJSON {
			format = formatHTML
		}
		return errorResponse(format, err), err
	}

	if h.cache != nil {
		h.cache.Add(route, resp)
	}

	return resp, nil
}

// view resolves a route path to its template name and data.
func (h *Handler) view(path string) (string, any, error) {
	switch path {
	case "/":
		return "overview", report.NewOverview(h.agg), nil
	case "/overall":
		return "ranking", ranking{Title: "Frames by overall time", Entries: report.Overall(h.agg)}, nil
	case "/self":
		return "ranking", ranking{Title: "Frames by self time", Entries: report.Self(h.agg)}, nil
	case "/seqs":
		return "ranking", ranking{Title: "Full Sequences", Entries: report.Sequences(h.agg)}, nil
	}

	if s, ok := strings.CutPrefix(path, seqPrefix); ok {
		detail, err := report.Detail(h.agg, aggregate.ParsePath(s))
		if err != nil {
			return "", nil, err
		}
		return "seq", detail, nil
	}

	return "", nil, errors.Wrapf(ErrUnknownRoute, "%q", path)
}

type ranking struct {
	Title   string         `json:"title"`
	Entries []report.Entry `json:"entries"`
}

type errorPage struct {
	Status  int    `json:"status"`
	Message string `json:"error"`
}

func render(format, name string, view any) (*Response, error) {
	var buf bytes.Buffer
	contentType := contentTypeHTML

	switch format {
	case formatJSON:
		contentType = contentTypeJSON
		if err := json.NewEncoder(&buf).Encode(view); err != nil {
			return nil, errors.Wrap(err, "failed to encode view")
		}
	default:
		if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
			return nil, errors.Wrapf(err, "failed to render %s", name)
		}
	}

	return &Response{
		Status:      http.StatusOK,
		ContentType: contentType,
		Body:        buf.Bytes(),
		ETag:        utils.ETag(buf.Bytes()),
	}, nil
}

func errorResponse(format string, err error) *Response {
	status := StatusCode(err)
	message := http.StatusText(status)
	var notFound *report.NotFoundError
	if errors.As(err, &notFound) {
		message = "No such sequence."
	}

	resp, rerr := render(format, "error", errorPage{Status: status, Message: message})
	if rerr != nil {
		return &Response{
			Status:      status,
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(message),
		}
	}
	resp.Status = status
	resp.ETag = ""

	return resp
}
