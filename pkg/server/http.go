package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/rs/zerolog"
)

const (
	readHeaderTimeout = 10 * time.Second
	unmatchedRoute    = "unmatched"
)

// NewRouter mounts h on the view routes. When gatherer is not nil its
// metrics are exposed on /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	for _, route := range []string{"/", "/overall", "/self", "/seqs", seqPrefix + "*"} {
		r.Get(route, h.ServeHTTP)
	}
	r.NotFound(h.ServeHTTP)

	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Serve(r.URL.RequestURI())
	if err != nil {
		h.logger.Debug().Err(err).Str("route", r.URL.Path).Msg("query failed")
	}

	header := w.Header()
	header.Set("Content-Type", resp.ContentType)
	header.Set("Cache-Control", "no-cache")
	if resp.ETag != "" {
		header.Set("ETag", resp.ETag)
		if r.Header.Get("If-None-Match") == resp.ETag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write response")
	}
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		h.metrics.observe(route, ww.Status(), elapsed)

		h.logger.Debug().
			Str("method", r.Method).
			Str("route", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", elapsed).
			Msg("request served")
	})
}

// Server is the HTTP listener of the views.
type Server struct {
	srv    *http.Server
	logger log.Logger
}

func NewServer(addr string, handler http.Handler, logger log.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger.With().Str("component", "server").Logger(),
	}
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", s.srv.Addr)
	}

	return ln, nil
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Msgf("serving on http://%s", ln.Addr())

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to serve")
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug().Msg("shutting down")
	return s.srv.Shutdown(ctx)
}
