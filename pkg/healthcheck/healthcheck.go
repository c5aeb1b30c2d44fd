// Package healthcheck tells other processes, over a Unix domain socket,
// where the served aggregation can be queried once it is finalized.
package healthcheck

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	log "github.com/rs/zerolog"
)

const writeTimeout = 5 * time.Second

// Status is the answer of a ready server to every connection.
type Status struct {
	// Addr is the bound address of the HTTP views.
	Addr    string `json:"addr"`
	Samples uint64 `json:"samples"`
	Paths   int    `json:"paths"`
}

func (s Status) URL() string {
	return "http://" + s.Addr + "/"
}

// Server holds every connection until NotifyReady is called, then answers
// it with the JSON encoded Status.
type Server struct {
	ln         net.Listener
	socketPath string

	ready  chan struct{}
	once   sync.Once
	status Status

	logger log.Logger
}

func NewServer(socketPath string, logger log.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		ready:      make(chan struct{}),
		logger:     logger.With().Str("component", "healthcheck").Logger(),
	}
}

func (s *Server) SocketPath() string {
	return s.socketPath
}

// Listen binds the socket, replacing a stale one, and accepts connections
// until ctx is done or Close is called.
func (s *Server) Listen(ctx context.Context) error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "failed to listen on UDS")
	}
	s.ln = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go s.accept(ctx)

	return nil
}

// NotifyReady publishes status. Only the first call has effect.
func (s *Server) NotifyReady(status Status) {
	s.once.Do(func() {
		s.status = status
		close(s.ready)
		s.logger.Debug().Str("addr", status.Addr).Msg("ready")
	})
}

// Status returns the published status, if any.
func (s *Server) Status() (Status, bool) {
	select {
	case <-s.ready:
		return s.status, true
	default:
		return Status{}, false
	}
}

// Close stops accepting connections and removes the socket.
func (s *Server) Close() error {
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug().Err(err).Msg("error closing listener")
		}
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove socket")
	}

	return nil
}

func (s *Server) accept(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("accept error")
			continue
		}

		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	select {
	case <-s.ready:
	case <-ctx.Done():
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := json.NewEncoder(conn).Encode(s.status); err != nil {
		// The client gave up waiting.
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
			return
		}
		s.logger.Debug().Err(err).Msg("failed to write status")
	}
}
