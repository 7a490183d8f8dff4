package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"
)

// DefaultWriteTimeout bounds responses when no batch-aware timeout is given.
const DefaultWriteTimeout = 30 * time.Second

// Server wraps the http.Server with sensible defaults.
type Server struct {
	inner  *http.Server
	cancel context.CancelFunc
}

// New constructs a server listening on addr. writeTimeout must cover the
// slowest handler; batch triage holds its response open for the whole run.
func New(addr string, handler http.Handler, writeTimeout time.Duration) *Server {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		inner: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       2 * time.Minute,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
		cancel: cancel,
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// WriteTimeout reports the effective response deadline.
func (s *Server) WriteTimeout() time.Duration {
	return s.inner.WriteTimeout
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown cancels request contexts, then gracefully terminates the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.inner.Shutdown(ctx)
}
