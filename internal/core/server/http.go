package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/solatis/thomson/internal/core/config"
)

// HTTPServer manages the HTTP JSON API and metrics listener.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	config   *config.ServeConfig
}

// NewHTTPServer wraps handler with the configured timeouts. Every request
// gets the request timeout as its context deadline.
func NewHTTPServer(cfg *config.ServeConfig, handler http.Handler) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	if cfg.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, cfg.RequestTimeout, `{"error":"request timeout"}`)
	}

	return &HTTPServer{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.RequestTimeout,
			IdleTimeout:       2 * time.Minute,
		},
		config: cfg,
	}, nil
}

// Listen binds the configured address. Start calls it when no listener is bound.
func (s *HTTPServer) Listen() (net.Addr, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.listener = listener
	return listener.Addr(), nil
}

// Start serves HTTP requests until Shutdown is called.
// Context is provided for API consistency; in-flight requests are drained by Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		s.server.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
