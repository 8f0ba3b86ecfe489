package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPService implements the Service interface for HTTP servers.
// It manages the lifecycle of an HTTP server with graceful shutdown.
type HTTPService struct {
	name            string
	addr            string
	handler         http.Handler
	server          *http.Server
	listener        net.Listener
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	mu              sync.Mutex
	started         bool
	serveErr        chan error
}

// HTTPServiceOption is a functional option for configuring an HTTPService.
type HTTPServiceOption func(*HTTPService)

// WithReadTimeout sets the HTTP server read timeout.
func WithReadTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		if timeout > 0 {
			s.readTimeout = timeout
		}
	}
}

// WithWriteTimeout sets the HTTP server write timeout.
func WithWriteTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithMaxHeaderBytes sets the maximum header bytes for the HTTP server.
func WithMaxHeaderBytes(bytes int) HTTPServiceOption {
	return func(s *HTTPService) {
		if bytes > 0 {
			s.maxHeaderBytes = bytes
		}
	}
}

// NewHTTPService creates a new HTTP service. The handler will be invoked for
// all incoming HTTP requests. An addr with port 0 listens on a free port;
// Addr reports which one after Start.
func NewHTTPService(name, addr string, handler http.Handler, opts ...HTTPServiceOption) *HTTPService {
	s := &HTTPService{
		name:            name,
		addr:            addr,
		handler:         handler,
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 30 * time.Second,
		maxHeaderBytes:  1 << 20, // 1 MB
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the listen address and serves in the background. A bind
// failure is returned directly.
func (s *HTTPService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("service %s already started", s.name)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP service %s: %w", s.name, err)
	}

	s.server = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.listener = ln
	s.serveErr = make(chan error, 1)

	server, serveErr := s.server, s.serveErr
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	s.started = true
	return nil
}

// Stop gracefully stops the HTTP server, waiting for in-flight requests to complete.
// Without a context deadline the configured shutdown timeout applies.
func (s *HTTPService) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	started := s.started
	s.mu.Unlock()

	if !started || server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP service %s: %w", s.name, err)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return nil
}

// Name returns the service name.
func (s *HTTPService) Name() string {
	return s.name
}

// Addr returns the address the server is listening on, or the configured
// address before Start.
func (s *HTTPService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Health reports whether the server is running. A server that stopped
// serving on its own is unhealthy.
func (s *HTTPService) Health() error {
	s.mu.Lock()
	started := s.started
	serveErr := s.serveErr
	s.mu.Unlock()

	if !started {
		return fmt.Errorf("service %s not running", s.name)
	}

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return fmt.Errorf("service %s stopped serving: %w", s.name, err)
		}
		return fmt.Errorf("service %s stopped serving", s.name)
	default:
	}
	return nil
}
