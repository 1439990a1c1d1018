package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"restkv/internal/kv"
	"restkv/internal/logging"
	"restkv/internal/ratelimit"
)

var logger = logging.For("httpapi")

// Options configures the HTTP adapter.
type Options struct {
	// MaxBodyBytes caps POST bodies. Larger bodies get 413.
	MaxBodyBytes int64
	// NewTokenRate limits POST /new per client IP, in requests per second.
	// Zero disables the limit.
	NewTokenRate float64
}

// Server exposes a kv.Service over HTTP.
type Server struct {
	addr    string
	handler http.Handler
	limiter *ratelimit.Limiter
	srv     *http.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server for svc that will listen on addr.
func NewServer(addr string, svc *kv.Service, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 * 1024
	}
	h := &handlers{svc: svc, maxBodyBytes: opts.MaxBodyBytes}
	if opts.NewTokenRate > 0 {
		h.limiter = ratelimit.New(opts.NewTokenRate)
	}

	handler := chain(h.routes())
	return &Server{
		addr:    addr,
		handler: handler,
		limiter: h.limiter,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		done: make(chan struct{}),
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds the server socket. Call Serve to start accepting requests.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the listener's address. Useful when listening on :0.
func (s *Server) Addr() string {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

// Serve handles requests until ctx is cancelled or Stop is called.
// Call Listen first.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve called before listen")
	}

	if s.limiter != nil {
		go s.limiter.CleanupLoop(s.done, time.Minute)
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start is a convenience that calls Listen + Serve.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stop drains in-flight requests for up to five seconds, then closes
// remaining connections.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown incomplete", "err", err)
			_ = s.srv.Close()
		}
		// Shutdown only closes listeners it is serving on.
		s.mu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.mu.Unlock()
	})
}
