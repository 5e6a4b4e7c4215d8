package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nftbarter/discovery-engine/infrastructure/logging"
)

// Service binds a Handler's router to a listening address and manages
// its lifecycle, grounded on the teacher's http service Start/Stop/Addr
// convention (graceful net/http.Server shutdown, a mutex-guarded running
// flag, and a deferred bound-address lookup for tests that bind to :0).
type Service struct {
	addr   string
	log    *logging.Logger
	server *http.Server

	mu      sync.Mutex
	running bool
	bound   string
}

func NewService(addr string, handler http.Handler, log *logging.Logger) *Service {
	return &Service{
		addr: addr,
		log:  log,
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background. Returns once
// bound; serve errors after that are logged, not returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.server.Addr = s.addr
	s.running = true
	s.bound = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			if s.log != nil {
				s.log.Error(ctx, "http server error", err, nil)
			}
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address (after Start) or the configured address
// before binding.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != "" {
		return s.bound
	}
	return s.addr
}
