// Package health serves the gateway's HTTP surface: liveness, readiness,
// stats and any handlers mounted by receivers.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Check reports the health of one dependency. A nil error is healthy.
type Check func(ctx context.Context) error

type Server struct {
	server  *http.Server
	router  chi.Router
	mu      sync.RWMutex
	ready   bool
	checks  map[string]Check
	started time.Time
}

func NewServer(host string, port int) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		checks:  make(map[string]Check),
		started: time.Now(),
	}
	s.router.Use(middleware.Recoverer)
	s.router.Get("/health", s.healthHandler)
	s.router.Get("/ready", s.readyHandler)

	s.server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handle mounts h at pattern for all methods.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

// Handler is the root router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.server.Addr }

func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// RegisterCheck adds a readiness check under name.
func (s *Server) RegisterCheck(name string, check Check) {
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve serves on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	checks := make(map[string]Check, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(checks))
	for name, check := range checks {
		if err := check(ctx); err != nil {
			ready = false
			results[name] = fmt.Sprintf("fail: %v", err)
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
