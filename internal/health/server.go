// Package health exposes liveness and metrics endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status values reported per dependency.
const (
	StatusHealthy  = "healthy"
	StatusCritical = "critical"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	checks map[string]CheckFunc
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(checks map[string]CheckFunc, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checks: checks,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	overall := StatusHealthy
	results := make(map[string]checkResult, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			overall = StatusCritical
			results[name] = checkResult{Status: StatusCritical, Error: err.Error()}
		} else {
			results[name] = checkResult{Status: StatusHealthy}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if overall != StatusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": overall,
		"checks": results,
	})
}
