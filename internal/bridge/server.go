// Package bridge is the local HTTP surface the browser UI talks to.
// It exposes the explain endpoint, the live words-update feed and a
// couple of operational routes, and translates orchestrator errors
// into user-presentable JSON.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/orchestrator"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Explainer is the orchestration surface the server forwards to.
type Explainer interface {
	Explain(ctx context.Context, req domain.SelectionRequest) (orchestrator.Response, error)
	ClearCache() error
}

// Server is the coordinator HTTP server.
type Server struct {
	orch           Explainer
	hub            *Hub
	metricsEnabled bool
}

// NewServer creates a server around an orchestrator and its hub.
func NewServer(orch Explainer, hub *Hub) *Server {
	return &Server{orch: orch, hub: hub}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/explain", s.handleExplain)
		r.Post("/cache/clear", s.handleCacheClear)
		if s.hub != nil {
			r.Get("/updates", s.hub.HandleUpdatesSSE)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// handleExplain runs one explain request.
// POST /v1/explain
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req domain.SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.orch.Explain(r.Context(), req)
	if err != nil {
		status, msg := presentError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: &resp})
}

// handleCacheClear drops every cached result.
// POST /v1/cache/clear
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.ClearCache(); err != nil {
		writeError(w, http.StatusInternalServerError, "could not clear the cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// presentError maps an orchestrator error to an HTTP status and a
// message fit for direct display in the UI.
func presentError(err error) (int, string) {
	var tooLong *domain.SelectionTooLongError
	switch {
	case errors.Is(err, domain.ErrEmptySelection):
		return http.StatusBadRequest, "Please select some text first."
	case errors.As(err, &tooLong):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrFlaggedContent):
		return http.StatusUnprocessableEntity, "This text cannot be processed."
	}

	if ce, ok := domain.AsCallError(err); ok {
		switch ce.Class {
		case domain.ClassNetworkRetryable:
			return http.StatusBadGateway, "Could not reach the service. Please check your connection and try again."
		case domain.ClassProxyRetryable:
			return http.StatusBadGateway, "The service is busy right now. Please try again in a moment."
		default:
			return http.StatusBadGateway, "The service could not handle this text. Please try again."
		}
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again."
}

// envelope is the response wrapper the UI unpacks.
type envelope struct {
	OK    bool                   `json:"ok"`
	Data  *orchestrator.Response `json:"data,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{OK: false, Error: msg})
}

// corsMiddleware allows the extension UI, which runs on a different
// origin, to call the local server.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
