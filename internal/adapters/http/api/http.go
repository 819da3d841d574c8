// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/coach/internal/adapters/backend"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/render"
	"github.com/okian/coach/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit runs one analysis for the form input.
	Submit(ctx context.Context, in analysis.FormInput) (*render.View, error)

	HealthProber
	StatsProvider
}

// BackendHealth mirrors the analysis service health report.
type BackendHealth = backend.HealthReport

// Server wires HTTP routes for the front end.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	analyzeHandler *AnalyzeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, renderer *render.Renderer, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(deps),
		analyzeHandler: NewAnalyzeHandler(deps, renderer, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/analyze", MetricsMiddleware(s.analyzeHandler.HandleAPI, "api_analyze"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleSubmit, "analyze"))
	mux.HandleFunc("/", MetricsMiddleware(s.analyzeHandler.HandlePage, "page"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
