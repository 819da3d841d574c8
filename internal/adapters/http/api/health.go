package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/coach/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthProber probes the analysis service.
type HealthProber interface {
	Probe(ctx context.Context) (BackendHealth, error)
	InFlight() int64
}

// HealthHandler handles liveness and metrics requests.
type HealthHandler struct {
	prober  HealthProber
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(prober HealthProber) *HealthHandler {
	return &HealthHandler{
		prober:  prober,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	BackendMS int64  `json:"backend_latency_ms,omitempty"`
	InFlight  int64  `json:"in_flight"`
}

// HandleHealth handles GET /health. The front end is alive whenever it can
// answer, so the status is always 200; the backend field reports the probe.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := healthResponse{Status: "ok", Backend: "up", InFlight: h.prober.InFlight()}
	report, err := h.prober.Probe(r.Context())
	if err != nil {
		resp.Backend = "down"
	} else {
		resp.BackendMS = report.Latency.Round(time.Millisecond).Milliseconds()
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// HandleMetrics handles GET /healthz with the Prometheus exposition.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
