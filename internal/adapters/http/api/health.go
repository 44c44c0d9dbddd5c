package api

import (
	"net/http"

	"github.com/okian/pairrank/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler serves liveness as a scrape of the engine's metric registry.
type HealthHandler struct {
	scrape http.Handler
}

// NewHealthHandler creates a health handler over the custom registry.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		scrape: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
		}),
	}
}

// HandleHealth handles GET and HEAD /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.scrape.ServeHTTP(w, r)
}
