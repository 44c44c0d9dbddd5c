package api

import (
	"net/http"
)

// StatsProvider reports a point-in-time summary of the running engine:
// backend, phase, item and judgment counts, queue depth and uptime.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats. A stopped engine still answers 200 with
// "started" set to false.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
