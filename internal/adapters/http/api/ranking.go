package api

import (
	"context"
	"net/http"

	"github.com/okian/pairrank/internal/domain/model"
)

// RankingDependencies defines the read-only views.
type RankingDependencies interface {
	Ranking(ctx context.Context) ([]model.Standing, error)
	Progress(ctx context.Context) (model.Progress, error)
	Conflicts(ctx context.Context) ([]model.Conflict, error)
	History(ctx context.Context) ([]model.Judgment, error)
	Export(ctx context.Context) (string, bool, error)
}

// RankingHandler serves standings, progress and the derived lists.
type RankingHandler struct {
	deps RankingDependencies
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies) *RankingHandler {
	return &RankingHandler{deps: deps}
}

// HandleGetRanking handles GET /ranking requests.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, "api.get_ranking", h.deps.Ranking)
}

// HandleGetProgress handles GET /progress requests.
func (h *RankingHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, "api.get_progress", h.deps.Progress)
}

// HandleGetConflicts handles GET /conflicts requests.
func (h *RankingHandler) HandleGetConflicts(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, "api.get_conflicts", h.deps.Conflicts)
}

// HandleGetHistory handles GET /history requests.
func (h *RankingHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, "api.get_history", h.deps.History)
}

// HandleGetExport handles GET /export requests. The body is plain text.
func (h *RankingHandler) HandleGetExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	text, ok, err := h.deps.Export(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if !ok {
		writeFailure(w, NewKind(op, ErrExportUnavailable))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func serveView[T any](w http.ResponseWriter, r *http.Request, op string, get func(context.Context) (T, error)) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v, err := get(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}
