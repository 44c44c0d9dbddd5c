package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pairrank/internal/domain/model"
)

// PairDependencies defines the operations behind /pair and /choice.
type PairDependencies interface {
	CurrentPair(ctx context.Context) (model.Presentation, error)
	SubmitChoice(ctx context.Context, presentationID string, winnerIndex int) (model.Judgment, bool, error)
}

// PairHandler handles presentation and choice requests.
type PairHandler struct {
	deps PairDependencies
}

// NewPairHandler creates a new pair handler.
func NewPairHandler(deps PairDependencies) *PairHandler {
	return &PairHandler{deps: deps}
}

// HandleGetPair handles GET /pair requests.
func (h *PairHandler) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pair"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	p, err := h.deps.CurrentPair(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePostChoice handles POST /choice requests.
func (h *PairHandler) HandlePostChoice(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_choice"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	j, dup, err := h.deps.SubmitChoice(r.Context(), req.PresentationID, *req.WinnerIndex)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if dup {
		status = http.StatusOK
	}
	writeJSON(w, status, choiceResponse{Judgment: j, Duplicate: dup})
}
