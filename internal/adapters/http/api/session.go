package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/pairrank/internal/domain/model"
)

// SessionDependencies defines the operations that change the session.
type SessionDependencies interface {
	Boost(ctx context.Context, name string) (model.Item, error)
	Reset(ctx context.Context) error
	WelcomeSeen(ctx context.Context) (bool, error)
	MarkWelcomeSeen(ctx context.Context) error
}

// SessionHandler handles boost, reset and welcome requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandlePostBoost handles POST /boost/{name} requests.
func (h *SessionHandler) HandlePostBoost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_boost"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	// Item names contain spaces, so the path segment arrives escaped.
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/boost/")
	name, err := url.PathUnescape(raw)
	if err != nil || name == "" || strings.Contains(raw, "/") {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	item, err := h.deps.Boost(r.Context(), name)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandlePostReset handles POST /reset requests.
func (h *SessionHandler) HandlePostReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Reset(r.Context()); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "reset"})
}

// HandleWelcome handles GET and POST /welcome requests.
func (h *SessionHandler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	const op = "api.welcome"
	switch r.Method {
	case http.MethodGet:
		seen, err := h.deps.WelcomeSeen(r.Context())
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, welcomeResponse{Seen: seen})
	case http.MethodPost:
		if err := h.deps.MarkWelcomeSeen(r.Context()); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, welcomeResponse{Seen: true})
	default:
		http.NotFound(w, r)
	}
}
