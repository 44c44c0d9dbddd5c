// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PairDependencies
	RankingDependencies
	SessionDependencies
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	pairHandler    *PairHandler
	rankingHandler *RankingHandler
	sessionHandler *SessionHandler
	stream         http.Handler
}

// NewServer creates a new API server with all handlers. stream serves /ws
// and may be nil.
func NewServer(deps Dependencies, statsProvider StatsProvider, stream http.Handler) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		pairHandler:    NewPairHandler(deps),
		rankingHandler: NewRankingHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		stream:         stream,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/pair", MetricsMiddleware(s.pairHandler.HandleGetPair, "pair"))
	mux.HandleFunc("/choice", MetricsMiddleware(s.pairHandler.HandlePostChoice, "choice"))
	mux.HandleFunc("/ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("/progress", MetricsMiddleware(s.rankingHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("/conflicts", MetricsMiddleware(s.rankingHandler.HandleGetConflicts, "conflicts"))
	mux.HandleFunc("/history", MetricsMiddleware(s.rankingHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/export", MetricsMiddleware(s.rankingHandler.HandleGetExport, "export"))
	mux.HandleFunc("/boost/", MetricsMiddleware(s.sessionHandler.HandlePostBoost, "boost"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.sessionHandler.HandlePostReset, "reset"))
	mux.HandleFunc("/welcome", MetricsMiddleware(s.sessionHandler.HandleWelcome, "welcome"))
	if s.stream != nil {
		mux.Handle("/ws", s.stream)
	}
}

// Handler returns mux instrumented with OpenTelemetry spans named after the
// request method and path.
func Handler(mux *http.ServeMux) http.Handler {
	return otelhttp.NewHandler(mux, "pairrank",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// choiceRequest is the body of POST /choice.
type choiceRequest struct {
	PresentationID string `json:"presentation_id"`
	WinnerIndex    *int   `json:"winner_index"`
}

func (c choiceRequest) validate() error {
	switch {
	case c.PresentationID == "":
		return errors.New("missing presentation_id")
	case c.WinnerIndex == nil:
		return errors.New("missing winner_index")
	}
	return nil
}

type choiceResponse struct {
	Judgment  model.Judgment `json:"judgment"`
	Duplicate bool           `json:"duplicate"`
}

type welcomeResponse struct {
	Seen bool `json:"seen"`
}

type ackResponse struct {
	Status string `json:"status"`
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

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, session.ErrInvalidChoice):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, session.ErrUnknownItem):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrExportUnavailable):
		writeError(w, http.StatusNotFound, "export_unavailable", err)
	case errors.Is(err, session.ErrStalePair):
		writeError(w, http.StatusConflict, "stale_pair", err)
	case errors.Is(err, session.ErrAutoResolving):
		writeError(w, http.StatusConflict, "auto_resolving", err)
	case errors.Is(err, session.ErrNoPair):
		writeError(w, http.StatusConflict, "no_pair", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
