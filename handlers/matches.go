// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/middleware"
	"github.com/danielhkuo/pick-together/models"
	"github.com/danielhkuo/pick-together/store"
)

type MatchHandler struct {
	store   *store.SQLStore
	engine  *convergence.Engine
	sources []convergence.ChangeSource
	cfg     cliparse.Config
}

// NewMatchHandler creates a match handler. sources are the push change
// sources used by WaitMatches; a PollSource is always added.
func NewMatchHandler(st *store.SQLStore, engine *convergence.Engine, cfg cliparse.Config, sources ...convergence.ChangeSource) *MatchHandler {
	return &MatchHandler{store: st, engine: engine, sources: sources, cfg: cfg}
}

// Converge handles POST /sessions/{code}/converge
func (h *MatchHandler) Converge(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	res, err := h.engine.Converge(r.Context(), session.ID)
	if err != nil {
		engineError(w, err, session.ID)
		return
	}
	h.writeMatches(w, res)
}

// GetMatches handles GET /sessions/{code}/matches
// Matches stay sealed until the session has converged.
func (h *MatchHandler) GetMatches(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	matches, status, err := h.engine.Matches(r.Context(), session.ID)
	if err != nil {
		engineError(w, err, session.ID)
		return
	}
	if status != models.StatusConverged {
		middleware.ErrorResponse(w, http.StatusForbidden, "Matches are sealed until everyone has finished swiping")
		return
	}

	h.writeMatches(w, convergence.Result{SessionID: session.ID, Matches: matches, Existing: true})
}

// WaitMatches handles GET /sessions/{code}/matches/wait
//
// It blocks until the session converges or the wait timeout passes.
// A timeout answers 204 and the client simply asks again.
func (h *MatchHandler) WaitMatches(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.WaitTimeout)
	defer cancel()

	sources := append([]convergence.ChangeSource{}, h.sources...)
	sources = append(sources, convergence.PollSource{Interval: h.cfg.PollInterval})

	res, err := convergence.NewWatcher(h.engine, h.cfg.Debounce, sources...).Run(ctx, session.ID)
	switch {
	case err == nil:
		h.writeMatches(w, res)
	case errors.Is(err, context.DeadlineExceeded):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, context.Canceled):
		slog.Debug("match wait abandoned by client", "session_id", session.ID)
	default:
		engineError(w, err, session.ID)
	}
}

func (h *MatchHandler) writeMatches(w http.ResponseWriter, res convergence.Result) {
	matches := res.Matches
	if matches == nil {
		matches = []models.Match{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.MatchesResponse{
		SessionID: res.SessionID,
		Status:    models.StatusConverged,
		Matches:   matches,
	})
}
