// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/metrics"
	"github.com/danielhkuo/pick-together/middleware"
	"github.com/danielhkuo/pick-together/models"
	"github.com/danielhkuo/pick-together/notify"
	"github.com/danielhkuo/pick-together/store"
)

type VoteHandler struct {
	store     *store.SQLStore
	engine    *convergence.Engine
	publisher notify.Publisher
	metrics   *metrics.Collector
	cfg       cliparse.Config
}

// NewVoteHandler creates a vote handler. A nil publisher disables change
// notifications; a nil collector disables vote counting.
func NewVoteHandler(st *store.SQLStore, engine *convergence.Engine, pub notify.Publisher, m *metrics.Collector, cfg cliparse.Config) *VoteHandler {
	if pub == nil {
		pub = notify.Nop{}
	}
	return &VoteHandler{store: st, engine: engine, publisher: pub, metrics: m, cfg: cfg}
}

// CastVote handles PUT /sessions/{code}/votes
//
// The vote is stored (replacing any earlier vote on the same candidate),
// other instances are notified, and the session is checked for completion
// so the last voter's request already sees the converged result.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header required")
		return
	}

	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.CandidateID = strings.TrimSpace(req.CandidateID)
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	ctx := r.Context()

	member, err := h.store.MemberByToken(ctx, session.ID, voterToken)
	if errors.Is(err, store.ErrMemberNotFound) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Not a member of this session")
		return
	}
	if err != nil {
		slog.Error("failed to query member", "error", err, "session_id", session.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	vote := models.Vote{
		VoterID:       member.VoterID,
		CandidateID:   req.CandidateID,
		Liked:         req.Liked,
		StronglyLiked: req.StronglyLiked,
		CastAt:        h.engine.Now(),
	}
	if err := vote.Validate(); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates, err := h.store.ListCandidates(ctx, session.ID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err, "session_id", session.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !hasCandidate(candidates, vote.CandidateID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown candidate")
		return
	}

	if closedError(w, convergence.EffectiveStatus(session, h.engine.Now())) {
		return
	}
	if session.Status == models.StatusWaiting {
		// First swipe opens the session
		if err := h.engine.Activate(ctx, session.ID); err != nil {
			engineError(w, err, session.ID)
			return
		}
	}

	if err := h.store.UpsertVote(ctx, session.ID, vote); err != nil {
		if closedWriteError(w, err) {
			return
		}
		slog.Error("failed to store vote", "error", err, "session_id", session.ID, "voter_id", vote.VoterID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store vote")
		return
	}
	if h.metrics != nil {
		h.metrics.VoteCast()
	}

	if err := h.publisher.VoteChanged(ctx, session.ID); err != nil {
		// Watchers fall back to polling
		slog.Warn("failed to publish vote change", "error", err, "session_id", session.ID)
	}

	resp := models.CastVoteResponse{Status: models.StatusActive}
	_, converged, err := h.engine.TryConverge(ctx, session.ID)
	switch {
	case err == nil && converged:
		resp.Complete = true
		resp.Converged = true
		resp.Status = models.StatusConverged
	case errors.Is(err, convergence.ErrSessionExpired):
		resp.Status = models.StatusExpired
	case err != nil:
		// The vote is stored; the next check will converge
		slog.Warn("convergence check after vote failed", "error", err, "session_id", session.ID)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func hasCandidate(candidates []models.Candidate, id string) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}
