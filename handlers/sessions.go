// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/pick-together/auth"
	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/middleware"
	"github.com/danielhkuo/pick-together/models"
	"github.com/danielhkuo/pick-together/store"
)

const (
	maxCandidates    = 200
	maxTitleLength   = 200
	codeAttempts     = 5
	minDisplayLength = 2
	maxDisplayLength = 50
)

type SessionHandler struct {
	store  *store.SQLStore
	engine *convergence.Engine
	cfg    cliparse.Config
}

func NewSessionHandler(st *store.SQLStore, engine *convergence.Engine, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{store: st, engine: engine, cfg: cfg}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.HostName = strings.TrimSpace(req.HostName)
	if req.Title == "" || req.HostName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title and host_name are required")
		return
	}
	if len(req.Title) > maxTitleLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is too long")
		return
	}

	candidates, msg := validateCandidates(req.Candidates)
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	now := h.engine.Now().UTC()
	session := models.Session{
		ID:        auth.GenerateID(),
		Title:     req.Title,
		HostName:  req.HostName,
		Status:    models.StatusWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(h.cfg.SessionTTL),
	}

	// Codes are short; retry the rare collision
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		session.Code, err = auth.GenerateSessionCode()
		if err != nil {
			break
		}
		err = h.store.CreateSession(r.Context(), session, candidates)
		if !errors.Is(err, store.ErrCodeTaken) {
			break
		}
	}
	if err != nil {
		slog.Error("failed to create session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("session created", "session_id", session.ID, "code", session.Code, "candidates", len(candidates))

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID: session.ID,
		Code:      session.Code,
		HostKey:   auth.GenerateHostKey(session.ID, h.cfg.HostKeySalt),
		ExpiresAt: session.ExpiresAt,
	})
}

func validateCandidates(in []models.CandidateInput) ([]models.Candidate, string) {
	if len(in) == 0 {
		return nil, "at least one candidate is required"
	}
	if len(in) > maxCandidates {
		return nil, "too many candidates"
	}

	seen := make(map[string]bool, len(in))
	out := make([]models.Candidate, 0, len(in))
	for i, c := range in {
		id := strings.TrimSpace(c.ID)
		name := strings.TrimSpace(c.Name)
		if id == "" || name == "" {
			return nil, "every candidate needs an id and a name"
		}
		if seen[id] {
			return nil, "duplicate candidate id: " + id
		}
		if len(c.Payload) > 0 && !json.Valid(c.Payload) {
			return nil, "invalid payload for candidate " + id
		}
		seen[id] = true
		out = append(out, models.Candidate{ID: id, Position: i, Name: name, Payload: c.Payload})
	}
	return out, ""
}

// GetSession handles GET /sessions/{code}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	candidates, err := h.store.ListCandidates(r.Context(), session.ID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err, "session_id", session.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	session.Status = convergence.EffectiveStatus(session, h.engine.Now())
	middleware.JSONResponse(w, http.StatusOK, models.SessionWithCandidates{
		Session:    session,
		Candidates: candidates,
	})
}

// JoinSession handles POST /sessions/{code}/join
func (h *SessionHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	var req models.JoinSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if len(name) < minDisplayLength || len(name) > maxDisplayLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "display_name must be 2-50 characters")
		return
	}

	if closedError(w, convergence.EffectiveStatus(session, h.engine.Now())) {
		return
	}

	voterToken, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join session")
		return
	}

	member := models.Member{
		VoterID:     auth.GenerateID(),
		DisplayName: name,
		VoterToken:  voterToken,
		JoinedAt:    h.engine.Now(),
	}
	err = h.store.AddMember(r.Context(), session.ID, member)
	if errors.Is(err, store.ErrNameTaken) {
		middleware.ErrorResponse(w, http.StatusConflict, "Display name already taken")
		return
	}
	if closedWriteError(w, err) {
		return
	}
	if err != nil {
		slog.Error("failed to insert member", "error", err, "session_id", session.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join session")
		return
	}

	slog.Info("voter joined", "session_id", session.ID, "voter_id", member.VoterID)

	middleware.JSONResponse(w, http.StatusCreated, models.JoinSessionResponse{
		VoterID:    member.VoterID,
		VoterToken: voterToken,
	})
}

// StartSession handles POST /sessions/{code}/start
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	hostKey := r.Header.Get("X-Host-Key")
	if hostKey == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Host-Key header required")
		return
	}

	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	if err := auth.ValidateHostKey(session.ID, hostKey, h.cfg.HostKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusForbidden, "Invalid host key")
		return
	}

	if err := h.engine.Activate(r.Context(), session.ID); err != nil {
		engineError(w, err, session.ID)
		return
	}

	updated, err := h.store.GetSession(r.Context(), session.ID)
	if err != nil {
		engineError(w, err, session.ID)
		return
	}

	slog.Info("session started", "session_id", session.ID)
	middleware.JSONResponse(w, http.StatusOK, updated)
}

// GetProgress handles GET /sessions/{code}/progress
func (h *SessionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromPath(h.store, w, r)
	if !ok {
		return
	}

	progress, err := h.engine.Progress(r.Context(), session.ID)
	if err != nil {
		engineError(w, err, session.ID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, progress)
}
