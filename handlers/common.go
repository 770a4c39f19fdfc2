// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pick-together/auth"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/middleware"
	"github.com/danielhkuo/pick-together/models"
	"github.com/danielhkuo/pick-together/store"
)

// sessionFromPath resolves the {code} path value. It writes the error
// response itself and returns false when the caller should stop.
func sessionFromPath(st *store.SQLStore, w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return models.Session{}, false
	}

	session, err := st.GetSessionByCode(r.Context(), code)
	if errors.Is(err, convergence.ErrSessionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return models.Session{}, false
	}
	if err != nil {
		slog.Error("failed to query session", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Session{}, false
	}
	return session, true
}

// engineError maps convergence errors onto HTTP responses.
func engineError(w http.ResponseWriter, err error, sessionID string) {
	switch {
	case errors.Is(err, convergence.ErrSessionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, convergence.ErrSessionExpired):
		middleware.ErrorResponse(w, http.StatusGone, "Session has expired")
	case errors.Is(err, convergence.ErrIncomplete):
		middleware.ErrorResponse(w, http.StatusConflict, "Still waiting for others to finish swiping")
	case errors.Is(err, convergence.ErrInvalidTransition):
		middleware.ErrorResponse(w, http.StatusConflict, "Session is already closed")
	default:
		slog.Error("session operation failed", "error", err, "session_id", sessionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
	}
}

// closedError rejects writes to a session that can no longer change.
// It reports whether a response was written.
func closedError(w http.ResponseWriter, status string) bool {
	switch status {
	case models.StatusConverged:
		middleware.ErrorResponse(w, http.StatusConflict, "Session has already converged")
		return true
	case models.StatusExpired:
		middleware.ErrorResponse(w, http.StatusGone, "Session has expired")
		return true
	}
	return false
}

// closedWriteError handles a store refusing a write because the session
// turned terminal after the request read it. It reports whether a response
// was written.
func closedWriteError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, store.ErrSessionConverged):
		return closedError(w, models.StatusConverged)
	case errors.Is(err, convergence.ErrSessionExpired):
		return closedError(w, models.StatusExpired)
	}
	return false
}
