// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/pick-together/models"
)

// Result is the committed outcome of a session.
type Result struct {
	SessionID string
	Matches   []models.Match // ranked; empty means "no matches"

	// Existing is true when the matches were already committed and nothing
	// was recomputed.
	Existing bool
}

// Converge commits the session's matches exactly once and moves the
// session to converged.
//
// If the session already converged, or matches are already stored, the
// stored set is returned unchanged. Otherwise completion is checked
// (ErrIncomplete if anyone is still swiping), matches are computed and
// committed with the status change in one batch. Concurrent or repeated
// calls are harmless: the first commit wins, later ones write nothing and
// every caller returns what the store holds. A failed call can simply be
// retried.
func (e *Engine) Converge(ctx context.Context, sessionID string) (Result, error) {
	res, err := e.converge(ctx, sessionID)
	switch {
	case err == nil && res.Existing:
		e.metrics.Converged(OutcomeExisting, len(res.Matches))
	case err == nil:
		e.metrics.Converged(OutcomeComputed, len(res.Matches))
	case errors.Is(err, ErrIncomplete):
		e.metrics.Converged(OutcomeIncomplete, 0)
	case errors.Is(err, ErrSessionExpired):
		e.metrics.Converged(OutcomeExpired, 0)
	default:
		e.metrics.Converged(OutcomeError, 0)
	}
	return res, err
}

func (e *Engine) converge(ctx context.Context, sessionID string) (Result, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	existing, err := e.store.ListMatches(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list matches: %w", err)
	}
	// An empty committed result leaves no rows behind, so the status is the
	// other half of the existence check.
	if len(existing) > 0 || session.Status == models.StatusConverged {
		return Result{SessionID: sessionID, Matches: existing, Existing: true}, nil
	}

	now := e.now()
	if session.Status == models.StatusExpired || IsExpired(session, now) {
		if err := e.advance(ctx, sessionID, models.StatusExpired); err != nil {
			return Result{}, err
		}
		return Result{}, ErrSessionExpired
	}

	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	complete := IsComplete(snap.Voters, snap.Catalog, snap.Votes)
	e.metrics.CompletionChecked(complete)
	if !complete {
		return Result{}, ErrIncomplete
	}

	matches := DetectMatches(snap.Voters, snap.Catalog, snap.Votes, now)
	if err := e.store.CommitConvergence(ctx, sessionID, matches, now); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("failed to commit matches: %w", err)
	}

	e.logger.Info("session converged",
		"session_id", sessionID,
		"voters", len(snap.Voters),
		"candidates", len(snap.Catalog),
		"matches", len(matches),
	)

	// Return what the store holds, so every caller sees identical records
	// whichever concurrent commit landed first.
	persisted, err := e.store.ListMatches(ctx, sessionID)
	if err != nil {
		e.logger.Warn("failed to re-read committed matches", "session_id", sessionID, "error", err)
		return Result{SessionID: sessionID, Matches: matches}, nil
	}
	return Result{SessionID: sessionID, Matches: persisted}, nil
}

// TryConverge runs Converge and treats an incomplete session as "not yet"
// rather than an error.
func (e *Engine) TryConverge(ctx context.Context, sessionID string) (Result, bool, error) {
	res, err := e.Converge(ctx, sessionID)
	if errors.Is(err, ErrIncomplete) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// Matches returns the committed matches and the session's effective status
// without computing anything.
func (e *Engine) Matches(ctx context.Context, sessionID string) ([]models.Match, string, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	matches, err := e.store.ListMatches(ctx, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, EffectiveStatus(session, e.now()), nil
}
