// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"fmt"
	"time"

	"github.com/danielhkuo/pick-together/models"
)

// transitions lists every allowed forward move. Terminal states have none.
var transitions = map[string][]string{
	models.StatusWaiting: {models.StatusActive, models.StatusConverged, models.StatusExpired},
	models.StatusActive:  {models.StatusConverged, models.StatusExpired},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return status == models.StatusConverged || status == models.StatusExpired
}

// IsExpired reports whether a non-terminal session is past its deadline.
func IsExpired(s models.Session, now time.Time) bool {
	return !IsTerminal(s.Status) && !now.Before(s.ExpiresAt)
}

// EffectiveStatus is the stored status with wall-clock expiry applied, so
// readers see "expired" even before the sweeper has written it.
func EffectiveStatus(s models.Session, now time.Time) string {
	if IsExpired(s, now) {
		return models.StatusExpired
	}
	return s.Status
}

// advance moves a session from its current status to `to`. Re-applying a
// transition that already happened is a no-op.
func (e *Engine) advance(ctx context.Context, sessionID, to string) error {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status == to {
		return nil
	}
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, s.Status, to)
	}

	changed, err := e.store.TransitionStatus(ctx, sessionID, s.Status, to)
	if err != nil {
		return fmt.Errorf("failed to set status %s: %w", to, err)
	}
	if changed {
		e.logger.Info("session status changed", "session_id", sessionID, "from", s.Status, "to", to)
		return nil
	}

	// Someone else moved it first; accept only if they landed where we wanted.
	current, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if current.Status != to {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current.Status, to)
	}
	return nil
}

// Activate moves a waiting session to active. Calling it on an active
// session is a no-op; a session past its deadline is expired instead.
func (e *Engine) Activate(ctx context.Context, sessionID string) error {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if IsExpired(s, e.now()) {
		if err := e.advance(ctx, sessionID, models.StatusExpired); err != nil {
			return err
		}
		return ErrSessionExpired
	}
	if s.Status == models.StatusActive {
		return nil
	}
	return e.advance(ctx, sessionID, models.StatusActive)
}

// Expire moves a session past its deadline to expired. It returns false
// without error when the session is terminal or not yet due.
func (e *Engine) Expire(ctx context.Context, sessionID string) (bool, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !IsExpired(s, e.now()) {
		return false, nil
	}
	if err := e.advance(ctx, sessionID, models.StatusExpired); err != nil {
		return false, err
	}
	return true, nil
}
