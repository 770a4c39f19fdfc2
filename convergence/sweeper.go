// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"errors"
	"time"
)

// Sweep expires every open session past its deadline and returns how many
// it moved. Errors on single sessions are logged and skipped.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	sessions, err := e.store.ListOpenSessions(ctx)
	if err != nil {
		return 0, err
	}

	now := e.now()
	expired := 0
	for _, s := range sessions {
		if !IsExpired(s, now) {
			continue
		}
		changed, err := e.Expire(ctx, s.ID)
		if err != nil {
			// Converged between the list and the update
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			e.logger.Error("failed to expire session", "session_id", s.ID, "error", err)
			continue
		}
		if changed {
			expired++
		}
	}

	if expired > 0 {
		e.metrics.SessionsExpired(expired)
		e.logger.Info("expired sessions", "count", expired)
	}
	return expired, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Sweep(ctx); err != nil {
				e.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}
