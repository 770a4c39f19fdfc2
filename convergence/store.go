// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"time"

	"github.com/danielhkuo/pick-together/models"
)

// Store is everything the engine reads from and writes to the shared
// session store. Every participant's client works against the same durable
// data, so implementations must make CommitConvergence and TransitionStatus
// safe to repeat.
type Store interface {
	// GetSession returns ErrSessionNotFound for an unknown ID.
	GetSession(ctx context.Context, sessionID string) (models.Session, error)

	// ListMembers returns the enrolled voters in join order.
	ListMembers(ctx context.Context, sessionID string) ([]models.Member, error)

	// ListCandidates returns the session's catalog in catalog order.
	ListCandidates(ctx context.Context, sessionID string) ([]models.Candidate, error)

	ListVotes(ctx context.Context, sessionID string) ([]models.Vote, error)

	// ListMatches returns committed matches ordered by rank, empty if none.
	ListMatches(ctx context.Context, sessionID string) ([]models.Match, error)

	// CommitConvergence moves the session to converged and upserts all
	// matches keyed by (session, candidate) in one transaction. Only the
	// first commit writes: committing to an already converged session
	// succeeds and leaves the stored matches untouched, and committing to an
	// expired one returns ErrSessionExpired and writes nothing.
	CommitConvergence(ctx context.Context, sessionID string, matches []models.Match, at time.Time) error

	// TransitionStatus sets status to `to` only if it currently equals `from`.
	// It reports whether a row changed.
	TransitionStatus(ctx context.Context, sessionID, from, to string) (bool, error)

	// ListOpenSessions returns sessions still waiting or active.
	ListOpenSessions(ctx context.Context) ([]models.Session, error)
}
