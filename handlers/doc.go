// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the pick-together API.

# Handler Types

  - SessionHandler: create, read, join, host start, progress
  - VoteHandler: swipes, change notifications and the inline completion check
  - MatchHandler: explicit convergence, sealed match reads and long-poll waits

Handlers share a store.SQLStore and a convergence.Engine:

	sessionHandler := handlers.NewSessionHandler(st, engine, cfg)

# Session Lifecycle

Sessions move waiting → active → converged, or to expired once past their
deadline. The host starts a session with X-Host-Key; the first swipe also
starts it. Voters authenticate with the X-Voter-Token returned on join.

# Convergence

Every accepted swipe publishes a change notification and runs
Engine.TryConverge, so the last voter's response already reports
"converged". Other clients either long-poll GET /matches/wait, which runs a
convergence.Watcher fed by NATS and a PollSource, or call POST /converge.
All paths go through the same idempotent gate.

# Error Mapping

	convergence.ErrSessionNotFound → 404
	convergence.ErrIncomplete      → 409
	convergence.ErrSessionExpired  → 410
	models.ErrContradictoryVote    → 400
	store.ErrNameTaken             → 409
*/
package handlers
