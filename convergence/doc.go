// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package convergence decides when a group has finished swiping and what it
agreed on.

# Components

  - Completion tracker (tracker.go): Tally, Complete, IsComplete and
    Engine.Progress. A session is complete when every enrolled voter has
    voted on every catalog candidate. Zero voters or an empty catalog is
    never complete.
  - Match detector (detector.go): DetectMatches keeps candidates liked by
    every enrolled voter and ranks them by strong likes, likes, then ID.
  - Persistence gate (gate.go): Engine.Converge commits matches once and
    moves the session to converged, returning stored matches on repeat calls.
  - Status machine (status.go): waiting → active → converged, and any
    non-terminal state → expired once past the deadline.

# Triggers

Completion is evaluated on demand (Engine.Progress, Engine.TryConverge) or
by a Watcher that merges ChangeSources behind a debounce:

	w := convergence.NewWatcher(engine, 250*time.Millisecond,
		notify.NewSource(nc),
		convergence.PollSource{Interval: 3 * time.Second},
	)
	res, err := w.Run(ctx, sessionID)

# Concurrency

The engine keeps no per-session state. Every participant may run the same
checks against the shared store at the same time. Converge skips sessions
that already converged, and CommitConvergence claims the status before
writing matches, so a racing commit built from an older snapshot writes
nothing. No lock is held across calls.
*/
package convergence
