// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import "errors"

var (
	// ErrSessionNotFound is returned by stores for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired means the session reached its deadline before converging.
	ErrSessionExpired = errors.New("session expired")

	// ErrIncomplete means at least one enrolled voter has not voted on every candidate.
	ErrIncomplete = errors.New("session incomplete")

	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
