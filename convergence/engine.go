// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"log/slog"
	"time"
)

// Engine ties the completion tracker, match detector and persistence gate
// to one Store. It holds no per-session state; any number of engines in
// any number of processes may work on the same session.
type Engine struct {
	store   Store
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the engine's store.
func (e *Engine) Store() Store {
	return e.store
}

// Now returns the engine's clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}
