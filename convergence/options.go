// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"log/slog"
	"time"
)

// Metrics receives engine events. The metrics package provides a
// Prometheus implementation; the default discards everything.
type Metrics interface {
	CompletionChecked(complete bool)
	Converged(outcome string, matches int)
	TriggerFired(source string)
	SessionsExpired(n int)
}

// Outcomes reported to Metrics.Converged.
const (
	OutcomeComputed   = "computed"
	OutcomeExisting   = "existing"
	OutcomeIncomplete = "incomplete"
	OutcomeExpired    = "expired"
	OutcomeError      = "error"
)

type nopMetrics struct{}

func (nopMetrics) CompletionChecked(bool) {}
func (nopMetrics) Converged(string, int) {}
func (nopMetrics) TriggerFired(string) {}
func (nopMetrics) SessionsExpired(int) {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock replaces time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
