// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the coalescing window for change signals.
const DefaultDebounce = 250 * time.Millisecond

// Watcher waits for a session to converge. It merges any number of change
// sources behind one debounced trigger; on every trigger it runs TryConverge.
//
// The debounce is a fixed window, not a trailing one. The first signal
// starts the timer and later signals in the window do not extend it, so a
// steady stream of votes is still checked once per window.
//
// Typical setup pairs a push source with a PollSource so a dropped
// notification only costs one poll interval.
type Watcher struct {
	engine   *Engine
	sources  []ChangeSource
	debounce time.Duration
}

// NewWatcher creates a watcher. A non-positive debounce uses DefaultDebounce.
func NewWatcher(engine *Engine, debounce time.Duration, sources ...ChangeSource) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{engine: engine, sources: sources, debounce: debounce}
}

type trigger struct {
	source string
}

// Run blocks until the session converges, expires, disappears, or ctx is
// done. It checks once immediately, then on every debounced signal.
// Transient store errors are logged and retried on the next signal.
// Stopping early leaves nothing half-written.
func (w *Watcher) Run(ctx context.Context, sessionID string) (Result, error) {
	logger := w.engine.logger.With("session_id", sessionID)

	if res, done, err := w.check(ctx, sessionID); done || err != nil {
		return res, err
	}

	ctx, cancel := context.WithCancel(ctx)

	triggers := make(chan trigger, len(w.sources))
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	started := 0
	for _, src := range w.sources {
		ch, err := src.Watch(ctx, sessionID)
		if err != nil {
			logger.Warn("change source unavailable, continuing without it", "source", src.Name(), "error", err)
			continue
		}
		started++

		wg.Add(1)
		go func(name string, ch <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
				}
				select {
				case triggers <- trigger{source: name}:
				case <-ctx.Done():
					return
				}
			}
		}(src.Name(), ch)
	}
	if started == 0 {
		return Result{}, errors.New("no change source available")
	}

	// Debounce rapid signals
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop() // Stop initially
	defer debounceTimer.Stop()
	var pending bool

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()

		case t := <-triggers:
			w.engine.metrics.TriggerFired(t.source)
			if !pending {
				pending = true
				debounceTimer.Reset(w.debounce)
			}

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false

			res, done, err := w.check(ctx, sessionID)
			if err != nil {
				return Result{}, err
			}
			if done {
				return res, nil
			}
		}
	}
}

// check runs one convergence attempt. done is true once the session has
// committed matches; err is non-nil only for conditions retrying cannot fix.
func (w *Watcher) check(ctx context.Context, sessionID string) (Result, bool, error) {
	res, done, err := w.engine.TryConverge(ctx, sessionID)
	switch {
	case err == nil:
		return res, done, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return Result{}, false, err
	case ctx.Err() != nil:
		return Result{}, false, ctx.Err()
	default:
		w.engine.logger.Warn("convergence check failed, will retry", "session_id", sessionID, "error", err)
		return Result{}, false, nil
	}
}
