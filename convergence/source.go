// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"time"
)

// ChangeSource signals that a session's votes may have changed. Signals
// carry no payload and may be dropped or duplicated; the watcher always
// re-reads the store. The channel is closed when ctx is done.
type ChangeSource interface {
	Name() string
	Watch(ctx context.Context, sessionID string) (<-chan struct{}, error)
}

// PollSource fires on a fixed interval. It is the safety net for push
// notifications that never arrive.
type PollSource struct {
	Interval time.Duration
}

func (p PollSource) Name() string { return "poll" }

func (p PollSource) Watch(ctx context.Context, sessionID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				Signal(ch)
			}
		}
	}()
	return ch, nil
}

// Signal does a non-blocking send on a buffered signal channel. A pending
// signal already covers the new one.
func Signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
