// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/pick-together/models"
)

// manualSource is a push source driven by the test.
type manualSource struct {
	ch  chan struct{}
	err error
}

func newManualSource() *manualSource {
	return &manualSource{ch: make(chan struct{}, 16)}
}

func (m *manualSource) Name() string { return "manual" }

func (m *manualSource) Watch(ctx context.Context, _ string) (<-chan struct{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ch, nil
}

func (m *manualSource) fire() { m.ch <- struct{}{} }

// pendingStore has A done voting and B still to vote on X.
func pendingStore() *memStore {
	store := newMemStore()
	store.addSession("s1", models.StatusActive, time.Now().Add(time.Hour))
	store.addMembers("s1", "A", "B")
	store.addCandidates("s1", "X")
	store.vote("s1", "A", "X", true, true)
	return store
}

type runResult struct {
	res Result
	err error
}

func runWatcher(ctx context.Context, w *Watcher) <-chan runResult {
	out := make(chan runResult, 1)
	go func() {
		res, err := w.Run(ctx, "s1")
		out <- runResult{res, err}
	}()
	return out
}

func TestWatcher_AlreadyComplete(t *testing.T) {
	store := pendingStore()
	store.vote("s1", "B", "X", true, false)
	engine := NewEngine(store)

	res, err := NewWatcher(engine, 10*time.Millisecond, newManualSource()).Run(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, matchIDs(res.Matches))
}

func TestWatcher_PushTriggersConvergence(t *testing.T) {
	store := pendingStore()
	engine := NewEngine(store)
	push := newManualSource()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := runWatcher(ctx, NewWatcher(engine, 10*time.Millisecond, push))

	store.vote("s1", "B", "X", true, false)
	push.fire()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, []string{"X"}, matchIDs(r.res.Matches))
		assert.Equal(t, models.StatusConverged, store.status("s1"))
	case <-ctx.Done():
		t.Fatal("watcher did not converge after push signal")
	}
}

func TestWatcher_PollFallbackWhenPushIsSilent(t *testing.T) {
	store := pendingStore()
	metrics := newRecordingMetrics()
	engine := NewEngine(store, WithMetrics(metrics))
	silent := newManualSource()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := runWatcher(ctx, NewWatcher(engine, 5*time.Millisecond, silent, PollSource{Interval: 20 * time.Millisecond}))

	// The vote lands after the first check, and its notification is lost.
	require.Eventually(t, func() bool { return metrics.checkCount() >= 1 }, time.Second, time.Millisecond)
	store.vote("s1", "B", "X", false, false)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Empty(t, r.res.Matches)
		assert.Equal(t, models.StatusConverged, store.status("s1"))
	case <-ctx.Done():
		t.Fatal("poll fallback never converged the session")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Positive(t, metrics.triggers["poll"])
	assert.Zero(t, metrics.triggers["manual"])
}

func TestWatcher_BrokenPushSourceFallsBackToPolling(t *testing.T) {
	store := pendingStore()
	engine := NewEngine(store)
	broken := &manualSource{err: errors.New("nats: no servers available")}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := runWatcher(ctx, NewWatcher(engine, 5*time.Millisecond, broken, PollSource{Interval: 20 * time.Millisecond}))
	store.vote("s1", "B", "X", true, false)

	select {
	case r := <-done:
		require.NoError(t, r.err)
	case <-ctx.Done():
		t.Fatal("watcher did not converge with polling only")
	}
}

func TestWatcher_NoUsableSource(t *testing.T) {
	engine := NewEngine(pendingStore())
	broken := &manualSource{err: errors.New("down")}

	_, err := NewWatcher(engine, 5*time.Millisecond, broken).Run(context.Background(), "s1")
	require.Error(t, err)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	store := pendingStore()
	metrics := newRecordingMetrics()
	engine := NewEngine(store, WithMetrics(metrics))
	push := newManualSource()

	ctx, cancel := context.WithCancel(context.Background())
	done := runWatcher(ctx, NewWatcher(engine, 100*time.Millisecond, push))

	// Wait for the initial check, then send a burst well inside the window.
	require.Eventually(t, func() bool { return metrics.checkCount() == 1 }, time.Second, 5*time.Millisecond)
	for i := 0; i < 10; i++ {
		push.fire()
	}

	require.Eventually(t, func() bool { return metrics.checkCount() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, metrics.checkCount(), "burst should coalesce into one check")

	cancel()
	r := <-done
	require.ErrorIs(t, r.err, context.Canceled)
	assert.Equal(t, models.StatusActive, store.status("s1"))
}

func TestWatcher_StopsOnExpiry(t *testing.T) {
	store := pendingStore()
	later := time.Now().Add(2 * time.Hour)
	engine := NewEngine(store, WithClock(func() time.Time { return later }))

	_, err := NewWatcher(engine, 5*time.Millisecond, PollSource{Interval: 10 * time.Millisecond}).Run(context.Background(), "s1")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestPollSource_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := PollSource{Interval: 5 * time.Millisecond}.Watch(ctx, "s1")
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no tick")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
