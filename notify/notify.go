// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify carries "votes changed" signals between API instances over
// NATS core pub/sub. Messages are empty; subscribers re-read the store.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/danielhkuo/pick-together/convergence"
)

const subjectPrefix = "picktogether.sessions"

// Subject is the subject vote changes for a session are published on.
func Subject(sessionID string) string {
	return subjectPrefix + "." + sessionID + ".votes"
}

// Publisher announces that a session's votes changed.
type Publisher interface {
	VoteChanged(ctx context.Context, sessionID string) error
}

// Nop drops every notification. Used when no NATS URL is configured.
type Nop struct{}

func (Nop) VoteChanged(context.Context, string) error { return nil }

// Connect dials NATS and keeps reconnecting forever.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("pick-together"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// NATSPublisher publishes change signals on a NATS connection.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) VoteChanged(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(sessionID), nil); err != nil {
		return fmt.Errorf("failed to publish vote change: %w", err)
	}
	return nil
}

// Source is a convergence.ChangeSource fed by NATS subscriptions.
type Source struct {
	nc *nats.Conn
}

var _ convergence.ChangeSource = (*Source)(nil)

func NewSource(nc *nats.Conn) *Source {
	return &Source{nc: nc}
}

func (s *Source) Name() string { return "nats" }

// Watch subscribes to the session's subject until ctx is done.
func (s *Source) Watch(ctx context.Context, sessionID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	var mu sync.Mutex
	closed := false

	sub, err := s.nc.Subscribe(Subject(sessionID), func(*nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			convergence.Signal(ch)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()

		// A callback may still be running after Unsubscribe returns.
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch, nil
}
