// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/store"
	"github.com/danielhkuo/pick-together/testutil"
)

type testEnv struct {
	db     *sql.DB
	store  *store.SQLStore
	engine *convergence.Engine
	cfg    cliparse.Config
	pub    *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	st := store.New(db)
	return &testEnv{
		db:     db,
		store:  st,
		engine: convergence.NewEngine(st),
		cfg:    testutil.GetTestConfig(),
		pub:    &recordingPublisher{},
	}
}

func (e *testEnv) sessions() *SessionHandler {
	return NewSessionHandler(e.store, e.engine, e.cfg)
}

func (e *testEnv) votes() *VoteHandler {
	return NewVoteHandler(e.store, e.engine, e.pub, nil, e.cfg)
}

func (e *testEnv) matches(sources ...convergence.ChangeSource) *MatchHandler {
	return NewMatchHandler(e.store, e.engine, e.cfg, sources...)
}

// call runs handler for a request to /sessions/{code}/...
func call(handler http.HandlerFunc, method, path, code string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, headers)
	req.SetPathValue("code", code)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

type recordingPublisher struct {
	mu       sync.Mutex
	sessions []string
}

func (p *recordingPublisher) VoteChanged(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, sessionID)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
