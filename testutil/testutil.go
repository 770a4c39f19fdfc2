// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/pick-together/auth"
	"github.com/danielhkuo/pick-together/cliparse"
	"github.com/danielhkuo/pick-together/db"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every :memory: connection is its own database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   ":memory:",
		DatabaseType:  "sqlite",
		HostKeySalt:   "test-host-salt",
		LogLevel:      "error",
		SessionTTL:    cliparse.DefaultSessionTTL,
		PollInterval:  20 * time.Millisecond,
		Debounce:      5 * time.Millisecond,
		WaitTimeout:   2 * time.Second,
		SweepInterval: time.Minute,
	}
}

// CreateTestSession inserts a session with one candidate per ID and returns
// its ID, share code and host key.
// status should be "waiting", "active", "converged", or "expired"
func CreateTestSession(t *testing.T, db *sql.DB, cfg cliparse.Config, status string, candidateIDs ...string) (sessionID, code, hostKey string) {
	t.Helper()

	sessionID = auth.GenerateID()
	code, err := auth.GenerateSessionCode()
	if err != nil {
		t.Fatalf("Failed to generate code: %v", err)
	}
	hostKey = auth.GenerateHostKey(sessionID, cfg.HostKeySalt)

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO swipe_session (id, code, title, host_name, status, created_at, expires_at)
		VALUES ($1, $2, 'Test Session', 'TestHost', $3, $4, $5)
	`, sessionID, code, status, now, now.Add(cfg.SessionTTL))
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	for i, id := range candidateIDs {
		_, err := db.Exec(`
			INSERT INTO candidate (session_id, id, position, name, payload)
			VALUES ($1, $2, $3, $4, $5)
		`, sessionID, id, i, "Candidate "+id, fmt.Sprintf(`{"label":%q}`, id))
		if err != nil {
			t.Fatalf("Failed to create test candidate: %v", err)
		}
	}

	return sessionID, code, hostKey
}

// ExpireTestSession moves a session's deadline into the past without
// touching its stored status.
func ExpireTestSession(t *testing.T, db *sql.DB, sessionID string) {
	t.Helper()

	_, err := db.Exec(`UPDATE swipe_session SET expires_at = $2 WHERE id = $1`,
		sessionID, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Failed to expire test session: %v", err)
	}
}

// AddTestMember enrolls a voter and returns the voter ID and token
func AddTestMember(t *testing.T, db *sql.DB, sessionID, displayName string) (voterID, voterToken string) {
	t.Helper()

	voterID = auth.GenerateID()
	voterToken, err := auth.GenerateVoterToken()
	if err != nil {
		t.Fatalf("Failed to generate voter token: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO member (session_id, voter_id, display_name, voter_token, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sessionID, voterID, displayName, voterToken, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test member: %v", err)
	}

	return voterID, voterToken
}

// CastTestVote records a vote directly in the database
func CastTestVote(t *testing.T, db *sql.DB, sessionID, voterID, candidateID string, liked, stronglyLiked bool) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO vote (session_id, voter_id, candidate_id, liked, strongly_liked, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sessionID, voterID, candidateID, liked, stronglyLiked, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// SessionStatus reads the stored status of a session
func SessionStatus(t *testing.T, db *sql.DB, sessionID string) string {
	t.Helper()

	var status string
	if err := db.QueryRow(`SELECT status FROM swipe_session WHERE id = $1`, sessionID).Scan(&status); err != nil {
		t.Fatalf("Failed to read session status: %v", err)
	}
	return status
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
