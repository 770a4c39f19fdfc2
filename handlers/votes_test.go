// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/pick-together/convergence"
	"github.com/danielhkuo/pick-together/models"
	"github.com/danielhkuo/pick-together/store"
	"github.com/danielhkuo/pick-together/testutil"
)

func TestCastVote(t *testing.T) {
	env := newTestEnv(t)
	handler := env.votes()

	sessionID, code, _ := testutil.CreateTestSession(t, env.db, env.cfg, models.StatusWaiting, "X", "Y")
	_, anaToken := testutil.AddTestMember(t, env.db, sessionID, "Ana")
	testutil.AddTestMember(t, env.db, sessionID, "Ben")

	tests := []struct {
		name           string
		token          string
		body           interface{}
		expectedStatus int
	}{
		{"missing token", "", models.CastVoteRequest{CandidateID: "X", Liked: true}, http.StatusUnauthorized},
		{"unknown token", "bogus", models.CastVoteRequest{CandidateID: "X", Liked: true}, http.StatusForbidden},
		{"missing candidate", anaToken, models.CastVoteRequest{Liked: true}, http.StatusBadRequest},
		{"unknown candidate", anaToken, models.CastVoteRequest{CandidateID: "Q", Liked: true}, http.StatusBadRequest},
		{"strong without like", anaToken, models.CastVoteRequest{CandidateID: "X", StronglyLiked: true}, http.StatusBadRequest},
		{"valid like", anaToken, models.CastVoteRequest{CandidateID: "X", Liked: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.token != "" {
				headers["X-Voter-Token"] = tt.token
			}
			w := call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code, tt.body, headers)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	// Only the accepted vote is stored, published, and it opened the session
	votes, err := env.store.ListVotes(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Failed to list votes: %v", err)
	}
	if len(votes) != 1 {
		t.Errorf("Expected 1 stored vote, got %d", len(votes))
	}
	if env.pub.count() != 1 {
		t.Errorf("Expected 1 change notification, got %d", env.pub.count())
	}
	if status := testutil.SessionStatus(t, env.db, sessionID); status != models.StatusActive {
		t.Errorf("Expected first vote to activate the session, got %s", status)
	}
}

func TestCastVote_Overwrite(t *testing.T) {
	env := newTestEnv(t)
	handler := env.votes()

	sessionID, code, _ := testutil.CreateTestSession(t, env.db, env.cfg, models.StatusActive, "X", "Y")
	_, token := testutil.AddTestMember(t, env.db, sessionID, "Ana")
	testutil.AddTestMember(t, env.db, sessionID, "Ben")
	headers := map[string]string{"X-Voter-Token": token}

	call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code, models.CastVoteRequest{CandidateID: "X"}, headers)
	w := call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code,
		models.CastVoteRequest{CandidateID: "X", Liked: true, StronglyLiked: true}, headers)
	testutil.AssertStatus(t, w, http.StatusOK)

	votes, err := env.store.ListVotes(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Failed to list votes: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("Expected the second vote to replace the first, got %d votes", len(votes))
	}
	if !votes[0].Liked || !votes[0].StronglyLiked {
		t.Errorf("Expected latest vote to win, got %+v", votes[0])
	}
}

func TestCastVote_LastVoteConverges(t *testing.T) {
	env := newTestEnv(t)
	handler := env.votes()

	sessionID, code, _ := testutil.CreateTestSession(t, env.db, env.cfg, models.StatusActive, "X", "Y")
	a, _ := testutil.AddTestMember(t, env.db, sessionID, "Ana")
	_, benToken := testutil.AddTestMember(t, env.db, sessionID, "Ben")
	testutil.CastTestVote(t, env.db, sessionID, a, "X", true, true)
	testutil.CastTestVote(t, env.db, sessionID, a, "Y", true, false)

	headers := map[string]string{"X-Voter-Token": benToken}

	w := call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code,
		models.CastVoteRequest{CandidateID: "X", Liked: true, StronglyLiked: true}, headers)
	var resp models.CastVoteResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Converged || resp.Status != models.StatusActive {
		t.Errorf("Expected session still active after Ben's first vote, got %+v", resp)
	}

	w = call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code,
		models.CastVoteRequest{CandidateID: "Y", Liked: false}, headers)
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &resp)
	if !resp.Converged || !resp.Complete || resp.Status != models.StatusConverged {
		t.Errorf("Expected final vote to converge the session, got %+v", resp)
	}

	matches, err := env.store.ListMatches(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Failed to list matches: %v", err)
	}
	if len(matches) != 1 || matches[0].CandidateID != "X" || !matches[0].Unanimous {
		t.Errorf("Expected X as the single unanimous match, got %+v", matches)
	}

	t.Run("votes after convergence are rejected", func(t *testing.T) {
		w := call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code,
			models.CastVoteRequest{CandidateID: "Y", Liked: true}, headers)
		testutil.AssertStatus(t, w, http.StatusConflict)
	})
}

func TestCastVote_ExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	handler := env.votes()

	sessionID, code, _ := testutil.CreateTestSession(t, env.db, env.cfg, models.StatusActive, "X")
	_, token := testutil.AddTestMember(t, env.db, sessionID, "Ana")
	testutil.ExpireTestSession(t, env.db, sessionID)

	w := call(handler.CastVote, "PUT", "/sessions/"+code+"/votes", code,
		models.CastVoteRequest{CandidateID: "X", Liked: true}, map[string]string{"X-Voter-Token": token})
	testutil.AssertStatus(t, w, http.StatusGone)

	votes, _ := env.store.ListVotes(context.Background(), sessionID)
	if len(votes) != 0 {
		t.Errorf("Expected no votes stored on an expired session, got %d", len(votes))
	}
}

func TestCastVote_TokenScopedToSession(t *testing.T) {
	env := newTestEnv(t)
	handler := env.votes()

	first, _, _ := testutil.CreateTestSession(t, env.db, env.cfg, models.StatusActive, "X")
	_, otherCode, _ := testutil.CreateTestSession(t, env.db, env.cfg, models.StatusActive, "X")
	_, token := testutil.AddTestMember(t, env.db, first, "Ana")

	w := call(handler.CastVote, "PUT", "/sessions/"+otherCode+"/votes", otherCode,
		models.CastVoteRequest{CandidateID: "X", Liked: true}, map[string]string{"X-Voter-Token": token})
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

// A vote or join can pass the status check and then lose the race to
// convergence or the sweeper; the store's refusal must not answer 200.
func TestClosedWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		handled        bool
		expectedStatus int
	}{
		{"converged", store.ErrSessionConverged, true, http.StatusConflict},
		{"expired", convergence.ErrSessionExpired, true, http.StatusGone},
		{"wrapped expired", fmt.Errorf("vote: %w", convergence.ErrSessionExpired), true, http.StatusGone},
		{"other error", errors.New("disk full"), false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if got := closedWriteError(w, tt.err); got != tt.handled {
				t.Fatalf("Expected handled=%v, got %v", tt.handled, got)
			}
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
