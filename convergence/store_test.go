// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danielhkuo/pick-together/models"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu         sync.Mutex
	sessions   map[string]models.Session
	members    map[string][]models.Member
	candidates map[string][]models.Candidate
	votes      map[string]map[[2]string]models.Vote
	matches    map[string]map[string]models.Match

	commits    int
	failCommit error // returned once by the next CommitConvergence
	failReads  error
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   make(map[string]models.Session),
		members:    make(map[string][]models.Member),
		candidates: make(map[string][]models.Candidate),
		votes:      make(map[string]map[[2]string]models.Vote),
		matches:    make(map[string]map[string]models.Match),
	}
}

func (s *memStore) addSession(id string, status string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = models.Session{
		ID:        id,
		Code:      "CODE" + id,
		Status:    status,
		CreatedAt: expiresAt.Add(-2 * time.Hour),
		ExpiresAt: expiresAt,
	}
}

func (s *memStore) addMembers(sessionID string, voters ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range voters {
		s.members[sessionID] = append(s.members[sessionID], models.Member{VoterID: v, DisplayName: v})
	}
}

func (s *memStore) addCandidates(sessionID string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.candidates[sessionID] = append(s.candidates[sessionID], models.Candidate{
			ID:       id,
			Position: len(s.candidates[sessionID]),
			Name:     "Restaurant " + id,
			Payload:  []byte(`{"name":"` + id + `"}`),
		})
	}
}

func (s *memStore) vote(sessionID, voter, candidate string, liked, strong bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.votes[sessionID] == nil {
		s.votes[sessionID] = make(map[[2]string]models.Vote)
	}
	s.votes[sessionID][[2]string{voter, candidate}] = models.Vote{
		VoterID:       voter,
		CandidateID:   candidate,
		Liked:         liked,
		StronglyLiked: strong,
	}
}

func (s *memStore) status(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID].Status
}

func (s *memStore) GetSession(_ context.Context, sessionID string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return models.Session{}, s.failReads
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *memStore) ListMembers(_ context.Context, sessionID string) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Member(nil), s.members[sessionID]...), nil
}

func (s *memStore) ListCandidates(_ context.Context, sessionID string) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Candidate(nil), s.candidates[sessionID]...), nil
}

func (s *memStore) ListVotes(_ context.Context, sessionID string) ([]models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	votes := make([]models.Vote, 0, len(s.votes[sessionID]))
	for _, v := range s.votes[sessionID] {
		votes = append(votes, v)
	}
	return votes, nil
}

func (s *memStore) ListMatches(_ context.Context, sessionID string) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := []models.Match{}
	for _, m := range s.matches[sessionID] {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Rank < matches[j].Rank })
	return matches, nil
}

func (s *memStore) CommitConvergence(_ context.Context, sessionID string, matches []models.Match, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCommit != nil {
		err := s.failCommit
		s.failCommit = nil
		return err
	}
	sess := s.sessions[sessionID]
	switch sess.Status {
	case models.StatusExpired:
		return ErrSessionExpired
	case models.StatusConverged:
		return nil
	}

	s.commits++
	s.matches[sessionID] = make(map[string]models.Match)
	for _, m := range matches {
		s.matches[sessionID][m.CandidateID] = m
	}
	sess.Status = models.StatusConverged
	sess.ConvergedAt = &at
	s.sessions[sessionID] = sess
	return nil
}

func (s *memStore) TransitionStatus(_ context.Context, sessionID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if sess.Status != from {
		return false, nil
	}
	sess.Status = to
	s.sessions[sessionID] = sess
	return true, nil
}

func (s *memStore) ListOpenSessions(_ context.Context) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []models.Session
	for _, sess := range s.sessions {
		if !IsTerminal(sess.Status) {
			open = append(open, sess)
		}
	}
	return open, nil
}

// recordingMetrics counts engine events.
type recordingMetrics struct {
	mu       sync.Mutex
	checks   int
	outcomes map[string]int
	triggers map[string]int
	expired  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[string]int), triggers: make(map[string]int)}
}

func (r *recordingMetrics) CompletionChecked(bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks++
}

func (r *recordingMetrics) Converged(outcome string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *recordingMetrics) TriggerFired(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[source]++
}

func (r *recordingMetrics) SessionsExpired(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired += n
}

func (r *recordingMetrics) checkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checks
}

var _ Store = (*memStore)(nil)
var _ Metrics = (*recordingMetrics)(nil)
