// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"context"
	"fmt"

	"github.com/danielhkuo/pick-together/models"
)

// Snapshot is one consistent-enough read of everything completion and
// match detection need. Reads are not transactional; a vote arriving
// mid-read is picked up by the next check.
type Snapshot struct {
	Session models.Session
	Voters  []string
	Catalog []models.Candidate
	Votes   []models.Vote
}

// VoterIDs extracts the voter IDs of the enrolled members.
func VoterIDs(members []models.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.VoterID
	}
	return ids
}

// Tally counts, per enrolled voter, the distinct catalog candidates they
// voted on. Votes by non-members or on candidates outside the catalog are
// ignored. Every enrolled voter has an entry, even with zero votes.
func Tally(voters []string, catalog []models.Candidate, votes []models.Vote) map[string]int {
	inCatalog := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		inCatalog[c.ID] = true
	}

	seen := make(map[string]map[string]bool, len(voters))
	for _, v := range voters {
		seen[v] = make(map[string]bool)
	}
	for _, v := range votes {
		cands, enrolled := seen[v.VoterID]
		if !enrolled || !inCatalog[v.CandidateID] {
			continue
		}
		cands[v.CandidateID] = true
	}

	tally := make(map[string]int, len(seen))
	for voter, cands := range seen {
		tally[voter] = len(cands)
	}
	return tally
}

// Complete reports whether each of the voters has cast exactly
// candidateCount votes. An empty voter set or an empty catalog is never
// complete, so a degenerate session cannot converge on nothing.
func Complete(voters []string, candidateCount int, tally map[string]int) bool {
	if len(voters) == 0 || candidateCount == 0 {
		return false
	}
	for _, v := range voters {
		if tally[v] != candidateCount {
			return false
		}
	}
	return true
}

// IsComplete is Complete over raw votes.
func IsComplete(voters []string, catalog []models.Candidate, votes []models.Vote) bool {
	return Complete(voters, len(catalog), Tally(voters, catalog, votes))
}

// ComputeProgress summarizes completion for display.
func ComputeProgress(voters []string, catalog []models.Candidate, votes []models.Vote) models.Progress {
	tally := Tally(voters, catalog, votes)
	done := 0
	for _, v := range voters {
		if tally[v] == len(catalog) && len(catalog) > 0 {
			done++
		}
	}
	return models.Progress{
		Voters:     len(voters),
		Candidates: len(catalog),
		VotesBy:    tally,
		VotersDone: done,
		Complete:   Complete(voters, len(catalog), tally),
	}
}

// load fetches a fresh snapshot of the session.
func (e *Engine) load(ctx context.Context, sessionID string) (Snapshot, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	members, err := e.store.ListMembers(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list members: %w", err)
	}
	catalog, err := e.store.ListCandidates(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list candidates: %w", err)
	}
	votes, err := e.store.ListVotes(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list votes: %w", err)
	}

	return Snapshot{
		Session: session,
		Voters:  VoterIDs(members),
		Catalog: catalog,
		Votes:   votes,
	}, nil
}

// Progress is the pull-model completion check: it reads fresh data and
// evaluates it. It has no side effects and may be called any number of times.
func (e *Engine) Progress(ctx context.Context, sessionID string) (models.Progress, error) {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return models.Progress{}, err
	}
	p := ComputeProgress(snap.Voters, snap.Catalog, snap.Votes)
	e.metrics.CompletionChecked(p.Complete)
	return p, nil
}
