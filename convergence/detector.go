// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package convergence

import (
	"sort"
	"time"

	"github.com/danielhkuo/pick-together/models"
)

type candidateTally struct {
	candidate models.Candidate
	likes     int
	strong    int
}

// DetectMatches returns the candidates every enrolled voter liked, ranked by
// strong-like count (desc), like count (desc), then candidate ID (asc).
//
// Only votes by enrolled voters on catalog candidates count. If the input
// holds several votes for one (voter, candidate) pair the last one wins. A
// strong preference only counts on a liked vote. The result is empty, not
// nil, when nothing matches. DetectMatches is pure.
func DetectMatches(voters []string, catalog []models.Candidate, votes []models.Vote, computedAt time.Time) []models.Match {
	matches := []models.Match{}

	enrolled := make(map[string]bool, len(voters))
	for _, v := range voters {
		enrolled[v] = true
	}
	n := len(enrolled)
	if n == 0 || len(catalog) == 0 {
		return matches
	}

	tallies := make(map[string]*candidateTally, len(catalog))
	for _, c := range catalog {
		tallies[c.ID] = &candidateTally{candidate: c}
	}

	type key struct{ voter, candidate string }
	latest := make(map[key]models.Vote, len(votes))
	for _, v := range votes {
		if !enrolled[v.VoterID] {
			continue
		}
		if _, ok := tallies[v.CandidateID]; !ok {
			continue
		}
		latest[key{v.VoterID, v.CandidateID}] = v
	}

	for k, v := range latest {
		if !v.Liked {
			continue
		}
		t := tallies[k.candidate]
		t.likes++
		if v.StronglyLiked {
			t.strong++
		}
	}

	var qualifying []*candidateTally
	for _, t := range tallies {
		if t.likes == n {
			qualifying = append(qualifying, t)
		}
	}

	sort.Slice(qualifying, func(i, j int) bool {
		a, b := qualifying[i], qualifying[j]

		// 1. More strong likes wins
		if a.strong != b.strong {
			return a.strong > b.strong
		}

		// 2. More likes wins (always n today; kept for a relaxed match rule)
		if a.likes != b.likes {
			return a.likes > b.likes
		}

		// 3. Stable tie-breaking by candidate ID (ascending)
		return a.candidate.ID < b.candidate.ID
	})

	for i, t := range qualifying {
		matches = append(matches, models.Match{
			CandidateID:   t.candidate.ID,
			Rank:          i + 1, // 1-indexed ranking
			StrongCount:   t.strong,
			LikeCount:     t.likes,
			Unanimous:     t.strong == n,
			Payload:       snapshotPayload(t.candidate),
			SchemaVersion: models.MatchSchemaVersion,
			ComputedAt:    computedAt,
		})
	}

	return matches
}

// snapshotPayload copies the candidate's payload so later catalog edits
// cannot reach into a computed match.
func snapshotPayload(c models.Candidate) []byte {
	if len(c.Payload) == 0 {
		return nil
	}
	return append([]byte(nil), c.Payload...)
}
