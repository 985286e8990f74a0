package services

import (
	"slices"

	"github.com/arah-ai/arah/internal/core/domain"
)

// DefaultRRFK is the reciprocal rank fusion constant.
const DefaultRRFK = 60

// RRFScore is the contribution of one 1-based rank.
func RRFScore(k, rank int) float64 {
	return 1.0 / float64(k+rank)
}

// ReciprocalRankFusion merges two ranked lists. Each candidate scores
// Σ 1/(k + rank) over the lists containing it, identified by DedupKey. The
// result is sorted by fused score, ties in first-seen order, and capped at
// limit.
func ReciprocalRankFusion(dense, sparse []domain.Candidate, k, limit int) []domain.Candidate {
	if k <= 0 {
		k = DefaultRRFK
	}
	index := make(map[string]int, len(dense)+len(sparse))
	merged := make([]domain.Candidate, 0, len(dense)+len(sparse))

	add := func(list []domain.Candidate) {
		for rank, c := range list {
			key := c.DedupKey()
			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				c.FusedScore = 0
				merged = append(merged, c)
				i = len(merged) - 1
			} else {
				if c.SparseScore != nil {
					merged[i].SparseScore = c.SparseScore
				}
				if merged[i].DenseScore == 0 {
					merged[i].DenseScore = c.DenseScore
				}
			}
			merged[i].FusedScore += RRFScore(k, rank+1)
		}
	}
	add(dense)
	add(sparse)

	slices.SortStableFunc(merged, func(a, b domain.Candidate) int {
		switch {
		case a.FusedScore > b.FusedScore:
			return -1
		case a.FusedScore < b.FusedScore:
			return 1
		default:
			return 0
		}
	})
	return merged[:min(max(limit, 1), len(merged))]
}

// DedupCandidates drops candidates repeating an earlier DedupKey.
func DedupCandidates(cands []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		key := c.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
