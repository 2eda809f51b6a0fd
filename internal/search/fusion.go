// Package search provides hybrid retrieval combining semantic vector
// search and BM25 keyword search, fused with Reciprocal Rank Fusion.
package search

import (
	"sort"
)

// rrfConstant is the RRF smoothing parameter. k=60 is the standard
// choice across retrieval systems.
const rrfConstant = 60

// fusedHit is an id with its accumulated RRF score and per-list ranks.
type fusedHit struct {
	ID          string
	Score       float64
	VectorRank  int // 1-indexed, 0 if absent
	KeywordRank int // 1-indexed, 0 if absent
}

// fuseRanked combines two ranked id lists with Reciprocal Rank Fusion.
//
// Each list contributes 1/(k + rank + 1) per document, rank 0-based, so
// the top hit of a list is worth 1/61. Ids in both lists sum their
// contributions. Scores are raw RRF values, not normalized: callers
// compare them only against each other.
//
// Sorted by score descending, ties broken by id ascending for
// deterministic output.
func fuseRanked(vectorIDs, keywordIDs []string) []fusedHit {
	if len(vectorIDs) == 0 && len(keywordIDs) == 0 {
		return []fusedHit{}
	}

	hits := make(map[string]*fusedHit, len(vectorIDs)+len(keywordIDs))
	get := func(id string) *fusedHit {
		if h, ok := hits[id]; ok {
			return h
		}
		h := &fusedHit{ID: id}
		hits[id] = h
		return h
	}

	for rank, id := range vectorIDs {
		h := get(id)
		h.VectorRank = rank + 1
		h.Score += 1.0 / float64(rrfConstant+rank+1)
	}
	for rank, id := range keywordIDs {
		h := get(id)
		h.KeywordRank = rank + 1
		h.Score += 1.0 / float64(rrfConstant+rank+1)
	}

	fused := make([]fusedHit, 0, len(hits))
	for _, h := range hits {
		fused = append(fused, *h)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})

	return fused
}
