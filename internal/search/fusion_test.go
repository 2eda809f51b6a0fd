package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRanked_WorkedExample(t *testing.T) {
	// Vector hits [A, B], keyword hits [B, C]. B appears in both lists
	// and must outrank A despite A being the top vector hit.
	fused := fuseRanked([]string{"A", "B"}, []string{"B", "C"})

	require.Len(t, fused, 3)
	assert.Equal(t, "B", fused[0].ID)
	assert.Equal(t, "A", fused[1].ID)
	assert.Equal(t, "C", fused[2].ID)

	// Scores are raw RRF sums, not normalized.
	assert.InDelta(t, 1.0/62+1.0/61, fused[0].Score, 1e-12)
	assert.InDelta(t, 1.0/61, fused[1].Score, 1e-12)
	assert.InDelta(t, 1.0/62, fused[2].Score, 1e-12)
}

func TestFuseRanked_RecordsPerListRanks(t *testing.T) {
	fused := fuseRanked([]string{"A", "B"}, []string{"B", "C"})

	byID := make(map[string]fusedHit, len(fused))
	for _, h := range fused {
		byID[h.ID] = h
	}

	assert.Equal(t, 1, byID["A"].VectorRank)
	assert.Equal(t, 0, byID["A"].KeywordRank)
	assert.Equal(t, 2, byID["B"].VectorRank)
	assert.Equal(t, 1, byID["B"].KeywordRank)
	assert.Equal(t, 0, byID["C"].VectorRank)
	assert.Equal(t, 2, byID["C"].KeywordRank)
}

func TestFuseRanked_EmptyLists(t *testing.T) {
	fused := fuseRanked(nil, nil)
	assert.NotNil(t, fused)
	assert.Empty(t, fused)
}

func TestFuseRanked_SingleList(t *testing.T) {
	fused := fuseRanked([]string{"A", "B", "C"}, nil)

	require.Len(t, fused, 3)
	assert.Equal(t, "A", fused[0].ID)
	assert.Equal(t, "B", fused[1].ID)
	assert.Equal(t, "C", fused[2].ID)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
}

func TestFuseRanked_TieBreaksByID(t *testing.T) {
	// Same rank in opposite lists gives identical scores; order must
	// still be deterministic.
	fused := fuseRanked([]string{"z"}, []string{"a"})

	require.Len(t, fused, 2)
	assert.Equal(t, fused[0].Score, fused[1].Score)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "z", fused[1].ID)
}
