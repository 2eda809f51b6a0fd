package store

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex wraps coder/hnsw with string ids and cosine scoring.
// It is rebuilt from the entry rows on open, so it needs no persistence
// of its own and can never drift from the SQLite store.
type vectorIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	idMap   map[string]uint64 // entry id -> internal key
	keyMap  map[uint64]string // internal key -> entry id
	nextKey uint64
}

func newVectorIndex(dimensions int) *vectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 32
	graph.Ml = 0.25

	return &vectorIndex{
		graph:      graph,
		dimensions: dimensions,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
	}
}

// add inserts a vector under id, replacing any previous mapping.
// Replacement is lazy: the old node stays in the graph but is orphaned
// from the id maps and skipped in results.
func (v *vectorIndex) add(id string, vec []float32) error {
	if len(vec) != v.dimensions {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", v.dimensions, len(vec))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if oldKey, exists := v.idMap[id]; exists {
		delete(v.keyMap, oldKey)
		delete(v.idMap, id)
	}

	key := v.nextKey
	v.nextKey++

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	v.graph.Add(hnsw.MakeNode(key, normalized))
	v.idMap[id] = key
	v.keyMap[key] = id
	return nil
}

// remove orphans the id's node. Lazy deletion avoids graph repair on
// every file re-index.
func (v *vectorIndex) remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, exists := v.idMap[id]; exists {
		delete(v.keyMap, key)
		delete(v.idMap, id)
	}
}

// vectorHit is a raw nearest-neighbor match.
type vectorHit struct {
	id    string
	score float64
}

// search returns up to k nearest ids with similarity scores in [0, 1].
func (v *vectorIndex) search(query []float32, k int) ([]vectorHit, error) {
	if len(query) != v.dimensions {
		return nil, fmt.Errorf("dimension mismatch: expected %d, got %d", v.dimensions, len(query))
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph.Len() == 0 || k <= 0 {
		return []vectorHit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	// Over-ask to compensate for orphaned nodes filtered below.
	orphans := v.graph.Len() - len(v.idMap)
	nodes := v.graph.Search(normalized, k+orphans)

	hits := make([]vectorHit, 0, k)
	for _, node := range nodes {
		id, exists := v.keyMap[node.Key]
		if !exists {
			continue // lazily deleted
		}
		distance := v.graph.Distance(normalized, node.Value)
		hits = append(hits, vectorHit{
			id: id,
			// Cosine distance ranges 0..2; fold into a 0..1 score.
			score: 1.0 - float64(distance)/2.0,
		})
		if len(hits) == k {
			break
		}
	}

	return hits, nil
}

func (v *vectorIndex) count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idMap)
}

// normalizeInPlace scales a vector to unit length.
func normalizeInPlace(vec []float32) {
	var sumSquares float64
	for _, val := range vec {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] *= inv
	}
}
