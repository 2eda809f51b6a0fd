// Package store provides the persistence layer: the SQLite-backed entry
// store with its HNSW vector index, and the bleve keyword index.
package store

import (
	"context"

	"github.com/recallkb/recall/internal/memory"
)

// ScoredEntry pairs an entry with a relevance score.
type ScoredEntry struct {
	Entry *memory.Entry
	Score float64
}

// KeywordHit is a keyword index match. Score is normalized to [0, 1].
type KeywordHit struct {
	ID    string
	Score float64
}

// VectorStore owns entries and their embeddings. Add dedups by content
// hash before insert: re-adding identical content returns the existing
// entry unchanged.
type VectorStore interface {
	// Add stores an entry, assigning an id and timestamps.
	Add(ctx context.Context, entry *memory.Entry) (*memory.Entry, error)

	// Get returns the entry by id, or nil when absent.
	Get(ctx context.Context, id string) (*memory.Entry, error)

	// Delete removes an entry. Returns false when the id was absent.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByFilePath removes all entries for a source file and
	// returns how many were removed.
	DeleteByFilePath(ctx context.Context, path string) (int, error)

	// Search returns the nearest entries to the query text.
	Search(ctx context.Context, text string, limit int) ([]ScoredEntry, error)

	// List returns entries, optionally filtered by category.
	List(ctx context.Context, category memory.Category, limit int) ([]*memory.Entry, error)

	// IncrementRef bumps an entry's reference count by one.
	IncrementRef(ctx context.Context, id string) error

	// Promote marks an entry as promoted.
	Promote(ctx context.Context, id string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}

// KeywordIndex mirrors entries for BM25 keyword search. It is an
// optimization, not a source of truth: the engine resolves its ids
// against the VectorStore and drops stale ones.
type KeywordIndex interface {
	// Add indexes an entry's content under its id.
	Add(ctx context.Context, entry *memory.Entry) error

	// Delete removes a document by id.
	Delete(ctx context.Context, id string) error

	// Search returns ranked matches with scores normalized to [0, 1].
	// Malformed or empty queries yield empty results, never an error.
	Search(ctx context.Context, text string, limit int) ([]KeywordHit, error)
}
