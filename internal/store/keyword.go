package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	recallerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/memory"
)

// BleveKeywordIndex wraps bleve v2 for BM25 keyword search over entry
// content and keywords.
type BleveKeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ KeywordIndex = (*BleveKeywordIndex)(nil)

// keywordDocument is the bleve document shape. Keywords are indexed into
// the same searchable space as content.
type keywordDocument struct {
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
}

// OpenKeywordIndex opens (or creates) the keyword index at path.
// An empty path creates an in-memory index.
func OpenKeywordIndex(path string) (*BleveKeywordIndex, error) {
	indexMapping := buildIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, recallerrors.StorageError("create index directory", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, recallerrors.StorageError("open keyword index", err)
	}

	return &BleveKeywordIndex{index: idx, path: path}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name

	keywordsField := bleve.NewTextFieldMapping()
	keywordsField.Analyzer = standard.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", contentField)
	doc.AddFieldMappingsAt("keywords", keywordsField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = doc
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Add indexes an entry's content and keywords under its id.
// Re-adding an id replaces the previous document.
func (b *BleveKeywordIndex) Add(ctx context.Context, entry *memory.Entry) error {
	if entry == nil || entry.ID == "" {
		return recallerrors.ValidationError("entry with id required", nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return recallerrors.StorageError("keyword index is closed", nil)
	}

	doc := keywordDocument{
		Content:  entry.Content,
		Keywords: entry.Metadata.Keywords,
	}
	if err := b.index.Index(entry.ID, doc); err != nil {
		return recallerrors.StorageError(fmt.Sprintf("index entry %s", entry.ID), err)
	}
	return nil
}

// Delete removes a document by id. Deleting an absent id is a no-op.
func (b *BleveKeywordIndex) Delete(ctx context.Context, id string) error {
	if id == "" {
		return recallerrors.ValidationError("id must not be empty", nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return recallerrors.StorageError("keyword index is closed", nil)
	}

	if err := b.index.Delete(id); err != nil {
		return recallerrors.StorageError(fmt.Sprintf("delete entry %s", id), err)
	}
	return nil
}

// Search returns ranked matches with scores normalized to [0, 1] by the
// best hit's score. Empty queries yield empty results, never an error.
func (b *BleveKeywordIndex) Search(ctx context.Context, text string, limit int) ([]KeywordHit, error) {
	if strings.TrimSpace(text) == "" || limit <= 0 {
		return []KeywordHit{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, recallerrors.StorageError("keyword index is closed", nil)
	}

	contentQuery := bleve.NewMatchQuery(text)
	contentQuery.SetField("content")
	keywordsQuery := bleve.NewMatchQuery(text)
	keywordsQuery.SetField("keywords")
	query := bleve.NewDisjunctionQuery(contentQuery, keywordsQuery)

	req := bleve.NewSearchRequest(query)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, recallerrors.StorageError("keyword search", err)
	}

	hits := make([]KeywordHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		score := hit.Score
		if result.MaxScore > 0 {
			score = hit.Score / result.MaxScore
		}
		hits = append(hits, KeywordHit{ID: hit.ID, Score: score})
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (b *BleveKeywordIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, recallerrors.StorageError("keyword index is closed", nil)
	}

	n, err := b.index.DocCount()
	if err != nil {
		return 0, recallerrors.StorageError("count documents", err)
	}
	return int(n), nil
}

// Close closes the underlying index.
func (b *BleveKeywordIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
