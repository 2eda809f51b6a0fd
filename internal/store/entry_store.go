package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/recallkb/recall/internal/embed"
	recallerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/hash"
	"github.com/recallkb/recall/internal/memory"
)

// EntryStore implements VectorStore on SQLite rows plus an in-memory HNSW
// vector index. The dedup cache maps content hash to entry id and is
// process-local: it is rebuilt on open and cleared on close.
type EntryStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	embedder embed.Embedder
	vectors  *vectorIndex
	dedup    map[string]string // content hash -> entry id
	closed   bool
}

// Verify interface implementation at compile time.
var _ VectorStore = (*EntryStore)(nil)

const entrySchema = `
CREATE TABLE IF NOT EXISTS entries (
	id            TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	content_hash  TEXT NOT NULL UNIQUE,
	category      TEXT NOT NULL,
	source        TEXT NOT NULL,
	file_path     TEXT NOT NULL DEFAULT '',
	section_title TEXT NOT NULL DEFAULT '',
	keywords      TEXT NOT NULL DEFAULT '[]',
	ref_count     INTEGER NOT NULL DEFAULT 0,
	promoted      INTEGER NOT NULL DEFAULT 0,
	promoted_at   TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_file_path ON entries(file_path);
CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(category);
`

// OpenEntryStore opens (or creates) the entry store at path.
// If path is empty an in-memory database is used. The vector index is
// rebuilt from the stored rows, so it can never drift from SQLite.
func OpenEntryStore(path string, embedder embed.Embedder) (*EntryStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open entry store: %w", err)
	}

	// Single writer keeps SQLite lock contention out of the picture.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(entrySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &EntryStore{
		db:       db,
		embedder: embedder,
		vectors:  newVectorIndex(embedder.Dimensions()),
		dedup:    make(map[string]string),
	}

	if err := s.rebuild(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// rebuild loads the dedup cache and the vector index from SQLite.
func (s *EntryStore) rebuild(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, content_hash FROM entries`)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, content, contentHash string
		if err := rows.Scan(&id, &content, &contentHash); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}

		vec, err := s.embedder.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("embed entry %s: %w", id, err)
		}
		if err := s.vectors.add(id, vec); err != nil {
			return err
		}
		s.dedup[contentHash] = id
	}

	return rows.Err()
}

// Add stores an entry after content-hash dedup. Identical content returns
// the already-stored entry unchanged.
func (s *EntryStore) Add(ctx context.Context, entry *memory.Entry) (*memory.Entry, error) {
	if entry == nil {
		return nil, recallerrors.ValidationError("entry must not be nil", nil)
	}
	if err := memory.ValidateContent(entry.Content); err != nil {
		return nil, err
	}
	if entry.Metadata.Category == "" {
		entry.Metadata.Category = memory.CategoryGeneral
	}
	if !memory.ValidCategory(entry.Metadata.Category) {
		return nil, recallerrors.New(recallerrors.ErrCodeInvalidCategory,
			fmt.Sprintf("unknown category %q", entry.Metadata.Category), nil)
	}

	contentHash := hash.Content(entry.Content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, recallerrors.StorageError("store is closed", nil)
	}

	if existingID, ok := s.dedup[contentHash]; ok {
		return s.getLocked(ctx, existingID)
	}

	// The cache may have been cleared; the content_hash column stays
	// authoritative.
	var existingID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM entries WHERE content_hash = ?`, contentHash).Scan(&existingID)
	if err == nil {
		s.dedup[contentHash] = existingID
		return s.getLocked(ctx, existingID)
	}
	if err != sql.ErrNoRows {
		return nil, recallerrors.StorageError("check content hash", err)
	}

	now := time.Now().UTC()
	stored := *entry
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	keywords, err := json.Marshal(keywordsOrEmpty(stored.Metadata.Keywords))
	if err != nil {
		return nil, recallerrors.StorageError("encode keywords", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (
			id, content, content_hash, category, source, file_path,
			section_title, keywords, ref_count, promoted, promoted_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Content, contentHash,
		string(stored.Metadata.Category), string(stored.Metadata.Source),
		stored.Metadata.FilePath, stored.Metadata.SectionTitle,
		string(keywords), stored.Metadata.ReferenceCount,
		boolToInt(stored.Metadata.Promoted), timePtrToString(stored.Metadata.PromotedAt),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, recallerrors.StorageError("insert entry", err)
	}

	vec, err := s.embedder.Embed(ctx, stored.Content)
	if err != nil {
		return nil, recallerrors.StorageError("embed entry", err)
	}
	if err := s.vectors.add(stored.ID, vec); err != nil {
		return nil, recallerrors.StorageError("index vector", err)
	}

	s.dedup[contentHash] = stored.ID
	return &stored, nil
}

// Get returns the entry by id, or nil when absent.
func (s *EntryStore) Get(ctx context.Context, id string) (*memory.Entry, error) {
	if err := memory.ValidateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, recallerrors.StorageError("store is closed", nil)
	}
	return s.getLocked(ctx, id)
}

func (s *EntryStore) getLocked(ctx context.Context, id string) (*memory.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, category, source, file_path, section_title,
		       keywords, ref_count, promoted, promoted_at, created_at, updated_at
		FROM entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, recallerrors.StorageError("read entry", err)
	}
	return entry, nil
}

// Delete removes an entry. Returns false when the id was absent.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := memory.ValidateID(id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, recallerrors.StorageError("store is closed", nil)
	}

	var contentHash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM entries WHERE id = ?`, id).Scan(&contentHash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, recallerrors.StorageError("read entry hash", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return false, recallerrors.StorageError("delete entry", err)
	}

	s.vectors.remove(id)
	delete(s.dedup, contentHash)
	return true, nil
}

// DeleteByFilePath removes all entries sourced from a file path.
func (s *EntryStore) DeleteByFilePath(ctx context.Context, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, recallerrors.StorageError("store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash FROM entries WHERE file_path = ?`, path)
	if err != nil {
		return 0, recallerrors.StorageError("list entries by path", err)
	}

	type victim struct{ id, contentHash string }
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.id, &v.contentHash); err != nil {
			rows.Close()
			return 0, recallerrors.StorageError("scan entry", err)
		}
		victims = append(victims, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, recallerrors.StorageError("iterate entries", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE file_path = ?`, path); err != nil {
		return 0, recallerrors.StorageError("delete entries by path", err)
	}

	for _, v := range victims {
		s.vectors.remove(v.id)
		delete(s.dedup, v.contentHash)
	}
	return len(victims), nil
}

// Search returns the nearest entries to the query text.
// An empty query yields an empty result, never an error.
func (s *EntryStore) Search(ctx context.Context, text string, limit int) ([]ScoredEntry, error) {
	if strings.TrimSpace(text) == "" || limit <= 0 {
		return []ScoredEntry{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, recallerrors.StorageError("store is closed", nil)
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, recallerrors.StorageError("embed query", err)
	}

	hits, err := s.vectors.search(vec, limit)
	if err != nil {
		return nil, recallerrors.StorageError("vector search", err)
	}

	results := make([]ScoredEntry, 0, len(hits))
	for _, hit := range hits {
		entry, err := s.getLocked(ctx, hit.id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue // row vanished under a concurrent delete
		}
		results = append(results, ScoredEntry{Entry: entry, Score: hit.score})
	}
	return results, nil
}

// List returns entries ordered by recency, optionally filtered by category.
func (s *EntryStore) List(ctx context.Context, category memory.Category, limit int) ([]*memory.Entry, error) {
	if category != "" && !memory.ValidCategory(category) {
		return nil, recallerrors.New(recallerrors.ErrCodeInvalidCategory,
			fmt.Sprintf("unknown category %q", category), nil)
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, recallerrors.StorageError("store is closed", nil)
	}

	query := `
		SELECT id, content, category, source, file_path, section_title,
		       keywords, ref_count, promoted, promoted_at, created_at, updated_at
		FROM entries`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recallerrors.StorageError("list entries", err)
	}
	defer rows.Close()

	var entries []*memory.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, recallerrors.StorageError("scan entry", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// IncrementRef bumps an entry's reference count in place.
func (s *EntryStore) IncrementRef(ctx context.Context, id string) error {
	if err := memory.ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return recallerrors.StorageError("store is closed", nil)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET ref_count = ref_count + 1, updated_at = ?
		WHERE id = ?`, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return recallerrors.StorageError("increment reference count", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return recallerrors.StorageError(fmt.Sprintf("entry %s not found", id), nil)
	}
	return nil
}

// Promote marks an entry as promoted and stamps the promotion time.
func (s *EntryStore) Promote(ctx context.Context, id string) error {
	if err := memory.ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return recallerrors.StorageError("store is closed", nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET promoted = 1, promoted_at = ?, updated_at = ?
		WHERE id = ?`, now, now, id)
	if err != nil {
		return recallerrors.StorageError("promote entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return recallerrors.StorageError(fmt.Sprintf("entry %s not found", id), nil)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *EntryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, recallerrors.StorageError("store is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, recallerrors.StorageError("count entries", err)
	}
	return count, nil
}

// ClearCache drops the dedup cache. Called on session disconnect; the
// cache is only valid within one connected session.
func (s *EntryStore) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dedup = make(map[string]string)
}

// Close clears the cache and closes the database.
func (s *EntryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.dedup = nil
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanEntry.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*memory.Entry, error) {
	var (
		e          memory.Entry
		category   string
		source     string
		keywords   string
		promoted   int
		promotedAt sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(&e.ID, &e.Content, &category, &source,
		&e.Metadata.FilePath, &e.Metadata.SectionTitle, &keywords,
		&e.Metadata.ReferenceCount, &promoted, &promotedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.Metadata.Category = memory.Category(category)
	e.Metadata.Source = memory.Source(source)
	e.Metadata.Promoted = promoted != 0

	if err := json.Unmarshal([]byte(keywords), &e.Metadata.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	if len(e.Metadata.Keywords) == 0 {
		e.Metadata.Keywords = nil
	}

	if promotedAt.Valid && promotedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, promotedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse promoted_at: %w", err)
		}
		e.Metadata.PromotedAt = &t
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &e, nil
}

func keywordsOrEmpty(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timePtrToString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
