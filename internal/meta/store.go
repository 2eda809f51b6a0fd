// Package meta persists the per-project change-tracking record used for
// incremental re-indexing.
//
// The record lives at <dataDir>/meta.json and is read and written as a
// whole document. A missing backing file is not an error: Load synthesizes
// defaults. All mutations act on an in-memory cache; Save is the sole
// durability point.
package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CurrentVersion is the meta record schema version.
const CurrentVersion = 1

// FileName is the record's file name inside the project data directory.
const FileName = "meta.json"

// Discovery tracks the one-time repository discovery scan.
type Discovery struct {
	Complete  bool       `json:"complete"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// Record is the persisted change-tracking state. fileHashes is the only
// authority for "skip unchanged": a missing path means "never indexed".
type Record struct {
	Version       int               `json:"version"`
	LastIndexedAt time.Time         `json:"last_indexed_at"`
	FileHashes    map[string]string `json:"file_hashes"`
	Discovery     Discovery         `json:"discovery"`
}

// Store manages the lazily loaded singleton record for one project.
type Store struct {
	mu     sync.Mutex
	path   string
	record *Record
}

// NewStore creates a store backed by <dataDir>/meta.json.
// Nothing is read until the first access.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, FileName)}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached record, reading it from disk on first use.
// A missing file yields a default record.
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Record, error) {
	if s.record != nil {
		return s.record, nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.record = defaultRecord()
		return s.record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read meta record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode meta record: %w", err)
	}
	if rec.FileHashes == nil {
		rec.FileHashes = make(map[string]string)
	}
	if rec.Version == 0 {
		rec.Version = CurrentVersion
	}

	s.record = &rec
	return s.record, nil
}

func defaultRecord() *Record {
	return &Record{
		Version:    CurrentVersion,
		FileHashes: make(map[string]string),
	}
}

// Save writes the cached record to disk, creating parent directories as
// needed. Uses temp file + rename so a crash never leaves a torn record.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create meta directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta record: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write meta record: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename meta record: %w", err)
	}

	return nil
}

// GetFileHash returns the stored hash for a relative path.
// The second return is false when the path was never indexed.
func (s *Store) GetFileHash(path string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked()
	if err != nil {
		return "", false, err
	}
	h, ok := rec.FileHashes[path]
	return h, ok, nil
}

// SetFileHash records the hash for a relative path in the cache.
func (s *Store) SetFileHash(path, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec.FileHashes[path] = hash
	return nil
}

// RemoveFileHash forgets a path, forcing re-index on the next run.
func (s *Store) RemoveFileHash(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked()
	if err != nil {
		return err
	}
	delete(rec.FileHashes, path)
	return nil
}

// Clear resets the cached record to defaults. Save persists the reset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = defaultRecord()
}

// UpdateLastIndexedAt stamps the record with the current time.
func (s *Store) UpdateLastIndexedAt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec.LastIndexedAt = time.Now().UTC()
	return nil
}

// SetDiscoveryComplete flips the discovery flag and stamps the run time.
func (s *Store) SetDiscoveryComplete(complete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec.Discovery.Complete = complete
	if complete {
		now := time.Now().UTC()
		rec.Discovery.LastRunAt = &now
	}
	return nil
}
