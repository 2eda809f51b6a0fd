// Package index walks the knowledge tree and keeps the stores in sync
// with it: hash-based change detection, directive handling, chunking,
// and delete-then-reinsert per file.
package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/recallkb/recall/internal/chunk"
	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/directive"
	"github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/hash"
	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/meta"
	"github.com/recallkb/recall/internal/store"
)

// Action describes what happened to a file during a run.
type Action string

const (
	ActionIndexed Action = "indexed"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// Options controls a single indexing run.
type Options struct {
	// Force reindexes files whose stored hash still matches.
	Force bool

	// DryRun walks and counts but mutates nothing.
	DryRun bool

	// OnProgress, when set, is called once per discovered file.
	OnProgress func(path string, action Action)
}

// FileError records a per-file failure. The run continues past it.
type FileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result summarizes an indexing run.
type Result struct {
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	EntriesCreated int           `json:"entries_created"`
	EntriesUpdated int           `json:"entries_updated"`
	EntriesDeleted int           `json:"entries_deleted"`
	Errors         []FileError   `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// Orchestrator drives indexing runs. It holds no cross-run state; all
// incremental decisions come from the meta store's file hashes.
//
// Runs are strictly sequential per file and not safe to invoke
// concurrently against the same project. Callers serialize runs.
type Orchestrator struct {
	docsDir  string
	meta     *meta.Store
	entries  store.VectorStore
	keywords store.KeywordIndex
	chunking config.ChunkingConfig
	logger   *slog.Logger
}

// NewOrchestrator creates an indexing orchestrator. The keyword index
// may be nil; mirroring is then skipped entirely.
func NewOrchestrator(
	docsDir string,
	metaStore *meta.Store,
	entries store.VectorStore,
	keywords store.KeywordIndex,
	chunking config.ChunkingConfig,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if docsDir == "" {
		return nil, errors.ValidationError("docs directory is required", nil)
	}
	if metaStore == nil {
		return nil, errors.InternalError("meta store is required", nil)
	}
	if entries == nil {
		return nil, errors.InternalError("entry store is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		docsDir:  docsDir,
		meta:     metaStore,
		entries:  entries,
		keywords: keywords,
		chunking: chunking,
		logger:   logger,
	}, nil
}

// Index runs one indexing pass over the knowledge tree.
//
// A missing docs directory is an empty run, not an error. Per-file
// failures are captured in Result.Errors and never abort the walk.
func (o *Orchestrator) Index(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{Errors: []FileError{}}

	files, err := o.discover()
	if err != nil {
		return nil, err
	}

	for _, relPath := range files {
		action := o.processFile(ctx, relPath, opts, result)
		if opts.OnProgress != nil {
			opts.OnProgress(relPath, action)
		}
	}

	if !opts.DryRun {
		if err := o.meta.UpdateLastIndexedAt(); err != nil {
			return nil, err
		}
		if err := o.meta.Save(); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	o.logger.Info("indexing_finished",
		slog.Int("processed", result.FilesProcessed),
		slog.Int("skipped", result.FilesSkipped),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// discover walks the docs tree depth-first and returns relative paths of
// markdown files, slash-separated. Names starting with "_" are skipped,
// directories included.
func (o *Orchestrator) discover() ([]string, error) {
	if _, err := os.Stat(o.docsDir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(o.docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), "_") && path != o.docsDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		rel, err := filepath.Rel(o.docsDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.StorageError("walk docs directory", err)
	}
	return files, nil
}

// processFile runs steps 1-8 for one file and updates result counters.
func (o *Orchestrator) processFile(ctx context.Context, relPath string, opts Options, result *Result) Action {
	// Parent-traversal segments are skipped unconditionally, force
	// included. A corrupted meta file must never direct writes outside
	// the docs tree.
	if hasTraversal(relPath) {
		o.logger.Warn("path_traversal_skipped", slog.String("path", relPath))
		result.FilesSkipped++
		return ActionSkipped
	}

	data, err := os.ReadFile(filepath.Join(o.docsDir, filepath.FromSlash(relPath)))
	if err != nil {
		return o.fail(result, relPath, err)
	}
	content := string(data)
	fileHash := hash.Content(content)

	storedHash, known, err := o.meta.GetFileHash(relPath)
	if err != nil {
		return o.fail(result, relPath, err)
	}
	if !opts.Force && known && storedHash == fileHash {
		result.FilesSkipped++
		return ActionSkipped
	}

	fm, body, warnings := directive.SplitFrontMatter(content)
	directives, dirWarnings := directive.Parse(body)
	for _, w := range append(warnings, dirWarnings...) {
		o.logger.Warn("document_warning", slog.String("path", relPath), slog.String("warning", w))
	}

	if !directives.Index {
		result.FilesSkipped++
		return ActionSkipped
	}

	chunks := chunk.Split(directive.Strip(body), o.chunking.MaxChunkSize, o.chunking.OverlapPercent)
	if len(chunks) == 0 {
		o.logger.Warn("empty_document_skipped", slog.String("path", relPath))
		result.FilesSkipped++
		return ActionSkipped
	}

	category, err := memory.ParseCategory(fm.Category)
	if err != nil {
		o.logger.Warn("document_warning",
			slog.String("path", relPath),
			slog.String("warning", err.Error()))
		category = memory.CategoryGeneral
	}

	keywords := directives.Keywords
	if len(keywords) == 0 {
		keywords = fm.Keywords
	}

	if opts.DryRun {
		// Counters still report what the run would have done.
		o.countChunks(result, known, len(chunks))
		result.FilesProcessed++
		return ActionIndexed
	}

	// Old and new chunks of one file never coexist.
	deleted, err := o.entries.DeleteByFilePath(ctx, relPath)
	if err != nil {
		return o.fail(result, relPath, err)
	}
	result.EntriesDeleted += deleted

	for _, c := range chunks {
		entry := &memory.Entry{
			Content: c.Content,
			Metadata: memory.Metadata{
				Category:     category,
				Source:       memory.SourceMarkdown,
				FilePath:     relPath,
				SectionTitle: c.Title,
				Keywords:     keywords,
			},
		}
		stored, err := o.entries.Add(ctx, entry)
		if err != nil {
			return o.fail(result, relPath, err)
		}

		if o.keywords != nil {
			// Mirroring is best-effort: the entry store already holds
			// the data, and search degrades instead of breaking.
			if err := o.keywords.Add(ctx, stored); err != nil {
				o.logger.Warn("keyword_mirror_failed",
					slog.String("path", relPath),
					slog.String("id", stored.ID),
					slog.String("error", err.Error()))
			}
		}
	}
	o.countChunks(result, known, len(chunks))

	if err := o.meta.SetFileHash(relPath, fileHash); err != nil {
		return o.fail(result, relPath, err)
	}

	result.FilesProcessed++
	return ActionIndexed
}

func (o *Orchestrator) countChunks(result *Result, previouslyIndexed bool, n int) {
	if previouslyIndexed {
		result.EntriesUpdated += n
	} else {
		result.EntriesCreated += n
	}
}

func (o *Orchestrator) fail(result *Result, relPath string, err error) Action {
	o.logger.Error("file_indexing_failed",
		slog.String("path", relPath),
		slog.String("error", err.Error()))
	result.Errors = append(result.Errors, FileError{Path: relPath, Message: err.Error()})
	return ActionFailed
}

func hasTraversal(relPath string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
