package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/recallkb/recall/internal/config"
	"github.com/recallkb/recall/internal/embed"
	"github.com/recallkb/recall/internal/index"
	"github.com/recallkb/recall/internal/logging"
	"github.com/recallkb/recall/internal/meta"
	"github.com/recallkb/recall/internal/search"
	"github.com/recallkb/recall/internal/store"
)

// app wires the project-scoped dependencies for one CLI invocation.
type app struct {
	root     string
	cfg      *config.Config
	logger   *slog.Logger
	entries  *store.EntryStore
	keywords *store.BleveKeywordIndex
	meta     *meta.Store

	cleanups []func()
}

// openApp loads configuration and opens the stores for the project
// rooted at root. Close releases everything in reverse order.
func openApp(root string) (*app, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}

	a := &app{root: absRoot, cfg: cfg}

	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.DataPath(absRoot, "logs", "recall.log"),
	})
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.cleanups = append(a.cleanups, logCleanup)

	embedder, err := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), cfg.Embedding.CacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}

	entries, err := store.OpenEntryStore(cfg.DataPath(absRoot, "entries.db"), embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.entries = entries
	a.cleanups = append(a.cleanups, func() { _ = entries.Close() })

	keywords, err := store.OpenKeywordIndex(cfg.DataPath(absRoot, "keyword.bleve"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.keywords = keywords
	a.cleanups = append(a.cleanups, func() { _ = keywords.Close() })

	a.meta = meta.NewStore(filepath.Join(absRoot, cfg.DataDir))
	return a, nil
}

// Close releases app resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

func (a *app) newOrchestrator() (*index.Orchestrator, error) {
	return index.NewOrchestrator(
		a.cfg.DocsPath(a.root),
		a.meta,
		a.entries,
		a.keywords,
		a.cfg.Chunking,
		a.logger,
	)
}

func (a *app) newEngine() (*search.Engine, error) {
	return search.NewEngine(a.entries, a.keywords, a.logger)
}

// lockPath is the flock file serializing indexing runs per project.
func (a *app) lockPath() string {
	return a.cfg.DataPath(a.root, "index.lock")
}

// lockedIndex runs one orchestrator pass holding the project index
// lock, waiting for a concurrent run in another process to finish.
func (a *app) lockedIndex(ctx context.Context, orch *index.Orchestrator, opts index.Options) (*index.Result, error) {
	lock := flock.New(a.lockPath())
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another indexing run is in progress")
	}
	defer lock.Unlock()

	return orch.Index(ctx, opts)
}
