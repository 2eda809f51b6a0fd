package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/store"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	// ModeHybrid fuses vector and keyword results with RRF.
	ModeHybrid Mode = "hybrid"
	// ModeVector uses semantic similarity only.
	ModeVector Mode = "vector"
	// ModeKeyword uses BM25 keyword matching only.
	ModeKeyword Mode = "keyword"
)

// ParseMode maps a user-supplied string to a Mode.
// Empty input falls back to ModeHybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeVector:
		return ModeVector, nil
	case ModeKeyword:
		return ModeKeyword, nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("unknown search mode %q", s), nil)
	}
}

// DefaultLimit is the result count when the caller does not set one.
const DefaultLimit = 5

// overFetchFactor widens both sub-query lists before fusion so that
// rank disagreement between the lists cannot starve the final result
// set. Single modes fetch exactly the requested limit.
const overFetchFactor = 3

// Options controls a single search.
type Options struct {
	Query    string
	Limit    int             // defaults to DefaultLimit
	Mode     Mode            // defaults to ModeHybrid
	Category memory.Category // optional filter, applied after fusion
	MinScore float64         // similarity floor for vector results
}

// Engine runs searches against the entry store and the keyword index.
type Engine struct {
	entries  store.VectorStore
	keywords store.KeywordIndex
	logger   *slog.Logger
}

// NewEngine creates a search engine. The keyword index may be nil, in
// which case keyword and hybrid modes degrade to vector-only results.
func NewEngine(entries store.VectorStore, keywords store.KeywordIndex, logger *slog.Logger) (*Engine, error) {
	if entries == nil {
		return nil, errors.InternalError("entry store is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{entries: entries, keywords: keywords, logger: logger}, nil
}

// Search runs a query. Empty queries return an empty result, never an
// error. Returned entries have had their reference counts bumped on a
// best-effort basis.
func (e *Engine) Search(ctx context.Context, opts Options) ([]store.ScoredEntry, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return []store.ScoredEntry{}, nil
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if opts.Category != "" && !memory.ValidCategory(opts.Category) {
		return nil, errors.New(errors.ErrCodeInvalidCategory,
			fmt.Sprintf("unknown category %q", opts.Category), nil)
	}

	var results []store.ScoredEntry
	switch mode {
	case ModeVector:
		results, err = e.vectorSearch(ctx, query, opts)
	case ModeKeyword:
		results, err = e.keywordSearch(ctx, query, opts)
	default:
		results, err = e.hybridSearch(ctx, query, opts)
	}
	if err != nil {
		return nil, err
	}

	results = filterByCategory(results, opts.Category)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	e.trackUsage(ctx, results)
	return results, nil
}

func (e *Engine) vectorSearch(ctx context.Context, query string, opts Options) ([]store.ScoredEntry, error) {
	hits, err := e.entries.Search(ctx, query, opts.Limit)
	if err != nil {
		return nil, err
	}
	return applyMinScore(hits, opts.MinScore), nil
}

func (e *Engine) keywordSearch(ctx context.Context, query string, opts Options) ([]store.ScoredEntry, error) {
	if e.keywords == nil {
		return []store.ScoredEntry{}, nil
	}

	hits, err := e.keywords.Search(ctx, query, opts.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]store.ScoredEntry, 0, len(hits))
	for _, hit := range hits {
		entry, err := e.entries.Get(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			// The keyword index lags the entry store; skip stale ids.
			e.logger.Debug("stale_keyword_hit", slog.String("id", hit.ID))
			continue
		}
		results = append(results, store.ScoredEntry{Entry: entry, Score: hit.Score})
	}
	return results, nil
}

// hybridSearch runs both sub-queries concurrently, fuses the ranked id
// lists with RRF, then resolves entries. Vector hits carry their entries
// already; keyword-only ids are resolved lazily and stale ids dropped.
func (e *Engine) hybridSearch(ctx context.Context, query string, opts Options) ([]store.ScoredEntry, error) {
	fetch := opts.Limit * overFetchFactor

	var (
		vectorHits  []store.ScoredEntry
		keywordHits []store.KeywordHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.entries.Search(gctx, query, fetch)
		if err != nil {
			return err
		}
		vectorHits = applyMinScore(hits, opts.MinScore)
		return nil
	})
	g.Go(func() error {
		if e.keywords == nil {
			return nil
		}
		hits, err := e.keywords.Search(gctx, query, fetch)
		if err != nil {
			return err
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*memory.Entry, len(vectorHits))
	vectorIDs := make([]string, len(vectorHits))
	for i, hit := range vectorHits {
		vectorIDs[i] = hit.Entry.ID
		byID[hit.Entry.ID] = hit.Entry
	}
	keywordIDs := make([]string, len(keywordHits))
	for i, hit := range keywordHits {
		keywordIDs[i] = hit.ID
	}

	fused := fuseRanked(vectorIDs, keywordIDs)

	results := make([]store.ScoredEntry, 0, len(fused))
	for _, hit := range fused {
		entry := byID[hit.ID]
		if entry == nil {
			var err error
			entry, err = e.entries.Get(ctx, hit.ID)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				e.logger.Debug("stale_keyword_hit", slog.String("id", hit.ID))
				continue
			}
		}
		results = append(results, store.ScoredEntry{Entry: entry, Score: hit.Score})
	}
	return results, nil
}

// trackUsage bumps reference counts for returned entries. Failures are
// logged and never surfaced: usage tracking must not break a search.
func (e *Engine) trackUsage(ctx context.Context, results []store.ScoredEntry) {
	for _, r := range results {
		if err := e.entries.IncrementRef(ctx, r.Entry.ID); err != nil {
			e.logger.Warn("reference_count_update_failed",
				slog.String("id", r.Entry.ID),
				slog.String("error", err.Error()))
		}
	}
}

func applyMinScore(hits []store.ScoredEntry, minScore float64) []store.ScoredEntry {
	if minScore <= 0 {
		return hits
	}
	filtered := hits[:0]
	for _, hit := range hits {
		if hit.Score >= minScore {
			filtered = append(filtered, hit)
		}
	}
	return filtered
}

func filterByCategory(results []store.ScoredEntry, category memory.Category) []store.ScoredEntry {
	if category == "" {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		if r.Entry.Metadata.Category == category {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
