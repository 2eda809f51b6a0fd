package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkb/recall/internal/embed"
	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/store"
)

type engineFixture struct {
	entries  *store.EntryStore
	keywords *store.BleveKeywordIndex
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	entries, err := store.OpenEntryStore("", embed.NewStaticEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { entries.Close() })

	keywords, err := store.OpenKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { keywords.Close() })

	engine, err := NewEngine(entries, keywords, nil)
	require.NoError(t, err)

	return &engineFixture{entries: entries, keywords: keywords, engine: engine}
}

// add stores an entry in both the entry store and the keyword index.
func (f *engineFixture) add(t *testing.T, content string, category memory.Category) *memory.Entry {
	t.Helper()
	ctx := context.Background()

	entry, err := f.entries.Add(ctx, &memory.Entry{
		Content: content,
		Metadata: memory.Metadata{
			Category: category,
			Source:   memory.SourceManual,
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.keywords.Add(ctx, entry))
	return entry
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeHybrid, false},
		{"hybrid", ModeHybrid, false},
		{"vector", ModeVector, false},
		{"keyword", ModeKeyword, false},
		{"  Vector ", ModeVector, false},
		{"fuzzy", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEngine_EmptyQueryReturnsEmpty(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "some indexed content", memory.CategoryGeneral)

	for _, mode := range []Mode{ModeHybrid, ModeVector, ModeKeyword} {
		results, err := f.engine.Search(context.Background(), Options{
			Query: "   ",
			Mode:  mode,
		})
		require.NoError(t, err, mode)
		assert.Empty(t, results, mode)
	}
}

func TestEngine_VectorMode(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "Retry with exponential backoff on transient errors.", memory.CategoryConvention)
	f.add(t, "Weekly menu planning for the office kitchen.", memory.CategoryGeneral)

	results, err := f.engine.Search(context.Background(), Options{
		Query: "exponential backoff retry",
		Mode:  ModeVector,
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Entry.Content, "backoff")
}

func TestEngine_KeywordMode(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "The deploy script tags the release with git describe.", memory.CategoryGeneral)
	f.add(t, "Unrelated note about lunch.", memory.CategoryGeneral)

	results, err := f.engine.Search(context.Background(), Options{
		Query: "deploy release",
		Mode:  ModeKeyword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Entry.Content, "deploy")
}

func TestEngine_KeywordModeDropsStaleIDs(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// Indexed in keyword only: simulates the keyword index lagging the
	// entry store after a delete.
	ghost := &memory.Entry{ID: "ghost", Content: "orphaned zanzibar document"}
	require.NoError(t, f.keywords.Add(ctx, ghost))

	results, err := f.engine.Search(ctx, Options{
		Query: "zanzibar",
		Mode:  ModeKeyword,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_HybridRewardsDualSignal(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	both := f.add(t, "Database migrations run through the migrate tool.", memory.CategoryConvention)

	// Present in the entry store but invisible to keyword search.
	vecOnly, err := f.entries.Add(ctx, &memory.Entry{
		Content:  "Database migrations need a rollback plan.",
		Metadata: memory.Metadata{Category: memory.CategoryGeneral},
	})
	require.NoError(t, err)

	results, err := f.engine.Search(ctx, Options{
		Query: "database migrations",
		Mode:  ModeHybrid,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, both.ID, results[0].Entry.ID)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Entry.ID)
	}
	assert.Contains(t, ids, vecOnly.ID)
}

func TestEngine_HybridResolvesKeywordOnlyIDs(t *testing.T) {
	f := newEngineFixture(t)

	// Content shares no vocabulary with the query embedding space hit,
	// so it surfaces via the keyword list only.
	f.add(t, "xylophone maintenance checklist", memory.CategoryGeneral)
	f.add(t, "a note about code review etiquette", memory.CategoryGeneral)

	results, err := f.engine.Search(context.Background(), Options{
		Query: "xylophone",
		Mode:  ModeHybrid,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Entry.Content, "xylophone")
}

func TestEngine_CategoryFilter(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "We decided to use sqlite for local storage.", memory.CategoryDecision)
	f.add(t, "Storage layout notes and sqlite tips.", memory.CategoryGeneral)

	results, err := f.engine.Search(context.Background(), Options{
		Query:    "sqlite storage",
		Mode:     ModeHybrid,
		Category: memory.CategoryDecision,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, memory.CategoryDecision, r.Entry.Metadata.Category)
	}
}

func TestEngine_LimitTruncatesAfterFusion(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "alpha topic one shared term", memory.CategoryGeneral)
	f.add(t, "alpha topic two shared term", memory.CategoryGeneral)
	f.add(t, "alpha topic three shared term", memory.CategoryGeneral)

	results, err := f.engine.Search(context.Background(), Options{
		Query: "alpha shared term",
		Mode:  ModeHybrid,
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestEngine_VectorModeFetchesExactlyLimit(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "database migration tooling overview", memory.CategoryGeneral)
	f.add(t, "database migration rollback steps", memory.CategoryGeneral)
	f.add(t, "office chair ergonomics", memory.CategoryDecision)

	// The category filter empties the top-limit window. Vector mode must
	// not reach deeper into the ranking to backfill.
	results, err := f.engine.Search(context.Background(), Options{
		Query:    "database migration",
		Mode:     ModeVector,
		Limit:    2,
		Category: memory.CategoryDecision,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_MinScoreFiltersVectorResults(t *testing.T) {
	f := newEngineFixture(t)
	f.add(t, "completely unrelated cooking recipe", memory.CategoryGeneral)

	results, err := f.engine.Search(context.Background(), Options{
		Query:    "kubernetes ingress controller",
		Mode:     ModeVector,
		MinScore: 0.95,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_SearchBumpsReferenceCounts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	entry := f.add(t, "frequently retrieved fact", memory.CategoryGeneral)

	_, err := f.engine.Search(ctx, Options{Query: "frequently retrieved fact"})
	require.NoError(t, err)

	got, err := f.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Metadata.ReferenceCount)
}

func TestEngine_InvalidOptions(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Search(context.Background(), Options{Query: "q", Mode: "fuzzy"})
	assert.Error(t, err)

	_, err = f.engine.Search(context.Background(), Options{Query: "q", Category: "bogus"})
	assert.Error(t, err)
}

func TestNewEngine_RequiresEntryStore(t *testing.T) {
	_, err := NewEngine(nil, nil, nil)
	assert.Error(t, err)
}
