package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkb/recall/internal/embed"
	"github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/memory"
)

func newTestStore(t *testing.T) *EntryStore {
	t.Helper()
	s, err := OpenEntryStore("", embed.NewStaticEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(content string) *memory.Entry {
	return &memory.Entry{
		Content: content,
		Metadata: memory.Metadata{
			Category: memory.CategoryGeneral,
			Source:   memory.SourceManual,
		},
	}
}

func TestEntryStore_AddAssignsIDAndTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Add(ctx, testEntry("The indexer walks the docs directory."))
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)

	got, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored.Content, got.Content)
	assert.Equal(t, memory.CategoryGeneral, got.Metadata.Category)
	assert.Equal(t, memory.SourceManual, got.Metadata.Source)
}

func TestEntryStore_DedupByContentHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, testEntry("Connection pooling uses a fixed size."))
	require.NoError(t, err)

	// Same content, different metadata: dedup wins, the stored entry
	// comes back unchanged.
	dup := testEntry("Connection pooling uses a fixed size.")
	dup.Metadata.Category = memory.CategoryDecision
	second, err := s.Add(ctx, dup)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, memory.CategoryGeneral, second.Metadata.Category)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEntryStore_DedupSurvivesCacheClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, testEntry("Retries use exponential backoff."))
	require.NoError(t, err)

	s.ClearCache()

	second, err := s.Add(ctx, testEntry("Retries use exponential backoff."))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEntryStore_DedupNormalizesLineEndings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, testEntry("line one\nline two"))
	require.NoError(t, err)

	second, err := s.Add(ctx, testEntry("line one\r\nline two"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestEntryStore_AddValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry *memory.Entry
	}{
		{"nil entry", nil},
		{"empty content", testEntry("   ")},
		{"unknown category", &memory.Entry{
			Content:  "valid content",
			Metadata: memory.Metadata{Category: "bogus"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(ctx, tt.entry)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestEntryStore_AddDefaultsCategory(t *testing.T) {
	s := newTestStore(t)

	e := &memory.Entry{Content: "no category set"}
	stored, err := s.Add(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, memory.CategoryGeneral, stored.Metadata.Category)
}

func TestEntryStore_GetMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntryStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Add(ctx, testEntry("deletable"))
	require.NoError(t, err)

	ok, err := s.Delete(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again reports absence, not an error.
	ok, err = s.Delete(ctx, stored.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// The hash slot is free again.
	again, err := s.Add(ctx, testEntry("deletable"))
	require.NoError(t, err)
	assert.NotEqual(t, stored.ID, again.ID)
}

func TestEntryStore_DeleteByFilePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, content := range []string{"alpha section", "beta section"} {
		e := testEntry(content)
		e.Metadata.FilePath = "docs/setup.md"
		e.Metadata.Source = memory.SourceMarkdown
		_, err := s.Add(ctx, e)
		require.NoError(t, err, i)
	}
	other := testEntry("unrelated note")
	other.Metadata.FilePath = "docs/other.md"
	_, err := s.Add(ctx, other)
	require.NoError(t, err)

	n, err := s.DeleteByFilePath(ctx, "docs/setup.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = s.DeleteByFilePath(ctx, "docs/setup.md")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEntryStore_SearchRanksRelevantFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, testEntry("Database connection pooling and retry strategy."))
	require.NoError(t, err)
	_, err = s.Add(ctx, testEntry("Frontend button styling with CSS variables."))
	require.NoError(t, err)

	results, err := s.Search(ctx, "database connection pooling", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Entry.Content, "Database")
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestEntryStore_SearchEmptyQuery(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEntryStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	general := testEntry("a general note")
	_, err := s.Add(ctx, general)
	require.NoError(t, err)

	decision := testEntry("we chose sqlite")
	decision.Metadata.Category = memory.CategoryDecision
	_, err = s.Add(ctx, decision)
	require.NoError(t, err)

	all, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	decisions, err := s.List(ctx, memory.CategoryDecision, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "we chose sqlite", decisions[0].Content)

	_, err = s.List(ctx, "bogus", 10)
	require.Error(t, err)
}

func TestEntryStore_IncrementRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Add(ctx, testEntry("referenced often"))
	require.NoError(t, err)

	require.NoError(t, s.IncrementRef(ctx, stored.ID))
	require.NoError(t, s.IncrementRef(ctx, stored.ID))

	got, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Metadata.ReferenceCount)

	err = s.IncrementRef(ctx, "no-such-id")
	require.Error(t, err)
}

func TestEntryStore_Promote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Add(ctx, testEntry("promotable"))
	require.NoError(t, err)
	assert.False(t, stored.Metadata.Promoted)

	require.NoError(t, s.Promote(ctx, stored.ID))

	got, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, got.Metadata.Promoted)
	require.NotNil(t, got.Metadata.PromotedAt)
}

func TestEntryStore_RebuildOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.db")
	embedder := embed.NewStaticEmbedder()

	s, err := OpenEntryStore(path, embedder)
	require.NoError(t, err)

	ctx := context.Background()
	stored, err := s.Add(ctx, testEntry("persisted across restarts"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenEntryStore(path, embedder)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Dedup cache was rebuilt from rows.
	dup, err := reopened.Add(ctx, testEntry("persisted across restarts"))
	require.NoError(t, err)
	assert.Equal(t, stored.ID, dup.ID)

	// The vector index was rebuilt too.
	results, err := reopened.Search(ctx, "persisted across restarts", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored.ID, results[0].Entry.ID)
}

func TestEntryStore_ClosedOperationsFail(t *testing.T) {
	s, err := OpenEntryStore("", embed.NewStaticEmbedder())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = s.Add(ctx, testEntry("too late"))
	assert.Error(t, err)
	_, err = s.Search(ctx, "query", 5)
	assert.Error(t, err)

	// Double close is a no-op.
	assert.NoError(t, s.Close())
}
