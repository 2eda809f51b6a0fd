package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoHeadings_SingleUntitledChunk(t *testing.T) {
	body := "Just a paragraph of prose. Nothing fancy here."

	chunks := Split(body, 2000, 0)

	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Title)
	assert.Equal(t, body, chunks[0].Content)
}

func TestSplit_EmptyInput(t *testing.T) {
	assert.Empty(t, Split("", 2000, 0))
	assert.Empty(t, Split("   \n\n  ", 2000, 15))
	assert.NotNil(t, Split("", 2000, 0))
}

func TestSplit_LevelThreeHeadingsBoundSections(t *testing.T) {
	doc := strings.Join([]string{
		"### Install",
		"Run the installer.",
		"",
		"### Configure",
		"Edit the config file.",
	}, "\n")

	chunks := Split(doc, 2000, 0)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Install", chunks[0].Title)
	assert.Equal(t, "Run the installer.", chunks[0].Content)
	assert.Equal(t, "Configure", chunks[1].Title)
	assert.Equal(t, "Edit the config file.", chunks[1].Content)
}

func TestSplit_PreambleBecomesUntitledChunk(t *testing.T) {
	doc := "Intro text before any heading.\n\n### Details\nThe details."

	chunks := Split(doc, 2000, 0)

	require.Len(t, chunks, 2)
	assert.Empty(t, chunks[0].Title)
	assert.Equal(t, "Intro text before any heading.", chunks[0].Content)
	assert.Equal(t, "Details", chunks[1].Title)
}

func TestSplit_DeeperHeadingsDoNotBound(t *testing.T) {
	doc := "### Top\nBody.\n#### Sub\nMore body."

	chunks := Split(doc, 2000, 0)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Top", chunks[0].Title)
	assert.Contains(t, chunks[0].Content, "#### Sub")
}

func TestSplit_OversizeSection_SplitsAtSentences(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("### Long\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("This is a reasonably sized sentence for packing tests. ")
	}

	chunks := Split(sb.String(), 200, 0)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, partTitle("Long", i+1), c.Title)
		// No chunk exceeds the cap; sentences are short enough to pack.
		assert.LessOrEqual(t, len(c.Content), 200, "chunk %d too large", i)
		// Parts end on sentence boundaries, never mid-sentence.
		trimmed := strings.TrimRight(c.Content, " \t\n")
		assert.True(t, strings.HasSuffix(trimmed, "."), "chunk %d split mid-sentence", i)
	}
}

func TestSplit_ZeroOverlap_ReconstructsSectionExactly(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("### Long\n")
	for i := 0; i < 30; i++ {
		sb.WriteString("Sentence number content goes here with some words. ")
	}
	sectionText := strings.TrimSpace(strings.TrimPrefix(sb.String(), "### Long\n"))

	chunks := Split(sb.String(), 180, 0)
	require.Greater(t, len(chunks), 1)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Content)
	}
	assert.Equal(t, sectionText, joined.String())
}

func TestSplit_Overlap_FirstChunkUnmodified(t *testing.T) {
	doc := "### A\nFirst section sentence one. First section sentence two.\n" +
		"### B\nSecond section sentence."

	plain := Split(doc, 2000, 0)
	overlapped := Split(doc, 2000, 30)

	require.Len(t, overlapped, 2)
	assert.Equal(t, plain[0], overlapped[0])
}

func TestSplit_Overlap_SentenceAlignedTail(t *testing.T) {
	doc := "### A\nAlpha sentence one. Alpha sentence two. Alpha sentence three.\n" +
		"### B\nBravo sentence."

	plain := Split(doc, 2000, 0)
	overlapped := Split(doc, 2000, 40)
	require.Len(t, overlapped, 2)

	prev := plain[0].Content
	got := overlapped[1].Content

	// The injected prefix is a suffix of the previous chunk, separated from
	// the original content by a blank line.
	idx := strings.Index(got, "\n\n")
	require.Greater(t, idx, 0)
	tail := got[:idx]
	assert.True(t, strings.HasSuffix(prev, tail), "tail %q is not a suffix of prev", tail)
	assert.Equal(t, plain[1].Content, got[idx+2:])

	// Sentence aligned: the tail starts at one of prev's sentence starts.
	starts := sentenceStarts(prev)
	tailStart := len(prev) - len(tail)
	assert.Contains(t, starts, tailStart)
}

func TestSplit_Overlap_SingleChunkUnchanged(t *testing.T) {
	doc := "### Only\nOne small section."

	chunks := Split(doc, 2000, 25)

	require.Len(t, chunks, 1)
	assert.Equal(t, "One small section.", chunks[0].Content)
}

func TestSplit_OverlapPercentClamped(t *testing.T) {
	doc := "### A\nOne. Two. Three.\n### B\nFour."

	// 90 clamps to 50; must not panic or duplicate whole chunks endlessly.
	chunks := Split(doc, 2000, 90)
	require.Len(t, chunks, 2)

	plain := Split(doc, 2000, 50)
	assert.Equal(t, plain, chunks)
}

func TestSplitSentences_PartitionsExactly(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"simple", "One. Two! Three?"},
		{"trailing fragment", "Complete sentence. trailing fragment without dot"},
		{"decimal not boundary", "Pi is 3.14159 approximately. Next."},
		{"newline separators", "First.\nSecond.\n"},
		{"no punctuation", "just words no terminator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := splitSentences(tt.text)
			assert.Equal(t, tt.text, strings.Join(parts, ""))
		})
	}
}

func TestSplitSentences_DecimalStaysWhole(t *testing.T) {
	parts := splitSentences("Pi is 3.14 roughly. Done.")
	require.Len(t, parts, 2)
	assert.Equal(t, "Pi is 3.14 roughly. ", parts[0])
}
