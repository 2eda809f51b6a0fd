// Package chunk splits markdown section text into bounded segments with
// sentence-aware splitting and inter-chunk overlap injection.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// Chunk is a single retrievable segment produced by Split.
// Transient: consumed immediately by the indexer.
type Chunk struct {
	Title   string
	Content string
}

const (
	// DefaultMaxChunkSize is the fallback segment size in bytes.
	DefaultMaxChunkSize = 2000

	// MaxOverlapPercent caps the overlap between adjacent chunks.
	MaxOverlapPercent = 50
)

// heading3Pattern matches level-3 markdown headings, which bound sections.
var heading3Pattern = regexp.MustCompile(`^###\s+(.+?)\s*$`)

// section is a heading-bounded region of the document body.
type section struct {
	title string
	body  string
}

// Split chunks content into ordered segments.
//
// Level-3 headings bound sections; a document without them is one untitled
// section. Sections larger than maxChunkSize are split at sentence
// boundaries into "(Part N)" parts. When overlapPercent > 0 and at least two
// chunks exist, each chunk after the first is prefixed with a sentence-
// aligned tail of its predecessor. Split never fails; degenerate input
// yields an empty slice.
func Split(content string, maxChunkSize, overlapPercent int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlapPercent < 0 {
		overlapPercent = 0
	}
	if overlapPercent > MaxOverlapPercent {
		overlapPercent = MaxOverlapPercent
	}

	chunks := []Chunk{}
	for _, sec := range parseSections(content) {
		chunks = append(chunks, chunkSection(sec, maxChunkSize)...)
	}

	return applyOverlap(chunks, overlapPercent)
}

// parseSections splits content at level-3 headings. Content before the
// first heading (or all content when no headings exist) becomes an
// untitled section.
func parseSections(content string) []section {
	lines := strings.Split(content, "\n")

	var sections []section
	current := section{}
	var body strings.Builder

	flush := func() {
		text := strings.TrimSpace(body.String())
		if text != "" {
			current.body = text
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range lines {
		if m := heading3Pattern.FindStringSubmatch(line); m != nil {
			flush()
			current = section{title: m[1]}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// chunkSection emits one chunk for a section that fits, or sentence-packed
// "(Part N)" chunks for one that does not. Concatenating the part contents
// reproduces the section body exactly.
func chunkSection(sec section, maxChunkSize int) []Chunk {
	if len(sec.body) <= maxChunkSize {
		return []Chunk{{Title: sec.title, Content: sec.body}}
	}

	var parts []Chunk
	var cur strings.Builder
	emit := func() {
		if cur.Len() == 0 {
			return
		}
		parts = append(parts, Chunk{
			Title:   partTitle(sec.title, len(parts)+1),
			Content: cur.String(),
		})
		cur.Reset()
	}

	for _, sentence := range splitSentences(sec.body) {
		if cur.Len() > 0 && cur.Len()+len(sentence) > maxChunkSize {
			emit()
		}
		// A single sentence longer than maxChunkSize is kept whole:
		// sentences are never split.
		cur.WriteString(sentence)
	}
	emit()

	// Retitle without part numbers if packing collapsed to one chunk.
	if len(parts) == 1 {
		parts[0].Title = sec.title
	}

	return parts
}

func partTitle(title string, n int) string {
	if title == "" {
		return fmt.Sprintf("(Part %d)", n)
	}
	return fmt.Sprintf("%s (Part %d)", title, n)
}

// splitSentences partitions text into sentences. A sentence runs through
// its terminal punctuation ('.', '!', '?') and any following whitespace;
// trailing text without punctuation forms a final sentence. The returned
// slices concatenate back to text byte for byte.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	i := 0

	for i < len(text) {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			// Consume the punctuation run.
			for i < len(text) && (text[i] == '.' || text[i] == '!' || text[i] == '?') {
				i++
			}
			// A boundary needs trailing whitespace (or end of text);
			// "3.14" does not end a sentence.
			if i == len(text) || isSpace(text[i]) {
				for i < len(text) && isSpace(text[i]) {
					i++
				}
				sentences = append(sentences, text[start:i])
				start = i
			}
			continue
		}
		i++
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// sentenceStarts returns the byte offsets at which sentences begin,
// including 0 and excluding len(text).
func sentenceStarts(text string) []int {
	starts := []int{0}
	offset := 0
	for _, s := range splitSentences(text) {
		offset += len(s)
		if offset < len(text) {
			starts = append(starts, offset)
		}
	}
	return starts
}

// applyOverlap prepends a tail of each chunk's predecessor, sized
// floor(len(prev) * overlapPercent / 100) and snapped forward to the next
// sentence boundary. Tails come from the original chunk contents, so a
// chunk's own overlap never cascades into the next one. Chunk 0 is never
// modified.
func applyOverlap(chunks []Chunk, overlapPercent int) []Chunk {
	if overlapPercent == 0 || len(chunks) < 2 {
		return chunks
	}

	out := make([]Chunk, len(chunks))
	out[0] = chunks[0]

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		size := len(prev) * overlapPercent / 100
		if size == 0 {
			out[i] = chunks[i]
			continue
		}

		cut := len(prev) - size
		start := snapForward(prev, cut)
		if start >= len(prev) {
			// Snapping consumed the whole tail; keep the raw cut.
			start = cut
		}

		out[i] = Chunk{
			Title:   chunks[i].Title,
			Content: prev[start:] + "\n\n" + chunks[i].Content,
		}
	}

	return out
}

// snapForward returns the first sentence start at or after cut.
// Returns len(text) when no boundary follows the cut point.
func snapForward(text string, cut int) int {
	for _, s := range sentenceStarts(text) {
		if s >= cut {
			return s
		}
	}
	return len(text)
}
