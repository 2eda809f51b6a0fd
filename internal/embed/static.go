package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder generates embeddings by hashing tokens and character
// n-grams into a fixed-dimension vector. No network, no model files,
// deterministic across runs. Semantic quality is reduced compared to a
// learned model, which is acceptable for a local knowledge index.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// proseStopWords are high-frequency words that carry no signal for
// knowledge-base retrieval.
var proseStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "were": true, "with": true,
}

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates the embedding for a single text.
// Empty or whitespace-only input yields the zero vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	return normalizeVector(e.generateVector(trimmed)), nil
}

// generateVector hashes tokens (weight 0.7) and character trigrams
// (weight 0.3) into the vector.
func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	for _, token := range tokenize(text) {
		vector[hashToIndex(token, StaticDimensions)] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, StaticDimensions)] += ngramWeight
	}

	return vector
}

// tokenize lowercases and splits text into word tokens, dropping stop
// words. Identifier-style tokens (camelCase, snake_case) are split into
// their parts so that code snippets inside knowledge files still match.
func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, part := range splitIdentifier(word) {
			lower := strings.ToLower(part)
			if lower != "" && !proseStopWords[lower] {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// splitIdentifier splits camelCase segments of a word.
func splitIdentifier(s string) []string {
	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// normalizeForNgrams strips everything but letters and digits.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex maps a string to a vector index via FNV-64.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return "static"
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
