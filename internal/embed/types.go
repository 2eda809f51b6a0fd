// Package embed provides the embedding provider port and a deterministic
// hash-based implementation that works fully offline.
package embed

import (
	"context"
	"math"
)

// StaticDimensions is the embedding dimension for the static embedder.
const StaticDimensions = 256

// Embedder generates a deterministic fixed-dimension vector for text.
// Implementations must return the same vector for the same input.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
