// Package memory defines the knowledge entry model shared by the stores,
// the indexer and the search engine.
package memory

import (
	"time"
)

// Category classifies an entry. The set is closed: unknown categories are
// rejected at the edges and never reach the stores.
type Category string

const (
	CategoryGeneral      Category = "general"
	CategoryArchitecture Category = "architecture"
	CategoryDecision     Category = "decision"
	CategoryConvention   Category = "convention"
	CategorySnippet      Category = "snippet"
	CategoryReference    Category = "reference"
	CategoryDiscovery    Category = "discovery"
)

// Categories returns all valid categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryGeneral,
		CategoryArchitecture,
		CategoryDecision,
		CategoryConvention,
		CategorySnippet,
		CategoryReference,
		CategoryDiscovery,
	}
}

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c Category) bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// Source identifies how an entry entered the store.
type Source string

const (
	SourceMarkdown  Source = "markdown"
	SourceSession   Source = "session"
	SourceDiscovery Source = "discovery"
	SourceManual    Source = "manual"
)

// MaxContentBytes is the largest entry content the store accepts.
// Oversized content is a validation error, not a truncation.
const MaxContentBytes = 100 * 1024

// Metadata describes an entry beyond its content.
type Metadata struct {
	Category       Category   `json:"category"`
	Source         Source     `json:"source"`
	FilePath       string     `json:"file_path,omitempty"`
	SectionTitle   string     `json:"section_title,omitempty"`
	Keywords       []string   `json:"keywords,omitempty"`
	ReferenceCount int        `json:"reference_count"`
	Promoted       bool       `json:"promoted"`
	PromotedAt     *time.Time `json:"promoted_at,omitempty"`
}

// Entry is a stored knowledge unit. Owned by the entry store; treat as
// immutable outside it.
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
