// Package mcp exposes the knowledge store to MCP clients over stdio.
//
// Four tools are registered: memory_search, memory_index, memory_status,
// and memory_promote. Tool schemas are derived from the typed input and
// output structs by the SDK.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/recallkb/recall/internal/index"
	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/meta"
	"github.com/recallkb/recall/internal/search"
	"github.com/recallkb/recall/internal/store"
	"github.com/recallkb/recall/pkg/version"
)

// cacheClearer is implemented by stores holding session-scoped caches.
type cacheClearer interface {
	ClearCache()
}

// indexLockRetry is the poll interval while waiting for the project
// index lock held by another process.
const indexLockRetry = 250 * time.Millisecond

// Options carries project-level settings the tools share with the CLI,
// so a configured project behaves the same on both surfaces.
type Options struct {
	// LockPath is the index lock file serializing indexing runs across
	// processes. Empty disables locking.
	LockPath string

	// DefaultLimit applies when a search call omits limit.
	DefaultLimit int

	// DefaultMinScore applies when a search call omits min_score.
	DefaultMinScore float64
}

// Server bridges MCP clients with the search engine and the indexer.
type Server struct {
	mcp     *mcp.Server
	engine  *search.Engine
	orch    *index.Orchestrator
	entries store.VectorStore
	meta    *meta.Store
	opts    Options
	logger  *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(
	engine *search.Engine,
	orch *index.Orchestrator,
	entries store.VectorStore,
	metaStore *meta.Store,
	opts Options,
	logger *slog.Logger,
) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if entries == nil {
		return nil, errors.New("entry store is required")
	}
	if metaStore == nil {
		return nil, errors.New("meta store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:  engine,
		orch:    orch,
		entries: entries,
		meta:    metaStore,
		opts:    opts,
		logger:  logger,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "recall",
		Version: version.Version,
	}, nil)
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search the project knowledge base. Combines semantic and keyword retrieval, so it finds relevant notes even when the wording differs from the query.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_index",
		Description: "Index the project's markdown knowledge tree. Incremental: unchanged files are skipped unless force is set.",
	}, s.indexHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_status",
		Description: "Report knowledge base status: entry count, tracked files, and last indexing time.",
	}, s.statusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_promote",
		Description: "Mark a knowledge entry as promoted so it can be surfaced preferentially.",
	}, s.promoteHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 4))
}

// Run serves MCP over stdio until ctx is cancelled. The entry store's
// session cache is cleared when the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp_server_starting")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})

	if c, ok := s.entries.(cacheClearer); ok {
		c.ClearCache()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// SearchInput is the memory_search tool input.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the search query"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results (default from project config)"`
	Mode     string   `json:"mode,omitempty" jsonschema:"search mode: hybrid, vector, or keyword (default hybrid)"`
	Category string   `json:"category,omitempty" jsonschema:"restrict results to one category"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum similarity for vector results (default from project config)"`
}

// ResultOutput is one search hit.
type ResultOutput struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	Score        float64  `json:"score"`
	Category     string   `json:"category"`
	FilePath     string   `json:"file_path,omitempty"`
	SectionTitle string   `json:"section_title,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// SearchOutput is the memory_search tool output.
type SearchOutput struct {
	Results []ResultOutput `json:"results"`
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	mode, err := search.ParseMode(input.Mode)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	// Omitted fields fall back to the project configuration, the same
	// defaults the CLI applies.
	limit := input.Limit
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	minScore := s.opts.DefaultMinScore
	if input.MinScore != nil {
		minScore = *input.MinScore
	}

	results, err := s.engine.Search(ctx, search.Options{
		Query:    input.Query,
		Limit:    limit,
		Mode:     mode,
		Category: memory.Category(input.Category),
		MinScore: minScore,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]ResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, ResultOutput{
			ID:           r.Entry.ID,
			Content:      r.Entry.Content,
			Score:        r.Score,
			Category:     string(r.Entry.Metadata.Category),
			FilePath:     r.Entry.Metadata.FilePath,
			SectionTitle: r.Entry.Metadata.SectionTitle,
			Keywords:     r.Entry.Metadata.Keywords,
		})
	}
	return nil, out, nil
}

// IndexInput is the memory_index tool input.
type IndexInput struct {
	Force  bool `json:"force,omitempty" jsonschema:"reindex files even when unchanged"`
	DryRun bool `json:"dry_run,omitempty" jsonschema:"report what would change without writing"`
}

// IndexOutput is the memory_index tool output.
type IndexOutput struct {
	FilesProcessed int               `json:"files_processed"`
	FilesSkipped   int               `json:"files_skipped"`
	EntriesCreated int               `json:"entries_created"`
	EntriesUpdated int               `json:"entries_updated"`
	EntriesDeleted int               `json:"entries_deleted"`
	Errors         []index.FileError `json:"errors"`
	DurationMs     int64             `json:"duration_ms"`
}

func (s *Server) indexHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexInput) (*mcp.CallToolResult, IndexOutput, error) {
	// The orchestrator has no internal locking; hold the project lock
	// so a CLI run in another process cannot index concurrently.
	if s.opts.LockPath != "" {
		lock := flock.New(s.opts.LockPath)
		locked, err := lock.TryLockContext(ctx, indexLockRetry)
		if err != nil {
			return nil, IndexOutput{}, err
		}
		if !locked {
			return nil, IndexOutput{}, errors.New("another indexing run is in progress")
		}
		defer lock.Unlock()
	}

	result, err := s.orch.Index(ctx, index.Options{Force: input.Force, DryRun: input.DryRun})
	if err != nil {
		return nil, IndexOutput{}, err
	}

	return nil, IndexOutput{
		FilesProcessed: result.FilesProcessed,
		FilesSkipped:   result.FilesSkipped,
		EntriesCreated: result.EntriesCreated,
		EntriesUpdated: result.EntriesUpdated,
		EntriesDeleted: result.EntriesDeleted,
		Errors:         result.Errors,
		DurationMs:     result.Duration.Milliseconds(),
	}, nil
}

// StatusInput is the memory_status tool input.
type StatusInput struct{}

// StatusOutput is the memory_status tool output.
type StatusOutput struct {
	Entries           int    `json:"entries"`
	TrackedFiles      int    `json:"tracked_files"`
	LastIndexedAt     string `json:"last_indexed_at,omitempty"`
	DiscoveryComplete bool   `json:"discovery_complete"`
	Version           string `json:"version"`
}

func (s *Server) statusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	count, err := s.entries.Count(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	record, err := s.meta.Load()
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		Entries:           count,
		TrackedFiles:      len(record.FileHashes),
		DiscoveryComplete: record.Discovery.Complete,
		Version:           version.Version,
	}
	if !record.LastIndexedAt.IsZero() {
		out.LastIndexedAt = record.LastIndexedAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

// PromoteInput is the memory_promote tool input.
type PromoteInput struct {
	ID string `json:"id" jsonschema:"id of the entry to promote"`
}

// PromoteOutput is the memory_promote tool output.
type PromoteOutput struct {
	Promoted bool `json:"promoted"`
}

func (s *Server) promoteHandler(ctx context.Context, _ *mcp.CallToolRequest, input PromoteInput) (*mcp.CallToolResult, PromoteOutput, error) {
	if err := s.entries.Promote(ctx, input.ID); err != nil {
		return nil, PromoteOutput{}, err
	}
	return nil, PromoteOutput{Promoted: true}, nil
}
