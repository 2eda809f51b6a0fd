package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkb/recall/internal/embed"
	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/meta"
	"github.com/recallkb/recall/internal/store"
)

func newTestScanner(t *testing.T, root string) (*Scanner, *store.EntryStore, *meta.Store) {
	t.Helper()

	entries, err := store.OpenEntryStore("", embed.NewStaticEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { entries.Close() })

	metaStore := meta.NewStore(filepath.Join(root, ".recall"))

	s, err := New(root, entries, nil, metaStore, nil)
	require.NoError(t, err)
	return s, entries, metaStore
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRun_DetectsLanguagesAndExports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "server/main.go", `package main

func StartServer(addr string) error { return nil }

type RequestHandler struct{}

func helper() {}
`)
	writeFile(t, root, "web/app.ts", `export function renderPage(name: string) {}
const internal = 1
`)
	writeFile(t, root, "README.txt", "not source")

	s, entries, _ := newTestScanner(t, root)
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesScanned)
	assert.Equal(t, map[string]int{"Go": 1, "TypeScript": 1}, result.Languages)
	assert.Greater(t, result.EntriesCreated, 0)

	stored, err := entries.List(context.Background(), memory.CategoryDiscovery, 50)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	var all string
	for _, e := range stored {
		assert.Equal(t, memory.SourceDiscovery, e.Metadata.Source)
		all += e.Content + "\n"
	}
	assert.Contains(t, all, "Go")
	assert.Contains(t, all, "StartServer")
	assert.Contains(t, all, "RequestHandler")
	assert.Contains(t, all, "renderPage")
	assert.NotContains(t, all, "helper")
}

func TestRun_ExtractsExportsAcrossLanguages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/config.py", `def load_config(path):
    return {}

def _helper():
    pass

class Store:
    pass
`)
	writeFile(t, root, "src/lib.rs", `pub fn parse(input: &str) -> Token {}

pub struct Token {}

fn internal_only() {}
`)
	writeFile(t, root, "src/Main.java", `public class Main {
    private void run() {}
}
`)
	writeFile(t, root, "jobs/worker.rb", `class Worker
  def perform
  end
end
`)

	s, entries, _ := newTestScanner(t, root)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	stored, err := entries.List(context.Background(), memory.CategoryDiscovery, 50)
	require.NoError(t, err)

	var all string
	for _, e := range stored {
		all += e.Content + "\n"
	}
	assert.Contains(t, all, "load_config")
	assert.Contains(t, all, "Store")
	assert.Contains(t, all, "parse")
	assert.Contains(t, all, "Token")
	assert.Contains(t, all, "Main")
	assert.Contains(t, all, "Worker")
	assert.NotContains(t, all, "_helper")
	assert.NotContains(t, all, "internal_only")
}

func TestRun_FindsRoutes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/routes.go", `package api

func register(mux *http.ServeMux) {
	mux.HandleFunc("/api/users", listUsers)
	mux.HandleFunc("/api/users", createUser)
}
`)
	writeFile(t, root, "web/server.js", `app.get("/health", handler)
`)

	s, _, _ := newTestScanner(t, root)
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/users", "/health"}, result.Routes)
}

func TestRun_MarksDiscoveryComplete(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	s, _, metaStore := newTestScanner(t, root)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	record, err := metaStore.Load()
	require.NoError(t, err)
	assert.True(t, record.Discovery.Complete)
	require.NotNil(t, record.Discovery.LastRunAt)
}

func TestRun_SkipsVendoredAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, "node_modules/pkg/index.js", "export function x() {}\n")
	writeFile(t, root, ".git/hooks/sample.py", "x = 1\n")
	writeFile(t, root, "real.go", "package real\n")

	s, _, _ := newTestScanner(t, root)
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesScanned)
}

func TestRun_RepeatedRunsConverge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc Run() {}\n")

	s, entries, _ := newTestScanner(t, root)
	ctx := context.Background()

	_, err := s.Run(ctx)
	require.NoError(t, err)
	firstCount, err := entries.Count(ctx)
	require.NoError(t, err)

	_, err = s.Run(ctx)
	require.NoError(t, err)
	secondCount, err := entries.Count(ctx)
	require.NoError(t, err)

	assert.Equal(t, firstCount, secondCount, "identical facts must dedup")
}
