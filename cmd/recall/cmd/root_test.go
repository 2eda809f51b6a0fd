package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	docs := filepath.Join(root, "knowledge")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "auth.md"),
		[]byte("# Auth\n\nSessions are stored in signed cookies."), 0o644))
	return root
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// The printer writes to os.Stdout; capture it via a pipe.
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	execErr := cmd.Execute()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String(), execErr
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"index", "search", "discover", "watch", "serve", "status", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestIndexSearchStatusFlow(t *testing.T) {
	root := newProject(t)

	out, err := runCommand(t, "index", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "1 processed")

	_, err = os.Stat(filepath.Join(root, ".recall", "meta.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, ".recall", "entries.db"))
	assert.NoError(t, err)

	out, err = runCommand(t, "search", "signed", "cookies", "--root", root, "--min-score", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "cookies")

	out, err = runCommand(t, "status", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "entries:    1")
}

func TestIndexCmd_DryRun(t *testing.T) {
	root := newProject(t)

	out, err := runCommand(t, "index", "--root", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")

	_, err = os.Stat(filepath.Join(root, ".recall", "meta.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	_, err := runCommand(t, "search")
	assert.Error(t, err)
}
