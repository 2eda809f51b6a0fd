package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkb/recall/internal/index"
)

func TestLockedIndex_WaitsForProjectLock(t *testing.T) {
	root := newProject(t)

	app, err := openApp(root)
	require.NoError(t, err)
	defer app.Close()

	orch, err := app.newOrchestrator()
	require.NoError(t, err)

	held := flock.New(app.lockPath())
	require.NoError(t, held.Lock())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = app.lockedIndex(ctx, orch, index.Options{})
	assert.Error(t, err)

	require.NoError(t, held.Unlock())

	result, err := app.lockedIndex(context.Background(), orch, index.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
}
