package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/index"
	"github.com/recallkb/recall/internal/watcher"
)

func newWatchCmd(root *string) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the knowledge tree and reindex on changes",
		Long: `Watch runs an initial incremental index, then watches the knowledge
tree and reindexes after changes settle. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			orch, err := app.newOrchestrator()
			if err != nil {
				return err
			}

			reindex := func(ctx context.Context) error {
				result, err := app.lockedIndex(ctx, orch, index.Options{})
				if err != nil {
					return err
				}
				if result.FilesProcessed > 0 {
					fmt.Fprintf(os.Stdout, "reindexed: %d file(s), %d created, %d updated\n",
						result.FilesProcessed, result.EntriesCreated, result.EntriesUpdated)
				}
				return nil
			}

			if err := reindex(cmd.Context()); err != nil {
				return err
			}

			w, err := watcher.New(app.cfg.DocsPath(app.root), debounce, reindex, app.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "watching %s\n", app.cfg.DocsPath(app.root))
			err = w.Run(cmd.Context())
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounceWindow,
		"quiet period before reindexing")
	return cmd
}
