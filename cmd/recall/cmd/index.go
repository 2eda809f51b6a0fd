package cmd

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/index"
	"github.com/recallkb/recall/internal/output"
)

func newIndexCmd(root *string) *cobra.Command {
	var (
		force  bool
		dryRun bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the knowledge tree",
		Long: `Index walks the project's markdown knowledge tree and updates the
vector and keyword indexes. Unchanged files are skipped via content
hashes; use --force to reindex everything.

Concurrent runs against the same project are refused via a lock file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtOut, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			app, err := openApp(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			// The orchestrator has no internal locking; one run per
			// project at a time.
			lock := flock.New(app.lockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire index lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another indexing run is in progress")
			}
			defer lock.Unlock()

			orch, err := app.newOrchestrator()
			if err != nil {
				return err
			}

			printer := output.NewPrinter(os.Stdout, fmtOut)
			var progress func(path string, action index.Action)
			if fmtOut == output.FormatText {
				progress = func(path string, action index.Action) {
					fmt.Fprintf(os.Stdout, "  %-8s %s\n", action, path)
				}
			}

			result, err := orch.Index(cmd.Context(), index.Options{
				Force:      force,
				DryRun:     dryRun,
				OnProgress: progress,
			})
			if err != nil {
				return err
			}
			return printer.IndexResult(result, dryRun)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reindex files even when unchanged")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
