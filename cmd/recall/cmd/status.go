package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/output"
	"github.com/recallkb/recall/pkg/version"
)

func newStatusCmd(root *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base status",
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

			count, err := app.entries.Count(cmd.Context())
			if err != nil {
				return err
			}
			keywordDocs, err := app.keywords.Count()
			if err != nil {
				return err
			}
			record, err := app.meta.Load()
			if err != nil {
				return err
			}

			status := output.Status{
				EntryCount:        count,
				KeywordDocs:       keywordDocs,
				TrackedFiles:      len(record.FileHashes),
				DiscoveryComplete: record.Discovery.Complete,
				DataDir:           app.cfg.DataPath(app.root),
				Version:           version.Version,
			}
			if !record.LastIndexedAt.IsZero() {
				status.LastIndexedAt = record.LastIndexedAt.Format(time.RFC3339)
			}
			return output.NewPrinter(os.Stdout, fmtOut).PrintStatus(status)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
