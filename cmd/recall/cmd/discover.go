package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/scanner"
)

func newDiscoverCmd(root *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the project and seed discovery entries",
		Long: `Discover scans the project's source tree for languages, HTTP routes,
and public API surface, and stores the findings as searchable knowledge
entries. Safe to rerun: identical findings deduplicate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := scanner.New(app.root, app.entries, app.keywords, app.meta, app.logger)
			if err != nil {
				return err
			}

			result, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "Scanned %d files, created %d entries\n",
				result.FilesScanned, result.EntriesCreated)
			if len(result.Languages) > 0 {
				langs := make([]string, 0, len(result.Languages))
				for lang := range result.Languages {
					langs = append(langs, lang)
				}
				fmt.Fprintf(os.Stdout, "Languages: %s\n", strings.Join(langs, ", "))
			}
			return nil
		},
	}
	return cmd
}
