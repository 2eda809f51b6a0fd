package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/output"
	"github.com/recallkb/recall/internal/search"
)

func newSearchCmd(root *string) *cobra.Command {
	var (
		mode     string
		limit    int
		category string
		minScore float64
		format   string
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search the knowledge base",
		Long: `Search runs a query against the indexed knowledge base. The default
hybrid mode fuses semantic and keyword matching; vector and keyword
modes use a single signal.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtOut, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			searchMode, err := search.ParseMode(mode)
			if err != nil {
				return err
			}
			var cat memory.Category
			if category != "" {
				cat, err = memory.ParseCategory(category)
				if err != nil {
					return err
				}
			}

			app, err := openApp(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			engine, err := app.newEngine()
			if err != nil {
				return err
			}

			opts := search.Options{
				Query:    strings.Join(args, " "),
				Limit:    limit,
				Mode:     searchMode,
				Category: cat,
				MinScore: minScore,
			}
			if opts.Limit <= 0 {
				opts.Limit = app.cfg.Search.DefaultLimit
			}
			if !cmd.Flags().Changed("min-score") {
				opts.MinScore = app.cfg.Search.MinScore
			}

			results, err := engine.Search(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return output.NewPrinter(os.Stdout, fmtOut).SearchResults(results)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "hybrid", "search mode: hybrid, vector, or keyword")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default from config)")
	cmd.Flags().StringVar(&category, "category", "", "restrict results to one category")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum similarity for vector results")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
