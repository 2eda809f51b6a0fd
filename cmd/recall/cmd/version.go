package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.GetInfo()
			fmt.Fprintf(os.Stdout, "recall %s\n", info.Version)
			fmt.Fprintf(os.Stdout, "  commit: %s\n", info.Commit)
			fmt.Fprintf(os.Stdout, "  built:  %s\n", info.Date)
			fmt.Fprintf(os.Stdout, "  go:     %s\n", info.GoVersion)
		},
	}
}
