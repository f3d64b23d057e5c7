package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/issuetrail/internal/parser/formats"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the supported report formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, tool := range formats.DefaultRegistry().Tools() {
				fmt.Fprintf(w, "%s\t%s\n", tool.ID, tool.DisplayName)
			}
			return w.Flush()
		},
	}
}
