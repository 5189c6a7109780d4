package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astralab/astra/common/version"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "astra "+version.Info())
		},
	})
}
