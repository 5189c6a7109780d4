package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "unload",
		Short: "Ask the inference server to release the model",
		Run:   runUnload,
	}
	RootCmd.AddCommand(cmd)
}

func runUnload(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	if err := newClient(cfg).Unload(cmd.Context()); err != nil {
		exitErr("unload", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "model %s unloaded\n", cfg.Server.Model)
}
