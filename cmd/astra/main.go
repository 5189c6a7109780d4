package main

import (
	"os"

	"github.com/astralab/astra/internal/astra/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
