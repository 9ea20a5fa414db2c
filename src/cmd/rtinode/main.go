package main

import (
	"os"

	cmd "github.com/mosaicnetworks/rtinet/src/cmd/rtinode/command"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewCreateCmd(),
		cmd.NewDestroyCmd(),
		cmd.NewListCmd(),
		cmd.NewVersionCmd(),
	)

	// Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
