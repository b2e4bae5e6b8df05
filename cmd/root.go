package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var (
	configPath = "./config/walletkit.yaml"
	rootCmd    = &cobra.Command{
		Use:   "walletkit",
		Short: "Smart wallet CLI",
		Long: `CLI for the walletkit account-abstraction subsystem.

Derive counterfactual wallet addresses, send user operations through a
bundler, and manage scoped session keys.
`,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/walletkit.yaml", "Path to config file")
}
