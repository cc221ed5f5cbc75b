package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "testkb",
	Short: "Knowledge cache for browser test agents",
	Long: `testkb stores what browser test agents learn (UI explorations, code
patterns, test plans and proven fixes) in a vector store, so that later
runs can reuse them instead of calling the LLM again. Agents reach it
over MCP, an HTTP API or this CLI.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "use an in-memory store and no journal")
}
