package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize testkb configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the vector store backend and embedding provider, and writes a .testkb.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s (backend %s, embeddings %s). Run `testkb seed` next.\n",
			cfgFile, cfg.Store.Backend, cfg.Embedding.Provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
