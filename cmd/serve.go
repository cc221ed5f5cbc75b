package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/knowledge"
	mcpserver "github.com/ziadkadry99/testkb/internal/mcp"
	"github.com/ziadkadry99/testkb/internal/progress"
)

var serveSeed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing knowledge search and store tools to the planner, generator and healer agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if serveSeed {
			if err := seedQuietly(cmd.Context(), a); err != nil {
				return err
			}
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		stats, err := a.retriever.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "testkb MCP server started on stdio (fixes=%d, patterns=%d, plans=%d, app=%d)\n",
			stats[knowledge.CollectionFixes], stats[knowledge.CollectionPatterns],
			stats[knowledge.CollectionPlans], stats[knowledge.CollectionApplication])

		srv := mcpserver.NewServer(a.retriever, a.logger)
		return srv.Serve()
	},
}

// seedQuietly loads the built-in knowledge into empty collections without
// a progress bar.
func seedQuietly(ctx context.Context, a *app) error {
	records, err := knowledge.Seed()
	if err != nil {
		return err
	}
	loaded, err := a.retriever.Seed(ctx, records, progress.Nop{})
	if err != nil {
		return fmt.Errorf("seeding knowledge base: %w", err)
	}
	for c, n := range loaded {
		a.logger.Info("seeded collection", zap.String("collection", string(c)), zap.Int("records", n))
	}
	return nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveSeed, "seed", true, "load the built-in knowledge into empty collections at startup")
	rootCmd.AddCommand(serveCmd)
}
