package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/progress"
	"github.com/ziadkadry99/testkb/internal/retriever"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in knowledge base into empty collections",
	Long: `Loads the built-in fixes, code patterns, test plans and application
knowledge. Collections that already hold records are skipped, so running
seed again is safe. --file loads YAML documents in the same format instead;
it accepts a glob such as "knowledge/**/*.yaml".`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("file", "", "seed from YAML files matching this glob instead of the built-in knowledge")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	records, err := knowledge.Seed()
	if pattern, _ := cmd.Flags().GetString("file"); pattern != "" {
		records, err = knowledge.LoadSeedGlob(pattern)
	}
	if err != nil {
		return err
	}

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	loaded, err := a.retriever.Seed(ctx, records, progress.NewReporter())
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		fmt.Println("Knowledge base already seeded; nothing to do.")
	}
	for _, c := range knowledge.Collections() {
		if n, ok := loaded[c]; ok {
			fmt.Printf("  %s: loaded %d records\n", c, n)
		}
	}

	stats, err := a.retriever.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(retriever.FormatStats(stats))
	return nil
}
