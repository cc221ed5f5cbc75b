package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/retriever"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of records per collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.retriever.Stats(cmd.Context())
		if err != nil {
			return err
		}
		var seq int64
		if a.history != nil {
			if seq, err = a.history.LastSeq(cmd.Context()); err != nil {
				return err
			}
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out := make(map[string]int64, len(stats)+1)
			for c, n := range stats {
				out[string(c)] = int64(n)
			}
			if a.history != nil {
				out["journal_seq"] = seq
			}
			return printJSON(out)
		}
		fmt.Print(retriever.FormatStats(stats))
		if a.history != nil {
			fmt.Printf("Journal sequence: %d\n", seq)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}
