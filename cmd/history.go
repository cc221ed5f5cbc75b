package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/journal"
	"github.com/ziadkadry99/testkb/internal/knowledge"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently stored records in insertion order",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		limit, _ := f.GetInt("limit")
		collection, _ := f.GetString("collection")
		since, _ := f.GetDuration("since")
		asJSON, _ := f.GetBool("json")

		filter := journal.Filter{Limit: limit}
		if collection != "" {
			c, err := knowledge.ParseCollection(collection)
			if err != nil {
				return err
			}
			filter.Collection = string(c)
		}
		if since > 0 {
			t := time.Now().Add(-since)
			filter.Since = &t
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.history == nil {
			return fmt.Errorf("the journal is disabled; set journal.enabled in %s", cfgFile)
		}

		entries, err := a.history.Query(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if asJSON {
			if entries == nil {
				entries = []journal.Entry{}
			}
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No records stored yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tWHEN\tCOLLECTION\tKIND\tLABEL\tSUMMARY")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.Seq, e.CreatedAt.Local().Format(time.DateTime), e.Collection, e.Kind, e.Label, strings.Join(strings.Fields(e.Summary), " "))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().String("collection", "", "restrict to one collection")
	historyCmd.Flags().Duration("since", 0, "only entries newer than this, e.g. 24h")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}
