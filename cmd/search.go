package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/retriever"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a knowledge collection",
	Long: `Searches one knowledge collection with a natural language query. An
empty result prints a no-match notice; a store outage prints an
unavailable notice and exits non-zero.`,
}

var searchFixesCmd = &cobra.Command{
	Use:   "fixes [error text]",
	Short: "Find proven fixes for a test error",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, func(r *retriever.Retriever, text, typ string, n int) (*retriever.Result, error) {
			return r.SearchErrorFixesOfType(cmd.Context(), text, knowledge.ErrorType(typ), n)
		}, args)
	},
}

var searchPatternsCmd = &cobra.Command{
	Use:   "patterns [description]",
	Short: "Find reusable code patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, func(r *retriever.Retriever, text, typ string, n int) (*retriever.Result, error) {
			return r.SearchCodePatterns(cmd.Context(), text, knowledge.PatternType(typ), n)
		}, args)
	},
}

var searchPlansCmd = &cobra.Command{
	Use:   "plans [scenario]",
	Short: "Find test plan templates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, func(r *retriever.Retriever, text, typ string, n int) (*retriever.Result, error) {
			return r.SearchTestPlans(cmd.Context(), text, knowledge.PlanType(typ), n)
		}, args)
	},
}

var searchAppCmd = &cobra.Command{
	Use:   "app [scenario]",
	Short: "Find cached UI exploration and its match tier",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, _ := cmd.Flags().GetString("action")
		module, _ := cmd.Flags().GetString("module")
		return runSearch(cmd, func(r *retriever.Retriever, text, _ string, n int) (*retriever.Result, error) {
			return r.SearchApplicationKnowledge(cmd.Context(), retriever.AppQuery{
				Text:   text,
				Action: knowledge.Action(action),
				Module: module,
			}, n)
		}, args)
	},
}

type searchFunc func(r *retriever.Retriever, text, typ string, n int) (*retriever.Result, error)

func runSearch(cmd *cobra.Command, search searchFunc, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	typ, _ := cmd.Flags().GetString("type")

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := search(a.retriever, strings.Join(args, " "), typ, limit)
	return reportSearch(res, err, asJSON)
}

func init() {
	searchCmd.PersistentFlags().Int("limit", 0, "maximum number of results (default from config)")
	searchCmd.PersistentFlags().Bool("json", false, "output results as JSON")

	searchFixesCmd.Flags().String("type", "", "restrict to an error type: "+joinValues(knowledge.ErrorTypes()))
	searchPatternsCmd.Flags().String("type", "", "restrict to a pattern type: "+joinValues(knowledge.PatternTypes()))
	searchPlansCmd.Flags().String("type", "", "restrict to a plan type: "+joinValues(knowledge.PlanTypes()))
	searchAppCmd.Flags().String("action", "", "UI action (inferred from the query when omitted): "+joinValues(knowledge.Actions()))
	searchAppCmd.Flags().String("module", "", "restrict to an application module")

	searchCmd.AddCommand(searchFixesCmd, searchPatternsCmd, searchPlansCmd, searchAppCmd)
	rootCmd.AddCommand(searchCmd)
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
