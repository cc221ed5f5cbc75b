package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/retriever"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Store a record in a knowledge collection",
	Long: `Stores a new record. Records are never overwritten: storing a corrected
fix adds a new record next to the old one. Unknown types and actions are
stored as "other".`,
}

var storeFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Store a fix that passed re-verification",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		msg, _ := f.GetString("error")
		fix, _ := f.GetString("fix")
		typ, _ := f.GetString("type")
		testFile, _ := f.GetString("test-file")
		rate, _ := f.GetFloat64("success-rate")
		return runStore(cmd, func(ctx context.Context, r *retriever.Retriever) (string, error) {
			return r.StoreSuccessfulFix(ctx, retriever.FixInput{
				ErrorMessage: msg,
				FixApplied:   fix,
				ErrorType:    knowledge.ErrorType(typ),
				TestFile:     testFile,
				SuccessRate:  rate,
			})
		})
	},
}

var storePatternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Store a reusable code pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		desc, _ := f.GetString("description")
		code, _ := f.GetString("code")
		typ, _ := f.GetString("type")
		lang, _ := f.GetString("language")
		return runStore(cmd, func(ctx context.Context, r *retriever.Retriever) (string, error) {
			return r.StoreCodePattern(ctx, retriever.PatternInput{
				Description: desc,
				Code:        code,
				PatternType: knowledge.PatternType(typ),
				Language:    lang,
			})
		})
	},
}

var storePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Store a test plan template",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		scenario, _ := f.GetString("scenario")
		steps, _ := f.GetString("steps")
		typ, _ := f.GetString("type")
		return runStore(cmd, func(ctx context.Context, r *retriever.Retriever) (string, error) {
			return r.StoreTestPlan(ctx, retriever.PlanInput{
				Scenario: scenario,
				Steps:    steps,
				PlanType: knowledge.PlanType(typ),
			})
		})
	},
}

var storeAppCmd = &cobra.Command{
	Use:   "app",
	Short: "Cache the narrative of a UI exploration",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		scenario, _ := f.GetString("scenario")
		action, _ := f.GetString("action")
		module, _ := f.GetString("module")
		narrative, _ := f.GetString("narrative")
		return runStore(cmd, func(ctx context.Context, r *retriever.Retriever) (string, error) {
			return r.StoreApplicationKnowledge(ctx, retriever.AppInput{
				Scenario:  scenario,
				Action:    knowledge.Action(action),
				Module:    module,
				Narrative: narrative,
			})
		})
	},
}

func runStore(cmd *cobra.Command, store func(context.Context, *retriever.Retriever) (string, error)) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := store(cmd.Context(), a.retriever)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func init() {
	storeFixCmd.Flags().String("error", "", "error message the fix resolves")
	storeFixCmd.Flags().String("fix", "", "the fix that was applied")
	storeFixCmd.Flags().String("type", "other", "error type: "+joinValues(knowledge.ErrorTypes()))
	storeFixCmd.Flags().String("test-file", "", "test file the fix was applied to")
	storeFixCmd.Flags().Float64("success-rate", retriever.DefaultSuccessRate, "success rate percentage (0-100)")
	_ = storeFixCmd.MarkFlagRequired("error")
	_ = storeFixCmd.MarkFlagRequired("fix")

	storePatternCmd.Flags().String("description", "", "what the pattern does")
	storePatternCmd.Flags().String("code", "", "the code snippet")
	storePatternCmd.Flags().String("type", "other", "pattern type: "+joinValues(knowledge.PatternTypes()))
	storePatternCmd.Flags().String("language", "typescript", "programming language")
	_ = storePatternCmd.MarkFlagRequired("description")

	storePlanCmd.Flags().String("scenario", "", "scenario the plan covers")
	storePlanCmd.Flags().String("steps", "", "plan steps")
	storePlanCmd.Flags().String("type", "other", "plan type: "+joinValues(knowledge.PlanTypes()))
	_ = storePlanCmd.MarkFlagRequired("scenario")

	storeAppCmd.Flags().String("scenario", "", "scenario that was explored")
	storeAppCmd.Flags().String("action", "", "UI action: create, edit, delete, view, navigate")
	storeAppCmd.Flags().String("module", "", "application module")
	storeAppCmd.Flags().String("narrative", "", "navigation steps, locators and observations")
	_ = storeAppCmd.MarkFlagRequired("scenario")
	_ = storeAppCmd.MarkFlagRequired("action")
	_ = storeAppCmd.MarkFlagRequired("narrative")

	storeCmd.AddCommand(storeFixCmd, storePatternCmd, storePlanCmd, storeAppCmd)
	rootCmd.AddCommand(storeCmd)
}
