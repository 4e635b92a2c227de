package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"firecircle/internal/config"
)

// logger is built once in the root PersistentPreRunE and shared by every
// subcommand.
var logger *zap.Logger

func main() {
	root := &cobra.Command{
		Use:   "firecircle",
		Short: "Multi-voice consensus dialogue over unreliable LLM evaluators",
		Long: "Convenes a Fire Circle: several LLM evaluator voices assess a text over " +
			"multiple rounds, each seeing the previous round's assessments, with one voice " +
			"per round holding the empty chair for the perspective nobody represents. " +
			"The circle survives individual voice failures while quorum holds and merges " +
			"the final round into a worst-case consensus.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				cfg := zap.NewProductionConfig()
				cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
				logger, err = cfg.Build()
			}
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}

	root.PersistentFlags().String("api-key", "", "OpenRouter API key (overrides OPENROUTER_API_KEY env var)")
	root.PersistentFlags().String("archive", "", "Path to the dialogue archive database (overrides FIRECIRCLE_ARCHIVE)")
	root.PersistentFlags().String("output-dir", "", "Directory for dialogue artifacts (overrides FIRECIRCLE_OUTPUT_DIR)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Emit the full telemetry trail to stderr")

	root.AddCommand(newConveneCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newPatternsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
