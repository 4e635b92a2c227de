package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"firecircle/internal/config"
	"firecircle/internal/output"
	"firecircle/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived dialogues",
		RunE:  runHistory,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <dialogue-id>",
		Short: "Replay one archived dialogue",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	})
	return cmd
}

func openArchive(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	path := cfg.ArchivePath
	if flag, _ := cmd.Root().PersistentFlags().GetString("archive"); flag != "" {
		path = flag
	}
	return store.Open(path)
}

// archiveConfig loads settings without demanding an API key; reading the
// archive never talks to OpenRouter.
func archiveConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{ArchivePath: "firecircle.db"}
	}
	return cfg
}

func runHistory(cmd *cobra.Command, args []string) error {
	archive, err := openArchive(cmd, archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer archive.Close()

	summaries, err := archive.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No archived dialogues.")
		return nil
	}
	for _, s := range summaries {
		quorum := "quorum ok"
		if !s.QuorumValid {
			quorum = "no quorum"
		}
		prompt := s.Prompt
		if len(prompt) > 60 {
			prompt = prompt[:60] + "…"
		}
		fmt.Printf("%s  %s  %-9s  %-9s  %s\n",
			s.DialogueID, s.CompletedAt.Format("2006-01-02 15:04"), s.State, quorum, prompt)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	archive, err := openArchive(cmd, archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer archive.Close()

	result, err := archive.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Dialogue %s (%s)\n", result.DialogueID, result.State)
	fmt.Printf("Prompt: %s\n", result.Prompt)
	for i := range result.Rounds {
		output.PrintRound(&result.Rounds[i])
	}
	output.PrintQuorum(result.QuorumValid, result.QuorumReason)
	output.PrintConsensus(result)
	output.PrintPatterns(result.Patterns)
	return nil
}
