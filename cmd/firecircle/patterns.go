package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Search the archive by observed pattern or participant",
		RunE:  runPatterns,
	}
	cmd.Flags().String("type", "", "Pattern type to search for (e.g. urgency_pressure)")
	cmd.Flags().Float64("min-agreement", 0, "Only dialogues where the pattern reached this agreement [0,1]")
	cmd.Flags().String("participant", "", "Dialogues a given voice took part in")
	return cmd
}

func runPatterns(cmd *cobra.Command, args []string) error {
	patternType, _ := cmd.Flags().GetString("type")
	minAgreement, _ := cmd.Flags().GetFloat64("min-agreement")
	participant, _ := cmd.Flags().GetString("participant")

	if patternType == "" && participant == "" {
		return fmt.Errorf("set --type or --participant")
	}

	archive, err := openArchive(cmd, archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer archive.Close()

	var ids []string
	switch {
	case patternType != "":
		ids, err = archive.QueryByPattern(patternType, minAgreement)
	default:
		ids, err = archive.QueryByParticipant(participant)
	}
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No matching dialogues.")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
