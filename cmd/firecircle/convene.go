package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"firecircle/internal/circle"
	"firecircle/internal/config"
	"firecircle/internal/evaluator"
	"firecircle/internal/models"
	"firecircle/internal/openrouter"
	"firecircle/internal/output"
)

func newConveneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convene",
		Short: "Convene a circle to assess a text",
		RunE:  runConvene,
	}
	cmd.Flags().String("text", "", "Text under evaluation (required unless --file is given)")
	cmd.Flags().String("file", "", "Read the text under evaluation from a file")
	cmd.Flags().String("context", "", "Framing context shown to every voice")
	cmd.Flags().String("instructions", "", "Base evaluation instructions")
	cmd.Flags().String("circle", "", "YAML circle definition (voices and capabilities)")
	cmd.Flags().String("name", "", "Override output folder name (default: auto-slug from text)")
	cmd.Flags().Int("voices", 0, "Number of voices to seat (overrides FIRECIRCLE_VOICES)")
	cmd.Flags().Int("max-rounds", 0, "Maximum dialogue rounds (overrides FIRECIRCLE_MAX_ROUNDS)")
	cmd.Flags().Int("min-viable", 0, "Minimum active voices for a valid quorum (overrides FIRECIRCLE_MIN_VIABLE)")
	cmd.Flags().String("policy", "", "Failure policy: strict or resilient (overrides FIRECIRCLE_POLICY)")
	return cmd
}

func runConvene(cmd *cobra.Command, args []string) error {
	if apiKey, _ := cmd.Root().PersistentFlags().GetString("api-key"); apiKey != "" {
		os.Setenv("OPENROUTER_API_KEY", apiKey)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)

	text, err := resolveText(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := openrouter.NewClient(cfg.APIKey)

	circleCtx, _ := cmd.Flags().GetString("context")
	instructions, _ := cmd.Flags().GetString("instructions")

	var participants []string
	var caps evaluator.Capabilities
	if circleFile, _ := cmd.Flags().GetString("circle"); circleFile != "" {
		def, err := config.LoadCircle(circleFile)
		if err != nil {
			return err
		}
		caps = evaluator.Capabilities{}
		for _, v := range def.Voices {
			participants = append(participants, v.ID)
			caps[v.ID] = v.Structured
		}
		if instructions == "" {
			instructions = def.Instructions
		}
		if circleCtx == "" {
			circleCtx = def.Context
		}
	} else {
		participants, caps, err = seatVoices(ctx, client, cfg)
		if err != nil {
			return err
		}
	}

	dialogueCfg := circle.Config{
		Participants:  participants,
		MaxRounds:     cfg.MaxRounds,
		MinimumViable: cfg.MinimumViable,
		Policy:        circle.FailurePolicy(cfg.Policy),
		CallTimeout:   cfg.CallTimeout,
		Instructions:  instructions,
		Context:       circleCtx,
	}

	slug, _ := cmd.Flags().GetString("name")
	if slug == "" {
		slug = output.GenerateSlug(text)
	}
	outDir, err := output.CreateOutputDir(cfg.OutputDir, slug)
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	writer := output.NewWriter(outDir)

	rec := circle.NewRecorder(logger)
	engine, err := circle.NewEngine(text, dialogueCfg, evaluator.NewAdapter(client, caps), rec)
	if err != nil {
		return err
	}
	engine.OnRound = func(round circle.DialogueRound) {
		output.PrintRound(&round)
		writer.Log(fmt.Sprintf("round %d done: %d assessments, %d failures, convergence %.4f",
			round.Number, len(round.Assessments), len(round.Failures), round.Convergence))
	}
	engine.OnState = func(state circle.DialogueState) {
		writer.Log(fmt.Sprintf("state: %s", state))
	}

	fmt.Printf("Circle: %d voices | Rounds: up to %d | Policy: %s | Output: %s\n",
		len(participants), cfg.MaxRounds, cfg.Policy, outDir)

	result, runErr := engine.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "dialogue interrupted: %v\n", runErr)
	}

	if err := writer.WriteJSON(result); err != nil {
		return err
	}
	if err := writer.WriteMarkdown(result); err != nil {
		return err
	}

	archive, err := openArchive(cmd, cfg)
	if err != nil {
		return err
	}
	defer archive.Close()
	if err := archive.Save(result); err != nil {
		logger.Warn("archiving dialogue failed", zap.Error(err))
	}

	output.PrintQuorum(result.QuorumValid, result.QuorumReason)
	output.PrintConsensus(result)
	output.PrintPatterns(result.Patterns)
	fmt.Printf("\nDialogue %s saved to %s\n", result.DialogueID, outDir)
	return runErr
}

// seatVoices picks participants from the live model catalog, falling back
// to the known free list when the catalog is unreachable.
func seatVoices(ctx context.Context, client *openrouter.Client, cfg *config.Config) ([]string, evaluator.Capabilities, error) {
	catalog, err := client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not fetch models: %v. Using defaults.\n", err)
		catalog = models.DefaultVoices()
	}
	registry := models.NewRegistry(catalog)
	if len(registry.FreeModels()) == 0 {
		registry = models.NewRegistry(models.DefaultVoices())
	}
	selected := registry.SelectVoices(cfg.VoiceCount)
	if len(selected) < cfg.MinimumViable {
		return nil, nil, fmt.Errorf("only %d voices available, need at least %d", len(selected), cfg.MinimumViable)
	}

	participants := make([]string, len(selected))
	caps := evaluator.Capabilities{}
	for i, m := range selected {
		participants[i] = m.ID
		caps[m.ID] = models.Structured(m.ID)
	}
	return participants, caps, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if n, _ := cmd.Flags().GetInt("voices"); n > 0 {
		cfg.VoiceCount = n
	}
	if n, _ := cmd.Flags().GetInt("max-rounds"); n > 0 {
		cfg.MaxRounds = n
	}
	if n, _ := cmd.Flags().GetInt("min-viable"); n > 0 {
		cfg.MinimumViable = n
	}
	if p, _ := cmd.Flags().GetString("policy"); p != "" {
		cfg.Policy = p
	}
	if d, _ := cmd.Root().PersistentFlags().GetString("output-dir"); d != "" {
		cfg.OutputDir = d
	}
	if a, _ := cmd.Root().PersistentFlags().GetString("archive"); a != "" {
		cfg.ArchivePath = a
	}
}

func resolveText(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("--text and --file are mutually exclusive")
	case text != "":
		return text, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("a text is required: set --text or --file")
	}
}
