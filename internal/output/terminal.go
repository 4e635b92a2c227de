package output

import (
	"fmt"
	"strings"

	"firecircle/internal/circle"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	AnsiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
)

// Colorize wraps s with an ANSI color code and reset.
func Colorize(color, s string) string { return color + s + ansiReset }

// Bold wraps s with ANSI bold and reset.
func Bold(s string) string { return ansiBold + s + ansiReset }

// PrintRound prints a completed round: header, each assessment, and any
// failures, followed by the round's convergence.
func PrintRound(round *circle.DialogueRound) {
	header := fmt.Sprintf("=== Round %d ===", round.Number)
	fmt.Printf("\n%s\n", Colorize(ansiBold+ansiCyan, header))
	if round.EmptyChair != "" {
		fmt.Printf("%s %s\n", Colorize(AnsiMagenta, "[empty chair]"), Bold(round.EmptyChair))
	}
	for _, a := range round.Assessments {
		fmt.Printf("%s %s T=%.2f I=%.2f F=%.2f\n  %s\n",
			Colorize(ansiYellow, fmt.Sprintf("[%d]", round.Number)),
			Bold(a.ParticipantID),
			a.Truth, a.Indeterminacy, a.Falsehood,
			a.Reasoning,
		)
	}
	for _, f := range round.Failures {
		fmt.Printf("%s %s (%s)\n",
			Colorize(ansiRed, "[failed]"),
			Bold(f.ParticipantID),
			f.Reason,
		)
	}
	fmt.Printf("Convergence (falsehood spread): %s\n",
		Colorize(ansiYellow, fmt.Sprintf("%.4f", round.Convergence)))
}

// PrintQuorum prints the quorum verdict with its recorded reason.
func PrintQuorum(valid bool, reason string) {
	color := ansiGreen
	if !valid {
		color = ansiRed
	}
	fmt.Printf("Quorum: %s\n", Colorize(ansiBold+color, reason))
}

// PrintConsensus prints the merged final assessment, or the abort notice
// when the dialogue ended without one.
func PrintConsensus(result *circle.FireCircleResult) {
	if result.Consensus == nil {
		fmt.Printf("Consensus: %s\n", Colorize(ansiBold+ansiRed, "none (dialogue aborted)"))
		return
	}
	c := result.Consensus
	fmt.Printf("Consensus: %s\n", Colorize(ansiBold+ansiGreen, "reached"))
	fmt.Printf("  truth=%.2f indeterminacy=%.2f falsehood=%.2f\n",
		c.Truth, c.Indeterminacy, c.Falsehood)
	fmt.Printf("  voices: %s\n", strings.Join(c.Sources, ", "))
}

// PrintPatterns prints cross-participant pattern observations, strongest
// agreement first.
func PrintPatterns(patterns []circle.PatternObservation) {
	if len(patterns) == 0 {
		return
	}
	fmt.Printf("\n%s\n", Colorize(ansiBold+ansiCyan, "=== Patterns ==="))
	for _, p := range patterns {
		fmt.Printf("%s agreement=%s first seen round %d by %s\n",
			Bold(p.Type),
			Colorize(ansiYellow, fmt.Sprintf("%.0f%%", p.Agreement*100)),
			p.FirstRound,
			strings.Join(p.FirstObservers, ", "),
		)
	}
}
