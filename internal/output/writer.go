package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"firecircle/internal/circle"
)

const slugMaxLen = 50

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug turns free text into a filesystem-safe slug, capped at 50
// characters.
func GenerateSlug(s string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > slugMaxLen {
		slug = slug[:slugMaxLen]
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}

// CreateOutputDir creates <base>/<slug>-<timestamp> and returns its path.
func CreateOutputDir(base, slug string) (string, error) {
	dir := filepath.Join(base, fmt.Sprintf("%s-%s", slug, time.Now().Format("20060102-150405")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("output: creating %s: %w", dir, err)
	}
	return dir, nil
}

// Writer persists dialogue artifacts into a single output directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteJSON writes the full dialogue record to dialogue.json.
func (w *Writer) WriteJSON(result *circle.FireCircleResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("output: marshaling dialogue: %w", err)
	}
	path := filepath.Join(w.dir, "dialogue.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("output: writing %s: %w", path, err)
	}
	return nil
}

// WriteMarkdown writes a human-readable report.md for the dialogue.
func (w *Writer) WriteMarkdown(result *circle.FireCircleResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Fire Circle Dialogue\n\n")
	fmt.Fprintf(&b, "**Dialogue:** %s\n\n", result.DialogueID)
	fmt.Fprintf(&b, "**Prompt:** %s\n\n", result.Prompt)
	fmt.Fprintf(&b, "**State:** %s\n\n", result.State)
	fmt.Fprintf(&b, "**Quorum:** %s\n\n", result.QuorumReason)

	for i := range result.Rounds {
		round := &result.Rounds[i]
		fmt.Fprintf(&b, "## Round %d\n\n", round.Number)
		if round.EmptyChair != "" {
			fmt.Fprintf(&b, "Empty chair: **%s**\n\n", round.EmptyChair)
		}
		for _, a := range round.Assessments {
			fmt.Fprintf(&b, "### %s\n\n", a.ParticipantID)
			fmt.Fprintf(&b, "truth=%.2f indeterminacy=%.2f falsehood=%.2f\n\n", a.Truth, a.Indeterminacy, a.Falsehood)
			fmt.Fprintf(&b, "%s\n\n", a.Reasoning)
			if len(a.Patterns) > 0 {
				fmt.Fprintf(&b, "Patterns: %s\n\n", strings.Join(a.Patterns, ", "))
			}
		}
		for _, f := range round.Failures {
			fmt.Fprintf(&b, "**%s failed** (%s)\n\n", f.ParticipantID, f.Reason)
		}
		fmt.Fprintf(&b, "Convergence: %.4f\n\n", round.Convergence)
	}

	fmt.Fprintf(&b, "## Consensus\n\n")
	if result.Consensus != nil {
		c := result.Consensus
		fmt.Fprintf(&b, "truth=%.2f indeterminacy=%.2f falsehood=%.2f\n\n", c.Truth, c.Indeterminacy, c.Falsehood)
		fmt.Fprintf(&b, "Voices: %s\n\n", strings.Join(c.Sources, ", "))
	} else {
		fmt.Fprintf(&b, "None. The dialogue aborted before consensus.\n\n")
	}

	if len(result.Patterns) > 0 {
		fmt.Fprintf(&b, "## Patterns\n\n")
		for _, p := range result.Patterns {
			fmt.Fprintf(&b, "- **%s** agreement %.0f%%, first seen round %d by %s\n",
				p.Type, p.Agreement*100, p.FirstRound, strings.Join(p.FirstObservers, ", "))
		}
		fmt.Fprintf(&b, "\n")
	}

	path := filepath.Join(w.dir, "report.md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("output: writing %s: %w", path, err)
	}
	return nil
}

// Log appends a timestamped line to dialogue.log, creating the file on
// first use. Entries land on disk immediately so a crashed run still
// leaves a trail.
func (w *Writer) Log(msg string) {
	path := filepath.Join(w.dir, "dialogue.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), msg)
}
