package evaluator

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// structuredResult mirrors the JSON shape evaluators are asked for.
type structuredResult struct {
	Truth            float64  `json:"truth"`
	Indeterminacy    float64  `json:"indeterminacy"`
	Falsehood        float64  `json:"falsehood"`
	Reasoning        string   `json:"reasoning"`
	PatternsObserved []string `json:"patterns_observed"`
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseStrict attempts a structured decode: the raw text as JSON, then the
// contents of a markdown code block, then the outermost brace span. Models
// rarely return bare JSON even when told to, so all three are part of the
// strict path.
func parseStrict(raw string) (structuredResult, bool) {
	if result, ok := decodeResult(strings.TrimSpace(raw)); ok {
		return result, true
	}

	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if result, ok := decodeResult(strings.TrimSpace(matches[1])); ok {
			return result, true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if result, ok := decodeResult(raw[start : end+1]); ok {
			return result, true
		}
	}

	return structuredResult{}, false
}

// decodeResult unmarshals a candidate JSON object and requires all three
// scalar keys to be present, so an unrelated JSON blob does not pass as an
// all-zero assessment.
func decodeResult(candidate string) (structuredResult, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &keys); err != nil {
		return structuredResult{}, false
	}
	for _, k := range []string{"truth", "indeterminacy", "falsehood"} {
		if _, ok := keys[k]; !ok {
			return structuredResult{}, false
		}
	}
	var result structuredResult
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return structuredResult{}, false
	}
	return result, true
}

var (
	truthRe    = regexp.MustCompile(`(?i)\btruth\b\s*(?:value|score)?\s*[:=]?\s*([01](?:\.\d+)?)`)
	indetRe    = regexp.MustCompile(`(?i)\bindeterminacy\b\s*(?:value|score)?\s*[:=]?\s*([01](?:\.\d+)?)`)
	falseRe    = regexp.MustCompile(`(?i)\bfalsehood\b\s*(?:value|score)?\s*[:=]?\s*([01](?:\.\d+)?)`)
	patternsRe = regexp.MustCompile(`(?i)\bpatterns?(?:\s+observed)?\s*[:=]\s*([^\n]+)`)
)

// parseFallback pulls the same fields out of unstructured text. All three
// scalars must be present; patterns are optional and the full text becomes
// the reasoning.
func parseFallback(raw string) (structuredResult, bool) {
	t, okT := matchFloat(truthRe, raw)
	i, okI := matchFloat(indetRe, raw)
	f, okF := matchFloat(falseRe, raw)
	if !okT || !okI || !okF {
		return structuredResult{}, false
	}

	result := structuredResult{
		Truth:         t,
		Indeterminacy: i,
		Falsehood:     f,
		Reasoning:     strings.TrimSpace(raw),
	}
	if m := patternsRe.FindStringSubmatch(raw); len(m) > 1 {
		result.PatternsObserved = splitPatterns(m[1])
	}
	return result, true
}

func matchFloat(re *regexp.Regexp, raw string) (float64, bool) {
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.Trim(strings.TrimSpace(p), `"'[]`)
		if p != "" && !strings.EqualFold(p, "none") {
			out = append(out, p)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
