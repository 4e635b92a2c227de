package circle

import (
	"sort"
	"strings"
)

const maxPatternExcerpts = 3

// extractPatterns scans the full round history for named pattern observations
// and scores cross-participant agreement. The vocabulary is the union of every
// pattern string any participant declared, across all rounds (zombie rounds
// included). A participant counts as mentioning a pattern in a round if it
// declared it or its reasoning contains the name, case-insensitively, and it
// was active at the end of that round. Agreement is the best single-round
// fraction the pattern reached. Informational only; never feeds back into
// consensus.
func extractPatterns(rounds []DialogueRound) []PatternObservation {
	vocabulary := make(map[string]string) // lowercase -> first-seen spelling
	var order []string
	for _, round := range rounds {
		for _, a := range round.Assessments {
			for _, p := range a.Patterns {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				key := strings.ToLower(p)
				if _, ok := vocabulary[key]; !ok {
					vocabulary[key] = p
					order = append(order, key)
				}
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	observations := make([]PatternObservation, 0, len(order))
	for _, key := range order {
		obs := scorePattern(key, vocabulary[key], rounds)
		if obs.FirstRound > 0 {
			observations = append(observations, obs)
		}
	}
	sort.Slice(observations, func(i, j int) bool {
		if observations[i].Agreement != observations[j].Agreement {
			return observations[i].Agreement > observations[j].Agreement
		}
		return observations[i].Type < observations[j].Type
	})
	return observations
}

func scorePattern(key, spelling string, rounds []DialogueRound) PatternObservation {
	obs := PatternObservation{Type: spelling}
	for _, round := range rounds {
		active := make(map[string]bool, len(round.Active))
		for _, id := range round.Active {
			active[id] = true
		}
		if len(round.Active) == 0 {
			continue
		}

		var mentioners []string
		for _, a := range round.Assessments {
			if !active[a.ParticipantID] || !mentions(a, key) {
				continue
			}
			mentioners = append(mentioners, a.ParticipantID)
			if len(obs.Excerpts) < maxPatternExcerpts {
				obs.Excerpts = append(obs.Excerpts, excerpt(a.Reasoning))
			}
		}
		if len(mentioners) == 0 {
			continue
		}
		sort.Strings(mentioners)
		if obs.FirstRound == 0 {
			obs.FirstRound = round.Number
			obs.FirstObservers = mentioners
		}
		agreement := float64(len(mentioners)) / float64(len(round.Active))
		if agreement > obs.Agreement {
			obs.Agreement = agreement
		}
	}
	return obs
}

func mentions(a Assessment, lowerPattern string) bool {
	for _, p := range a.Patterns {
		if strings.ToLower(strings.TrimSpace(p)) == lowerPattern {
			return true
		}
	}
	return strings.Contains(strings.ToLower(a.Reasoning), lowerPattern)
}

func excerpt(reasoning string) string {
	const limit = 160
	reasoning = strings.TrimSpace(reasoning)
	if len(reasoning) <= limit {
		return reasoning
	}
	return reasoning[:limit] + "…"
}
