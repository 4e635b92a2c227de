package circle

import (
	"fmt"
	"sort"
	"strings"
)

const assessmentFormat = "Assess the text for reciprocity versus extraction. Respond with your truth (degree of balanced exchange), " +
	"indeterminacy (degree of uncertainty), and falsehood (degree of extraction or manipulation), each between 0 and 1, " +
	"your reasoning, and any named patterns you observe."

// emptyChairMandate is appended to the empty-chair participant's instructions.
const emptyChairMandate = "You hold the empty chair this round. Argue the perspective absent from the circle: " +
	"the minority reading, the voice not represented in your peers' assessments. " +
	"Challenge any premature convergence you see, with genuine analytical rigor."

// buildInstructions renders the shared instructions for one round.
// Round 1 is independent; later rounds fold in every currently-active
// participant's previous-round assessment, reasoning included, so voices can
// react to their peers. Output is deterministic for identical inputs.
func buildInstructions(base string, round int, prev *DialogueRound) string {
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n")
	sb.WriteString(assessmentFormat)

	if round == 1 || prev == nil {
		sb.WriteString("\n\nThis is the opening round. Assess independently, without knowledge of other voices.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n\nRound %d. In the previous round the circle heard:\n", round)

	active := make(map[string]bool, len(prev.Active))
	for _, id := range prev.Active {
		active[id] = true
	}
	assessments := make([]Assessment, 0, len(prev.Assessments))
	for _, a := range prev.Assessments {
		if active[a.ParticipantID] {
			assessments = append(assessments, a)
		}
	}
	sort.Slice(assessments, func(i, j int) bool {
		return assessments[i].ParticipantID < assessments[j].ParticipantID
	})

	for _, a := range assessments {
		fmt.Fprintf(&sb, "\n%s assessed truth=%.2f indeterminacy=%.2f falsehood=%.2f\nReasoning: %s\n",
			a.ParticipantID, a.Truth, a.Indeterminacy, a.Falsehood, a.Reasoning)
		if len(a.Patterns) > 0 {
			fmt.Fprintf(&sb, "Patterns observed: %s\n", strings.Join(a.Patterns, ", "))
		}
	}

	sb.WriteString("\nConsider where your reading diverges from your peers and reassess.")
	return sb.String()
}

// instructionsFor returns the instructions actually sent to one participant,
// adding the empty-chair mandate when the seat is theirs.
func instructionsFor(shared, participantID, emptyChair string) string {
	if participantID != emptyChair || emptyChair == "" {
		return shared
	}
	return shared + "\n\n" + emptyChairMandate
}
