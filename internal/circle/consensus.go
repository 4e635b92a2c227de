package circle

import (
	"math"
	"sort"
)

// mergeConsensus applies the security-first rule over the given assessments:
// truth takes the minimum, indeterminacy and falsehood take the maximum, so
// the worst-case reading on every axis dominates. Returns nil for an empty
// input (an aborted dialogue with no surviving final round).
func mergeConsensus(assessments []Assessment) *Consensus {
	if len(assessments) == 0 {
		return nil
	}
	c := &Consensus{
		Truth:         assessments[0].Truth,
		Indeterminacy: assessments[0].Indeterminacy,
		Falsehood:     assessments[0].Falsehood,
	}
	for _, a := range assessments {
		c.Truth = math.Min(c.Truth, a.Truth)
		c.Indeterminacy = math.Max(c.Indeterminacy, a.Indeterminacy)
		c.Falsehood = math.Max(c.Falsehood, a.Falsehood)
		c.Sources = append(c.Sources, a.ParticipantID)
	}
	sort.Strings(c.Sources)
	return c
}

// convergence is the population standard deviation of falsehood values among a
// round's assessments. A decreasing sequence across rounds means the circle is
// converging; it is reported, never acted on.
func convergence(assessments []Assessment) float64 {
	n := len(assessments)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, a := range assessments {
		mean += a.Falsehood
	}
	mean /= float64(n)

	var variance float64
	for _, a := range assessments {
		d := a.Falsehood - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(n))
}
