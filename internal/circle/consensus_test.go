package circle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeConsensusWorstCaseRule(t *testing.T) {
	assessments := []Assessment{
		{ParticipantID: "c", Truth: 0.9, Indeterminacy: 0.1, Falsehood: 0.2},
		{ParticipantID: "a", Truth: 0.6, Indeterminacy: 0.4, Falsehood: 0.1},
		{ParticipantID: "b", Truth: 0.8, Indeterminacy: 0.2, Falsehood: 0.5},
	}

	c := mergeConsensus(assessments)
	require.NotNil(t, c)
	// Exact, not approximate: min truth, max indeterminacy, max falsehood.
	assert.Equal(t, 0.6, c.Truth)
	assert.Equal(t, 0.4, c.Indeterminacy)
	assert.Equal(t, 0.5, c.Falsehood)
	assert.Equal(t, []string{"a", "b", "c"}, c.Sources)
}

func TestMergeConsensusSingleAssessment(t *testing.T) {
	c := mergeConsensus([]Assessment{{ParticipantID: "solo", Truth: 0.42, Indeterminacy: 0.13, Falsehood: 0.07}})
	require.NotNil(t, c)
	assert.Equal(t, 0.42, c.Truth)
	assert.Equal(t, 0.13, c.Indeterminacy)
	assert.Equal(t, 0.07, c.Falsehood)
}

func TestMergeConsensusEmpty(t *testing.T) {
	assert.Nil(t, mergeConsensus(nil))
}

func TestConvergenceIsPopulationStdDev(t *testing.T) {
	assessments := []Assessment{
		{Falsehood: 0.2},
		{Falsehood: 0.4},
		{Falsehood: 0.6},
	}
	// Population stddev of {0.2, 0.4, 0.6} = sqrt(2/75) ≈ 0.1633.
	got := convergence(assessments)
	assert.InDelta(t, math.Sqrt(0.08/3.0), got, 1e-12)
}

func TestConvergenceIdenticalValuesIsZero(t *testing.T) {
	assessments := []Assessment{{Falsehood: 0.3}, {Falsehood: 0.3}, {Falsehood: 0.3}}
	assert.Equal(t, 0.0, convergence(assessments))
}

func TestConvergenceEmptyRound(t *testing.T) {
	assert.Equal(t, 0.0, convergence(nil))
}
