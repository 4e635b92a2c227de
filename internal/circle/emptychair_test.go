package circle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChairNoneInRoundOne(t *testing.T) {
	r := newChairRotator()
	assert.Empty(t, r.next([]string{"a", "b", "c"}, 1))
}

func TestChairNoneWithoutActiveParticipants(t *testing.T) {
	r := newChairRotator()
	assert.Empty(t, r.next(nil, 2))
}

// Over any window of k consecutive rounds with a stable active set of size k,
// every participant holds the chair exactly once.
func TestChairFullCoverageOverWindow(t *testing.T) {
	active := []string{"b", "a", "c"}
	r := newChairRotator()

	held := make(map[string]int)
	for round := 2; round <= 4; round++ {
		held[r.next(active, round)]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, held)

	// The next window repeats the coverage.
	for round := 5; round <= 7; round++ {
		held[r.next(active, round)]++
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 2}, held)
}

func TestChairTiesBreakLexically(t *testing.T) {
	r := newChairRotator()
	// All never held: lexically smallest id wins.
	assert.Equal(t, "alpha", r.next([]string{"gamma", "alpha", "beta"}, 2))
	// alpha now held most recently; beta is next.
	assert.Equal(t, "beta", r.next([]string{"gamma", "alpha", "beta"}, 3))
}

func TestChairSkipsZombies(t *testing.T) {
	r := newChairRotator()
	assert.Equal(t, "a", r.next([]string{"a", "b", "c"}, 2))
	// b goes zombie before round 3; the seat passes over it for good.
	assert.Equal(t, "c", r.next([]string{"a", "c"}, 3))
	assert.Equal(t, "a", r.next([]string{"a", "c"}, 4))
	assert.Equal(t, "c", r.next([]string{"a", "c"}, 5))
}

func TestChairPrefersLeastRecentHolder(t *testing.T) {
	r := newChairRotator()
	r.lastHeld["a"] = 4
	r.lastHeld["b"] = 2
	r.lastHeld["c"] = 3
	assert.Equal(t, "b", r.next([]string{"a", "b", "c"}, 5))
}
