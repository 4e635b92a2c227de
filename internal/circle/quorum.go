package circle

import "fmt"

// quorumVerdict is the Quorum Monitor's decision after a round.
type quorumVerdict int

const (
	quorumOK quorumVerdict = iota
	// quorumAtMinimum: the dialogue may proceed, but any further loss aborts.
	quorumAtMinimum
	quorumLost
)

// checkQuorum decides whether a dialogue with the given active count may
// proceed, must warn, or must abort.
func checkQuorum(active, minimum int) quorumVerdict {
	switch {
	case active < minimum:
		return quorumLost
	case active == minimum:
		return quorumAtMinimum
	default:
		return quorumOK
	}
}

// quorumReason renders the human-readable validity string attached to every
// result.
func quorumReason(active, minimum int, valid bool) string {
	if valid {
		return fmt.Sprintf("Valid quorum: %d active (minimum %d)", active, minimum)
	}
	return fmt.Sprintf("Aborted: %d active < minimum %d", active, minimum)
}
