package circle

// chairRotator assigns the empty-chair role from round 2 onward. The seat goes
// to the active participant who has held it least recently (never-held counts
// as round 0), ties broken by lexical participant id so selection is
// deterministic. Zombies simply drop out of rotation; the seat is never
// reassigned retroactively.
type chairRotator struct {
	lastHeld map[string]int
}

func newChairRotator() *chairRotator {
	return &chairRotator{lastHeld: make(map[string]int)}
}

// next picks the empty chair for the given round among active participant ids.
// Returns "" for round 1 or an empty active set.
func (r *chairRotator) next(active []string, round int) string {
	if round < 2 || len(active) == 0 {
		return ""
	}
	chair := ""
	chairHeld := 0
	for _, id := range active {
		held := r.lastHeld[id]
		if chair == "" || held < chairHeld || (held == chairHeld && id < chair) {
			chair = id
			chairHeld = held
		}
	}
	r.lastHeld[chair] = round
	return chair
}
