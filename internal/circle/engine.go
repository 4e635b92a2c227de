package circle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine drives one Fire Circle dialogue: N rounds of concurrent evaluator
// calls, quorum checks between rounds, empty-chair rotation, and final
// consensus extraction. Participant status and round history are owned by the
// engine and mutated only at round boundaries, never while a round's calls are
// in flight.
type Engine struct {
	text string
	cfg  Config
	eval Evaluator
	rec  *Recorder

	state        DialogueState
	participants []*Participant
	rounds       []DialogueRound
	chair        *chairRotator

	OnRound func(DialogueRound)
	OnState func(DialogueState)
}

// NewEngine validates the configuration and prepares a dialogue over the given
// text. All participants start active.
func NewEngine(text string, cfg Config, eval Evaluator, rec *Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = NewRecorder(nil)
	}
	participants := make([]*Participant, len(cfg.Participants))
	for i, id := range cfg.Participants {
		participants[i] = &Participant{ID: id, Status: StatusActive}
	}
	return &Engine{
		text:         text,
		cfg:          cfg,
		eval:         eval,
		rec:          rec,
		state:        StateInitializing,
		participants: participants,
		chair:        newChairRotator(),
	}, nil
}

// Run executes the dialogue to CONCLUDED or ABORTED and returns the complete
// result. Individual call failures are data, not errors; an aborted dialogue
// still returns its partial history. The only error Run itself returns is
// context cancellation, and even then the partial result comes with it.
func (e *Engine) Run(ctx context.Context) (*FireCircleResult, error) {
	e.rec.Start()

	aborted := false
	abortReason := ""
	for round := 1; round <= e.cfg.MaxRounds; round++ {
		e.setState(StateRound)
		aborted, abortReason = e.runRound(ctx, round)
		if aborted {
			break
		}
		if err := ctx.Err(); err != nil {
			return e.assemble(true, "Aborted: context cancelled"), fmt.Errorf("circle: %w", err)
		}
	}

	if !aborted {
		e.setState(StateFinalizing)
	}
	result := e.assemble(aborted, abortReason)
	e.setState(result.State)
	e.rec.Emit(Event{
		Kind:     EventDialogueEnd,
		State:    result.State,
		Reason:   result.QuorumReason,
		Duration: result.Metrics.TotalDuration,
	})
	return result, nil
}

// roundOutcome holds one participant's slot for the in-flight round. Slots are
// preallocated so goroutines never share mutable state.
type roundOutcome struct {
	assessment Assessment
	failure    *CallFailure
}

// runRound executes one round end to end: build instructions, fan out one call
// per active participant, await all of them, classify failures under the
// configured policy, finalize the round record, then check quorum. Returns
// whether the dialogue must abort and why.
func (e *Engine) runRound(ctx context.Context, number int) (bool, string) {
	active := e.activeParticipants()
	activeBefore := participantIDs(active)

	var prev *DialogueRound
	if len(e.rounds) > 0 {
		prev = &e.rounds[len(e.rounds)-1]
	}
	shared := buildInstructions(e.cfg.Instructions, number, prev)
	chairID := e.chair.next(activeBefore, number)

	e.rec.Emit(Event{Kind: EventRoundStart, Round: number, ActiveBefore: activeBefore})
	for _, p := range active {
		e.rec.Emit(Event{Kind: EventCallStart, Round: number, Participant: p.ID})
	}

	start := time.Now()
	outcomes := make([]roundOutcome, len(active))
	var g errgroup.Group
	for i, p := range active {
		req := EvalRequest{
			ParticipantID: p.ID,
			Text:          e.text,
			Context:       e.cfg.Context,
			Instructions:  instructionsFor(shared, p.ID, chairID),
			Timeout:       e.cfg.CallTimeout,
		}
		g.Go(func() error {
			a, f := e.eval.Evaluate(ctx, req)
			outcomes[i] = roundOutcome{assessment: a, failure: f}
			return nil
		})
	}
	// A round is complete only when every dispatched call has resolved.
	_ = g.Wait()
	duration := time.Since(start)

	var assessments []Assessment
	for i, p := range active {
		o := outcomes[i]
		if o.failure != nil {
			continue
		}
		assessments = append(assessments, o.assessment)
		e.rec.RecordCall(p.ID, o.assessment.Latency)
		e.rec.Emit(Event{
			Kind:        EventCallEnd,
			Round:       number,
			Participant: p.ID,
			ParsePath:   o.assessment.ParsePath,
			Duration:    o.assessment.Latency,
		})
	}

	var failures []CallFailure
	for i, p := range active {
		o := outcomes[i]
		if o.failure == nil {
			continue
		}
		failures = append(failures, *o.failure)
		if e.cfg.Policy == PolicyStrict {
			// The failing round never enters history under strict policy.
			e.rec.RecordRound(duration)
			reason := fmt.Sprintf("Aborted: participant %s failed in round %d (%s) under strict policy",
				p.ID, number, o.failure.Reason)
			e.rec.Emit(Event{
				Kind:         EventCallFailure,
				Round:        number,
				Participant:  p.ID,
				Reason:       string(o.failure.Reason),
				ActiveBefore: activeBefore,
				ActiveAfter:  activeBefore,
			})
			return true, reason
		}

		p.Status = StatusZombie
		p.FailedRound = number
		e.rec.Emit(Event{
			Kind:         EventCallFailure,
			Round:        number,
			Participant:  p.ID,
			Reason:       string(o.failure.Reason),
			ActiveBefore: activeBefore,
			ActiveAfter:  participantIDs(e.activeParticipants()),
		})
	}

	activeAfter := participantIDs(e.activeParticipants())
	round := DialogueRound{
		Number:       number,
		Assessments:  assessments,
		Failures:     failures,
		Active:       activeAfter,
		EmptyChair:   chairID,
		Instructions: shared,
		Convergence:  convergence(assessments),
		StartedAt:    start,
		Duration:     duration,
	}
	e.rounds = append(e.rounds, round)
	e.rec.RecordRound(duration)
	e.rec.Emit(Event{
		Kind:         EventRoundEnd,
		Round:        number,
		Duration:     duration,
		ActiveBefore: activeBefore,
		ActiveAfter:  activeAfter,
	})
	if e.OnRound != nil {
		e.OnRound(round)
	}

	e.setState(StateQuorumCheck)
	switch checkQuorum(len(activeAfter), e.cfg.MinimumViable) {
	case quorumLost:
		reason := quorumReason(len(activeAfter), e.cfg.MinimumViable, false)
		e.rec.Emit(Event{
			Kind:         EventQuorumAbort,
			Round:        number,
			Reason:       reason,
			ActiveBefore: activeBefore,
			ActiveAfter:  activeAfter,
		})
		return true, reason
	case quorumAtMinimum:
		e.rec.Emit(Event{
			Kind:   EventQuorumWarning,
			Round:  number,
			Reason: fmt.Sprintf("%d active at minimum %d, any further loss aborts", len(activeAfter), e.cfg.MinimumViable),
		})
	}
	return false, ""
}

// assemble packages the dialogue's history, consensus, patterns and metrics
// into the immutable result handed to storage.
func (e *Engine) assemble(aborted bool, abortReason string) *FireCircleResult {
	var consensus *Consensus
	if !aborted && len(e.rounds) > 0 {
		final := e.rounds[len(e.rounds)-1]
		consensus = mergeConsensus(finalAssessments(final))
	}

	patterns := extractPatterns(e.rounds)
	trajectory := make([]float64, len(e.rounds))
	for i, r := range e.rounds {
		trajectory[i] = r.Convergence
	}

	activeCount := len(e.activeParticipants())
	quorumValid := !aborted && activeCount >= e.cfg.MinimumViable
	reason := abortReason
	if !aborted {
		reason = quorumReason(activeCount, e.cfg.MinimumViable, true)
	}
	state := StateConcluded
	if aborted {
		state = StateAborted
	}

	return &FireCircleResult{
		DialogueID:    e.rec.DialogueID(),
		Prompt:        e.text,
		State:         state,
		Rounds:        e.rounds,
		Consensus:     consensus,
		Convergence:   trajectory,
		Contributions: e.contributions(patterns),
		QuorumValid:   quorumValid,
		QuorumReason:  reason,
		Patterns:      patterns,
		Metrics:       e.rec.Metrics(),
		StartedAt:     e.rec.StartedAt(),
		CompletedAt:   time.Now(),
	}
}

// contributions summarizes each participant's part across the full history.
func (e *Engine) contributions(patterns []PatternObservation) map[string]Contribution {
	out := make(map[string]Contribution, len(e.participants))
	for _, p := range e.participants {
		c := Contribution{Status: p.Status}
		for _, round := range e.rounds {
			for _, a := range round.Assessments {
				if a.ParticipantID == p.ID {
					c.RoundsTaken++
					c.Evaluations++
				}
			}
			for _, f := range round.Failures {
				if f.ParticipantID == p.ID {
					c.Evaluations++
				}
			}
			if round.EmptyChair == p.ID {
				c.EmptyChairRounds = append(c.EmptyChairRounds, round.Number)
			}
		}
		for _, obs := range patterns {
			for _, id := range obs.FirstObservers {
				if id == p.ID {
					c.FirstPatterns = append(c.FirstPatterns, obs.Type)
				}
			}
		}
		out[p.ID] = c
	}
	return out
}

func (e *Engine) activeParticipants() []*Participant {
	var active []*Participant
	for _, p := range e.participants {
		if p.Status == StatusActive {
			active = append(active, p)
		}
	}
	return active
}

func (e *Engine) setState(s DialogueState) {
	e.state = s
	if e.OnState != nil {
		e.OnState(s)
	}
}

// finalAssessments filters a round's assessments down to participants still
// active at its end: zombies' last words stay in history but never reach
// consensus.
func finalAssessments(round DialogueRound) []Assessment {
	active := make(map[string]bool, len(round.Active))
	for _, id := range round.Active {
		active[id] = true
	}
	var out []Assessment
	for _, a := range round.Assessments {
		if active[a.ParticipantID] {
			out = append(out, a)
		}
	}
	return out
}

func participantIDs(ps []*Participant) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	return ids
}
