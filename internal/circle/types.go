package circle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by NewEngine before any dialogue state exists.
var ErrInvalidConfig = errors.New("circle: invalid config")

// ParticipantStatus tracks a voice's standing within a dialogue.
type ParticipantStatus string

const (
	// StatusActive participants are dispatched each round and counted for quorum.
	StatusActive ParticipantStatus = "active"
	// StatusZombie participants failed mid-dialogue; their earlier assessments
	// stay in history but they never rejoin rounds or consensus.
	StatusZombie ParticipantStatus = "zombie"
	// StatusExcluded participants never contributed (or were removed up front).
	StatusExcluded ParticipantStatus = "excluded"
)

// Participant is one evaluator voice in the circle.
type Participant struct {
	ID     string            `json:"id"`
	Status ParticipantStatus `json:"status"`
	// FailedRound is the round in which the participant went zombie (0 if never).
	FailedRound int `json:"failed_round,omitempty"`
}

// FailurePolicy decides what a single participant failure does to the dialogue.
type FailurePolicy string

const (
	// PolicyStrict aborts the whole dialogue on the first participant failure.
	PolicyStrict FailurePolicy = "strict"
	// PolicyResilient turns the failed participant into a zombie and continues
	// while quorum holds.
	PolicyResilient FailurePolicy = "resilient"
)

// DialogueState is the engine's state machine position.
type DialogueState string

const (
	StateInitializing DialogueState = "initializing"
	StateRound        DialogueState = "round"
	StateQuorumCheck  DialogueState = "quorum_check"
	StateFinalizing   DialogueState = "finalizing"
	StateConcluded    DialogueState = "concluded"
	StateAborted      DialogueState = "aborted"
)

// FailureReason classifies why a participant call produced no assessment.
type FailureReason string

const (
	FailureTimeout     FailureReason = "timeout"
	FailureTransport   FailureReason = "transport_error"
	FailureUnparseable FailureReason = "unparseable"
)

// ParsePath reports which decode path produced an assessment, for telemetry.
type ParsePath string

const (
	ParseStrict   ParsePath = "strict"
	ParseFallback ParsePath = "fallback"
)

// Assessment is one participant's three-valued judgment for one round.
// Truth, Indeterminacy and Falsehood are independent scalars in [0,1].
type Assessment struct {
	ParticipantID string        `json:"participant_id"`
	Truth         float64       `json:"truth"`
	Indeterminacy float64       `json:"indeterminacy"`
	Falsehood     float64       `json:"falsehood"`
	Reasoning     string        `json:"reasoning"`
	Patterns      []string      `json:"patterns_observed,omitempty"`
	ParsePath     ParsePath     `json:"parse_path"`
	Latency       time.Duration `json:"latency"`
}

// CallFailure records a participant call that yielded no assessment.
type CallFailure struct {
	ParticipantID string        `json:"participant_id"`
	Reason        FailureReason `json:"reason"`
	Detail        string        `json:"detail,omitempty"`
}

// EvalRequest is the unit of work handed to an Evaluator.
type EvalRequest struct {
	ParticipantID string
	Text          string
	Context       string
	Instructions  string
	Timeout       time.Duration
}

// Evaluator is the boundary to a single participant's model. Implementations
// must be safe for concurrent use across distinct participants. A nil failure
// means the assessment is valid; a non-nil failure means there is none.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvalRequest) (Assessment, *CallFailure)
}

// DialogueRound is the immutable record of one completed round.
type DialogueRound struct {
	Number int `json:"number"`
	// Assessments gathered this round, including any from participants that
	// went zombie in a later round. Kept for audit.
	Assessments []Assessment  `json:"assessments"`
	Failures    []CallFailure `json:"failures,omitempty"`
	// Active is the active-participant set as of the end of this round, sorted.
	Active []string `json:"active_participants"`
	// EmptyChair is the participant arguing the absent perspective ("" in round 1).
	EmptyChair   string        `json:"empty_chair,omitempty"`
	Instructions string        `json:"instructions"`
	Convergence  float64       `json:"convergence"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// Consensus is the merged final assessment: worst case on every axis.
type Consensus struct {
	Truth         float64  `json:"truth"`
	Indeterminacy float64  `json:"indeterminacy"`
	Falsehood     float64  `json:"falsehood"`
	Sources       []string `json:"sources"`
}

// PatternObservation is a named phenomenon noted across participants, with the
// strongest single-round cross-participant agreement it ever reached.
type PatternObservation struct {
	Type           string   `json:"type"`
	FirstRound     int      `json:"first_round"`
	FirstObservers []string `json:"first_observers"`
	Agreement      float64  `json:"agreement"`
	Excerpts       []string `json:"excerpts,omitempty"`
}

// Contribution summarizes one participant's part in the dialogue.
type Contribution struct {
	Status           ParticipantStatus `json:"status"`
	RoundsTaken      int               `json:"rounds_participated"`
	Evaluations      int               `json:"evaluation_count"`
	EmptyChairRounds []int             `json:"empty_chair_rounds,omitempty"`
	FirstPatterns    []string          `json:"first_patterns,omitempty"`
}

// ParticipantTiming accumulates call latencies for one participant.
type ParticipantTiming struct {
	Calls        int           `json:"calls"`
	TotalLatency time.Duration `json:"total_latency"`
}

// Metrics holds the wall-clock accounting for a dialogue.
type Metrics struct {
	TotalDuration  time.Duration                 `json:"total_duration"`
	RoundDurations []time.Duration               `json:"round_durations"`
	PerParticipant map[string]*ParticipantTiming `json:"per_participant"`
}

// FireCircleResult is the complete, replayable record of one dialogue. It is
// assembled once at completion and is the unit persisted to storage.
type FireCircleResult struct {
	DialogueID    string                  `json:"dialogue_id"`
	Prompt        string                  `json:"prompt"`
	State         DialogueState           `json:"state"`
	Rounds        []DialogueRound         `json:"rounds"`
	Consensus     *Consensus              `json:"consensus,omitempty"`
	Convergence   []float64               `json:"convergence_trajectory"`
	Contributions map[string]Contribution `json:"contributions"`
	QuorumValid   bool                    `json:"quorum_valid"`
	QuorumReason  string                  `json:"quorum_reason"`
	Patterns      []PatternObservation    `json:"patterns,omitempty"`
	Metrics       Metrics                 `json:"metrics"`
	StartedAt     time.Time               `json:"started_at"`
	CompletedAt   time.Time               `json:"completed_at"`
}

// Aborted reports whether the dialogue ended on the abort path.
func (r *FireCircleResult) Aborted() bool { return r.State == StateAborted }

// Config describes one dialogue. Participants are evaluator identifiers
// (model IDs when driven through OpenRouter).
type Config struct {
	Participants  []string
	MaxRounds     int
	MinimumViable int
	Policy        FailurePolicy
	CallTimeout   time.Duration
	Instructions  string
	Context       string
}

// Validate rejects configurations before the dialogue enters INITIALIZING.
func (c Config) Validate() error {
	if len(c.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Participants))
	for _, id := range c.Participants {
		if id == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidConfig)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidConfig, id)
		}
		seen[id] = true
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be >= 1, got %d", ErrInvalidConfig, c.MaxRounds)
	}
	if c.MinimumViable < 2 {
		return fmt.Errorf("%w: minimum viable must be >= 2, got %d", ErrInvalidConfig, c.MinimumViable)
	}
	if c.MinimumViable > len(c.Participants) {
		return fmt.Errorf("%w: minimum viable %d exceeds participant count %d",
			ErrInvalidConfig, c.MinimumViable, len(c.Participants))
	}
	if c.Policy != PolicyStrict && c.Policy != PolicyResilient {
		return fmt.Errorf("%w: unknown failure policy %q", ErrInvalidConfig, c.Policy)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: call timeout must be positive, got %s", ErrInvalidConfig, c.CallTimeout)
	}
	return nil
}
