package circle

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventKind names one dialogue state transition.
type EventKind string

const (
	EventDialogueStart EventKind = "dialogue_start"
	EventDialogueEnd   EventKind = "dialogue_end"
	EventRoundStart    EventKind = "round_start"
	EventRoundEnd      EventKind = "round_end"
	EventCallStart     EventKind = "call_start"
	EventCallEnd       EventKind = "call_end"
	EventCallFailure   EventKind = "call_failure"
	EventQuorumWarning EventKind = "quorum_warning"
	EventQuorumAbort   EventKind = "quorum_abort"
)

// Event is the typed telemetry record emitted at every transition point.
// Zero-valued fields are omitted from the log line.
type Event struct {
	Kind         EventKind
	Round        int
	Participant  string
	Reason       string
	State        DialogueState
	ParsePath    ParsePath
	Duration     time.Duration
	ActiveBefore []string
	ActiveAfter  []string
}

// Recorder owns the dialogue correlation id, the structured event trail and
// the wall-clock accounting. It is not safe for concurrent use; the engine
// only touches it between rounds and per-call timings are recorded after the
// round's fan-out has resolved.
type Recorder struct {
	dialogueID string
	log        *zap.Logger
	startedAt  time.Time
	rounds     []time.Duration
	timings    map[string]*ParticipantTiming
}

// NewRecorder assigns a fresh dialogue correlation id. A nil logger disables
// log output but keeps the metrics trail.
func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		dialogueID: uuid.NewString(),
		log:        log,
		timings:    make(map[string]*ParticipantTiming),
	}
}

// DialogueID returns the correlation id assigned at INITIALIZING.
func (r *Recorder) DialogueID() string { return r.dialogueID }

// Emit writes one structured event to the log trail.
func (r *Recorder) Emit(ev Event) {
	fields := make([]zap.Field, 0, 9)
	fields = append(fields, zap.String("dialogue", r.dialogueID))
	if ev.Round > 0 {
		fields = append(fields, zap.Int("round", ev.Round))
	}
	if ev.Participant != "" {
		fields = append(fields, zap.String("participant", ev.Participant))
	}
	if ev.State != "" {
		fields = append(fields, zap.String("state", string(ev.State)))
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	if ev.ParsePath != "" {
		fields = append(fields, zap.String("parse_path", string(ev.ParsePath)))
	}
	if ev.Duration > 0 {
		fields = append(fields, zap.Duration("duration", ev.Duration))
	}
	if ev.ActiveBefore != nil {
		fields = append(fields, zap.Strings("active_before", ev.ActiveBefore))
	}
	if ev.ActiveAfter != nil {
		fields = append(fields, zap.Strings("active_after", ev.ActiveAfter))
	}

	switch ev.Kind {
	case EventQuorumWarning:
		r.log.Warn(string(ev.Kind), fields...)
	case EventQuorumAbort, EventCallFailure:
		r.log.Error(string(ev.Kind), fields...)
	default:
		r.log.Info(string(ev.Kind), fields...)
	}
}

// Start marks the dialogue start.
func (r *Recorder) Start() {
	r.startedAt = time.Now()
	r.Emit(Event{Kind: EventDialogueStart, State: StateInitializing})
}

// RecordRound accounts one completed (or aborted-in-flight) round's duration.
func (r *Recorder) RecordRound(d time.Duration) {
	r.rounds = append(r.rounds, d)
}

// RecordCall accounts one participant call's latency.
func (r *Recorder) RecordCall(participantID string, latency time.Duration) {
	t := r.timings[participantID]
	if t == nil {
		t = &ParticipantTiming{}
		r.timings[participantID] = t
	}
	t.Calls++
	t.TotalLatency += latency
}

// Metrics closes out the accounting and returns the dialogue's metrics.
func (r *Recorder) Metrics() Metrics {
	return Metrics{
		TotalDuration:  time.Since(r.startedAt),
		RoundDurations: r.rounds,
		PerParticipant: r.timings,
	}
}

// StartedAt returns the dialogue's start time.
func (r *Recorder) StartedAt() time.Time { return r.startedAt }
