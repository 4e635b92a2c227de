// Package store archives completed Fire Circle dialogues in SQLite. The
// engine writes once per dialogue, at completion; everything else is queries.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"firecircle/internal/circle"
)

// ErrNotFound is returned when a dialogue id has no archived result.
var ErrNotFound = errors.New("store: dialogue not found")

// Store is a SQLite-backed dialogue archive. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Summary is one row of the archive listing.
type Summary struct {
	DialogueID  string
	Prompt      string
	State       circle.DialogueState
	QuorumValid bool
	CompletedAt time.Time
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ensuring schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dialogues (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		state TEXT NOT NULL,
		quorum_valid BOOLEAN NOT NULL,
		completed_at DATETIME NOT NULL,
		result TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dialogue_participants (
		dialogue_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (dialogue_id, participant_id)
	);

	CREATE TABLE IF NOT EXISTS dialogue_patterns (
		dialogue_id TEXT NOT NULL,
		pattern_type TEXT NOT NULL,
		agreement REAL NOT NULL,
		first_round INTEGER NOT NULL,
		PRIMARY KEY (dialogue_id, pattern_type)
	);

	CREATE INDEX IF NOT EXISTS idx_participants_id ON dialogue_participants(participant_id);
	CREATE INDEX IF NOT EXISTS idx_patterns_type ON dialogue_patterns(pattern_type, agreement);
	CREATE INDEX IF NOT EXISTS idx_dialogues_completed ON dialogues(completed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save archives one completed dialogue. Saving the same dialogue id twice is
// an error; results are immutable.
func (s *Store) Save(result *circle.FireCircleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("store: marshaling result: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO dialogues (id, prompt, state, quorum_valid, completed_at, result) VALUES (?, ?, ?, ?, ?, ?)`,
		result.DialogueID, result.Prompt, string(result.State), result.QuorumValid,
		result.CompletedAt.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: saving dialogue %s: %w", result.DialogueID, err)
	}

	for id, contribution := range result.Contributions {
		_, err = tx.Exec(
			`INSERT INTO dialogue_participants (dialogue_id, participant_id, status) VALUES (?, ?, ?)`,
			result.DialogueID, id, string(contribution.Status),
		)
		if err != nil {
			return fmt.Errorf("store: saving participant %s: %w", id, err)
		}
	}

	for _, p := range result.Patterns {
		_, err = tx.Exec(
			`INSERT INTO dialogue_patterns (dialogue_id, pattern_type, agreement, first_round) VALUES (?, ?, ?, ?)`,
			result.DialogueID, p.Type, p.Agreement, p.FirstRound,
		)
		if err != nil {
			return fmt.Errorf("store: saving pattern %s: %w", p.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// Get retrieves one archived dialogue by id.
func (s *Store) Get(dialogueID string) (*circle.FireCircleResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(`SELECT result FROM dialogues WHERE id = ?`, dialogueID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dialogueID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	var result circle.FireCircleResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("store: decoding dialogue %s: %w", dialogueID, err)
	}
	return &result, nil
}

// QueryByParticipant returns ids of dialogues the participant took part in,
// newest first.
func (s *Store) QueryByParticipant(participantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT p.dialogue_id FROM dialogue_participants p
		JOIN dialogues d ON d.id = p.dialogue_id
		WHERE p.participant_id = ?
		ORDER BY d.completed_at DESC`, participantID)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// QueryByPattern returns ids of dialogues where the pattern was observed with
// at least the given agreement, newest first.
func (s *Store) QueryByPattern(patternType string, minAgreement float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT p.dialogue_id FROM dialogue_patterns p
		JOIN dialogues d ON d.id = p.dialogue_id
		WHERE p.pattern_type = ? AND p.agreement >= ?
		ORDER BY d.completed_at DESC`, patternType, minAgreement)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// List returns summaries of all archived dialogues, newest first.
func (s *Store) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, prompt, state, quorum_valid, completed_at
		FROM dialogues ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var state string
		if err := rows.Scan(&s.DialogueID, &s.Prompt, &state, &s.QuorumValid, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		s.State = circle.DialogueState(state)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
