package models

import (
	"fmt"
	"time"
)

// Trigger records what started a round.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// Outcome records how a round ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomeDiscarded Outcome = "discarded"
)

// RoundRecord summarizes one capture-and-analyze round for the journal.
type RoundRecord struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Sequence        uint64    `json:"sequence"`
	Trigger         Trigger   `json:"trigger"`
	Outcome         Outcome   `json:"outcome"`
	DominantEmotion string    `json:"dominant_emotion,omitempty"`
	SongsPlayed     int       `json:"songs_played"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the fields the journal indexes on.
func (r *RoundRecord) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	switch r.Trigger {
	case TriggerManual, TriggerAuto:
	default:
		return fmt.Errorf("unknown trigger %q", r.Trigger)
	}
	switch r.Outcome {
	case OutcomeOK, OutcomeError, OutcomeDiscarded:
	default:
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}
	return nil
}

// Journal persists round summaries.
type Journal interface {
	Record(record *RoundRecord) error                     // Record appends one round
	List(criteria map[string]any) ([]*RoundRecord, error) // List returns rounds matching criteria, oldest first
}
