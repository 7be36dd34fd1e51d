package repositories

import (
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
)

// RoundRepository implements [models.Journal] on SQLite.
type RoundRepository struct {
	db *sql.DB
}

// NewRoundRepository creates a new RoundRepository with the given database connection
func NewRoundRepository(db *sql.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

const roundColumns = `id, session_id, sequence, trigger, outcome, dominant_emotion, songs_played, error, created_at`

// Record inserts a round. A missing ID or timestamp is filled in.
func (r *RoundRepository) Record(round *models.RoundRecord) error {
	if round.ID == "" {
		round.ID = shared.GenerateID()
	}
	if round.CreatedAt.IsZero() {
		round.CreatedAt = time.Now().UTC()
	}

	if err := round.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO rounds (` + roundColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		round.ID,
		round.SessionID,
		round.Sequence,
		string(round.Trigger),
		string(round.Outcome),
		round.DominantEmotion,
		round.SongsPlayed,
		round.Error,
		round.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	return nil
}

// Get retrieves a round by ID.
func (r *RoundRepository) Get(id string) (*models.RoundRecord, error) {
	row := r.db.QueryRow(`SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id)
	round, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("round not found: %s", id)
	}
	return round, err
}

// List returns rounds oldest first. Supported criteria:
//   - "session_id", "trigger", "outcome", "emotion": exact string matches
//   - "since": [time.Time] lower bound on created_at
//   - "limit": int, keeps only the most recent rounds
func (r *RoundRepository) List(criteria map[string]any) ([]*models.RoundRecord, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE 1 = 1`
	args := []any{}

	for key, column := range map[string]string{
		"session_id": "session_id",
		"trigger":    "trigger",
		"outcome":    "outcome",
		"emotion":    "dominant_emotion",
	} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + column + " = ?"
			args = append(args, v)
		}
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since)
	}

	query += " ORDER BY created_at DESC, sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.RoundRecord
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	slices.Reverse(rounds)
	return rounds, nil
}

// EmotionCounts tallies successful rounds by dominant emotion, optionally for one session.
func (r *RoundRepository) EmotionCounts(sessionID string) (map[string]int, error) {
	query := `
		SELECT dominant_emotion, COUNT(*)
		FROM rounds
		WHERE outcome = ? AND dominant_emotion != ''
	`
	args := []any{string(models.OutcomeOK)}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " GROUP BY dominant_emotion"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count emotions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			emotion string
			n       int
		)
		if err := rows.Scan(&emotion, &n); err != nil {
			return nil, fmt.Errorf("failed to scan emotion count: %w", err)
		}
		counts[emotion] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(s scanner) (*models.RoundRecord, error) {
	var (
		round   models.RoundRecord
		trigger string
		outcome string
	)

	err := s.Scan(
		&round.ID,
		&round.SessionID,
		&round.Sequence,
		&trigger,
		&outcome,
		&round.DominantEmotion,
		&round.SongsPlayed,
		&round.Error,
		&round.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}

	round.Trigger = models.Trigger(trigger)
	round.Outcome = models.Outcome(outcome)
	return &round, nil
}
