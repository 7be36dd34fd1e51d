// package repositories provides persistence layer implementations for model types.
package repositories

import (
	"database/sql"

	"github.com/desertthunder/emotune/internal/shared"
)

// OpenJournal opens and migrates the configured database and returns a
// [RoundRepository] on it. The caller owns the returned [sql.DB].
func OpenJournal(cfg shared.DatabaseConfig) (*RoundRepository, *sql.DB, error) {
	db, err := shared.OpenJournal(cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewRoundRepository(db), db, nil
}
