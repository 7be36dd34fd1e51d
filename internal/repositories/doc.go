// Package repositories implements SQLite persistence for the round journal.
//
// [RoundRepository] implements [models.Journal]: one row per finished
// capture-and-analyze round, keyed by a UUID and ordered by creation time and
// the controller's sequence number. Rows are append-only.
package repositories
