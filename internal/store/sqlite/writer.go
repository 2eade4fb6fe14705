// Package sqlite persists rate history to a local SQLite database. One row
// per pair per minute bucket; refresh cycles within the same minute replace
// the earlier row so the history stays one-point-per-minute dense.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"fxdesk/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed rate history store. SQLite allows a single
// writer, so the connection pool is capped at one open connection and all
// writes go through batched transactions.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open creates the store, enabling WAL mode and initializing the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite store opened", "path", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_history (
			pair   TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			rate   REAL    NOT NULL,
			bid    REAL    NOT NULL,
			ask    REAL    NOT NULL,
			source TEXT    NOT NULL,
			PRIMARY KEY (pair, ts)
		);

		CREATE INDEX IF NOT EXISTS idx_rate_history_pair_ts
			ON rate_history (pair, ts DESC);
	`)
	return err
}

// UpsertRates writes a refresh cycle's rates in one transaction. Timestamps
// are bucketed to the minute so repeated refreshes inside a minute overwrite
// rather than accumulate.
func (s *Store) UpsertRates(rates []model.Rate) error {
	if len(rates) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO rate_history (pair, ts, rate, bid, ask, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rates {
		bucket := r.Timestamp.UTC().Truncate(time.Minute).Unix()
		if _, err := stmt.Exec(r.Pair, bucket, r.Rate, r.Bid, r.Ask, r.Source); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite upsert %s: %w", r.Pair, err)
		}
	}

	return tx.Commit()
}

// Prune deletes history rows older than the retention cutoff.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM rate_history WHERE ts < ?`, olderThan.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
