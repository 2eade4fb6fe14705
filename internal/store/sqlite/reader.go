package sqlite

import (
	"fmt"
	"time"

	"fxdesk/internal/model"
)

// ReadSeries returns the stored price points for a pair after the cutoff,
// ordered by timestamp ascending.
func (s *Store) ReadSeries(pair string, after time.Time) ([]model.PricePoint, error) {
	rows, err := s.db.Query(`
		SELECT ts, rate FROM rate_history
		WHERE pair = ? AND ts >= ?
		ORDER BY ts ASC
	`, pair, after.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query history: %w", err)
	}
	defer rows.Close()

	var series []model.PricePoint
	for rows.Next() {
		var tsUnix int64
		var rate float64
		if err := rows.Scan(&tsUnix, &rate); err != nil {
			return nil, fmt.Errorf("sqlite scan history: %w", err)
		}
		series = append(series, model.PricePoint{
			Timestamp: time.Unix(tsUnix, 0).UTC(),
			Close:     rate,
		})
	}
	return series, rows.Err()
}

// ReadRecent returns the most recent n price points for a pair, ordered by
// timestamp ascending.
func (s *Store) ReadRecent(pair string, n int) ([]model.PricePoint, error) {
	rows, err := s.db.Query(`
		SELECT ts, rate FROM (
			SELECT ts, rate FROM rate_history
			WHERE pair = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`, pair, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query recent: %w", err)
	}
	defer rows.Close()

	var series []model.PricePoint
	for rows.Next() {
		var tsUnix int64
		var rate float64
		if err := rows.Scan(&tsUnix, &rate); err != nil {
			return nil, fmt.Errorf("sqlite scan recent: %w", err)
		}
		series = append(series, model.PricePoint{
			Timestamp: time.Unix(tsUnix, 0).UTC(),
			Close:     rate,
		})
	}
	return series, rows.Err()
}

// Pairs returns the distinct pairs with stored history.
func (s *Store) Pairs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT pair FROM rate_history ORDER BY pair`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query pairs: %w", err)
	}
	defer rows.Close()

	var pairs []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("sqlite scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Count returns the number of stored points for a pair.
func (s *Store) Count(pair string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM rate_history WHERE pair = ?`, pair).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}
