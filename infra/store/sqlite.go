package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/results"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS factor_intervals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    target TEXT NOT NULL,
    scenario TEXT NOT NULL,
    factor TEXT NOT NULL,
    year_from INTEGER NOT NULL,
    year_to INTEGER NOT NULL,
    value_from REAL NOT NULL,
    value_to REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_factor_intervals_target ON factor_intervals(target);
CREATE TABLE IF NOT EXISTS time_series (
    ts_id INTEGER NOT NULL,
    year INTEGER NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY(ts_id, year)
);
CREATE TABLE IF NOT EXISTS results (
    target TEXT NOT NULL,
    year INTEGER NOT NULL,
    series TEXT NOT NULL,
    value REAL NOT NULL,
    scenario TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_target ON results(target);`

// SQLiteStore keeps all datasets in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// LoadIntervals returns the intervals of target in insertion order.
func (s *SQLiteStore) LoadIntervals(ctx context.Context, target model.Target) ([]model.FactorInterval, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT scenario, factor, year_from, year_to, value_from, value_to
        FROM factor_intervals WHERE target = ? ORDER BY id`, string(target))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.FactorInterval
	for rows.Next() {
		var sc, fa string
		iv := model.FactorInterval{Target: target}
		if err := rows.Scan(&sc, &fa, &iv.YearFrom, &iv.YearTo, &iv.ValueFrom, &iv.ValueTo); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		if iv.Scenario, err = model.ParseScenario(sc); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		if iv.Factor, err = model.ParseFactor(fa); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return out, nil
}

// SaveIntervals replaces the intervals of target in one transaction.
func (s *SQLiteStore) SaveIntervals(ctx context.Context, target model.Target, intervals []model.FactorInterval) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM factor_intervals WHERE target = ?`, string(target)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO factor_intervals
            (target, scenario, factor, year_from, year_to, value_from, value_to) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, iv := range intervals {
			if _, err := stmt.ExecContext(ctx, string(target), iv.Scenario.String(), iv.Factor.String(),
				iv.YearFrom, iv.YearTo, iv.ValueFrom, iv.ValueTo); err != nil {
				return err
			}
		}
		return nil
	})
}

// Targets lists the distinct targets with intervals.
func (s *SQLiteStore) Targets(ctx context.Context) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT target FROM factor_intervals ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.Target
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, model.Target(t))
	}
	return out, rows.Err()
}

// LoadObservations returns the observations of ids, or all of them.
func (s *SQLiteStore) LoadObservations(ctx context.Context, ids ...int) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts_id, year, value FROM time_series ORDER BY ts_id, year`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(&o.SeriesID, &o.Year, &o.Value); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		if len(want) > 0 && !want[o.SeriesID] {
			continue
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return out, nil
}

// SaveObservations replaces the historical dataset.
func (s *SQLiteStore) SaveObservations(ctx context.Context, obs []model.Observation) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM time_series`); err != nil {
			return err
		}
		for _, o := range obs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO time_series (ts_id, year, value) VALUES (?, ?, ?)
                ON CONFLICT(ts_id, year) DO UPDATE SET value = excluded.value`, o.SeriesID, o.Year, o.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveResults replaces the result rows of target.
func (s *SQLiteStore) SaveResults(ctx context.Context, target model.Target, rows []results.Row) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE target = ?`, string(target)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO results (target, year, series, value, scenario) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, string(target), r.Year, r.Series, r.Value, r.Scenario.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadResults returns the stored rows of target.
func (s *SQLiteStore) LoadResults(ctx context.Context, target model.Target) ([]results.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year, series, value, scenario FROM results
        WHERE target = ? ORDER BY rowid`, string(target))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	var out []results.Row
	for rows.Next() {
		r := results.Row{Target: target}
		var sc string
		if err := rows.Scan(&r.Year, &r.Series, &r.Value, &sc); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		if r.Scenario, err = model.ParseScenario(sc); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rollback: %v (cause: %w)", rerr, err)
		}
		return err
	}
	return tx.Commit()
}
