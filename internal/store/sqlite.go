package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at INTEGER NOT NULL,
	start_date TEXT    NOT NULL,
	end_date   TEXT    NOT NULL,
	benchmark  TEXT    NOT NULL,
	universe   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id       INTEGER NOT NULL REFERENCES runs(id),
	strategy     TEXT    NOT NULL,
	cagr         REAL    NOT NULL,
	volatility   REAL    NOT NULL,
	sharpe       REAL    NOT NULL,
	max_drawdown REAL    NOT NULL,
	periods      INTEGER NOT NULL,
	degraded     INTEGER NOT NULL,
	PRIMARY KEY (run_id, strategy)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record and returns its assigned ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, start_date, end_date, benchmark, universe)
		 VALUES (?, ?, ?, ?, ?)`,
		run.StartedAt.UnixMilli(),
		run.Start.Format("2006-01-02"),
		run.End.Format("2006-01-02"),
		run.Benchmark,
		run.Universe,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return id, nil
}

// SaveMetrics inserts the per-strategy metrics of a run.
func (s *SQLiteStore) SaveMetrics(ctx context.Context, metrics []MetricsRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range metrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metrics (run_id, strategy, cagr, volatility, sharpe, max_drawdown, periods, degraded)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.RunID, m.Strategy, m.CAGR, nanZero(m.Volatility), nanZero(m.Sharpe), m.MaxDrawdown, m.Periods, boolInt(m.Degraded),
		); err != nil {
			return fmt.Errorf("inserting metrics for %s: %w", m.Strategy, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, start_date, end_date, benchmark, universe
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			startedMs  int64
			start, end string
		)
		if err := rows.Scan(&r.ID, &startedMs, &start, &end, &r.Benchmark, &r.Universe); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMs).UTC()
		if r.Start, err = time.Parse("2006-01-02", start); err != nil {
			return nil, fmt.Errorf("parsing run start date %q: %w", start, err)
		}
		if r.End, err = time.Parse("2006-01-02", end); err != nil {
			return nil, fmt.Errorf("parsing run end date %q: %w", end, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMetrics returns the metrics stored for a run, ordered by strategy name.
func (s *SQLiteStore) ListMetrics(ctx context.Context, runID int64) ([]MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, strategy, cagr, volatility, sharpe, max_drawdown, periods, degraded
		 FROM metrics WHERE run_id = ? ORDER BY strategy`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var out []MetricsRecord
	for rows.Next() {
		var (
			m        MetricsRecord
			degraded int
		)
		if err := rows.Scan(&m.RunID, &m.Strategy, &m.CAGR, &m.Volatility,
			&m.Sharpe, &m.MaxDrawdown, &m.Periods, &degraded); err != nil {
			return nil, fmt.Errorf("scanning metrics: %w", err)
		}
		m.Degraded = degraded != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nanZero maps the NaN undefined-metric sentinel to 0 for storage; the
// degraded flag preserves the distinction.
func nanZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
