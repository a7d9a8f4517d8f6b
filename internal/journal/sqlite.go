package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("journal: run not found")

var _ Journal = (*SQLite)(nil)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) BeginRun(r RunRecord) error {
	status := r.Status
	if status == "" {
		status = RunRunning
	}
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, started_at, start_date, end_date, tickers, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UTC(), r.Start, r.End, r.Tickers, status, r.Error,
	)
	return err
}

// RecordTicker stores the outcome for a ticker, replacing an earlier row
// for the same run and ticker.
func (j *SQLite) RecordTicker(t TickerRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO run_tickers
		(run_id, ticker, status, row_count, path, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Ticker, t.Status, t.Rows, t.Path, t.RecordedAt.UTC(),
	)
	return err
}

func (j *SQLite) FinishRun(runID string, finishedAt time.Time, status, errMsg string) error {
	res, err := j.db.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, error = ?
		WHERE run_id = ?`,
		finishedAt.UTC(), status, errMsg, runID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, start_date, end_date, tickers, status, error
		FROM runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, start_date, end_date, tickers, status, error
		FROM runs WHERE run_id = ?`, runID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListTickers returns a run's ticker outcomes in the order they were recorded.
func (j *SQLite) ListTickers(ctx context.Context, runID string) ([]TickerRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, ticker, status, row_count, path, recorded_at
		FROM run_tickers
		WHERE run_id = ?
		ORDER BY recorded_at, rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickerRecord
	for rows.Next() {
		var t TickerRecord
		if err := rows.Scan(&t.RunID, &t.Ticker, &t.Status, &t.Rows, &t.Path, &t.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r        RunRecord
		finished sql.NullTime
	)
	err := s.Scan(&r.RunID, &r.StartedAt, &finished, &r.Start, &r.End, &r.Tickers, &r.Status, &r.Error)
	if err != nil {
		return RunRecord{}, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, nil
}
