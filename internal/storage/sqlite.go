package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/models"
)

// Store is a SQLite database holding observations and run history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debug("sqlite store opened: %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS volume_observations (
			app             TEXT    NOT NULL,
			message_type    TEXT    NOT NULL,
			week_start_date TEXT    NOT NULL,
			volume          INTEGER NOT NULL CHECK (volume >= 0),
			PRIMARY KEY (app, message_type, week_start_date)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT    PRIMARY KEY,
			check_date  TEXT    NOT NULL,
			sensitivity TEXT    NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			evaluated   INTEGER NOT NULL,
			skipped     INTEGER NOT NULL,
			alert_count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_check_date ON runs(check_date)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id             TEXT NOT NULL,
			run_id         TEXT NOT NULL REFERENCES runs(id),
			app            TEXT NOT NULL,
			message_type   TEXT NOT NULL,
			check_date     TEXT NOT NULL,
			current_volume REAL,
			threshold      REAL,
			mean_volume    REAL,
			recent_avg     REAL,
			drop_pct       REAL,
			severity       TEXT NOT NULL,
			alert_type     TEXT NOT NULL,
			message        TEXT,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_check_date ON alerts(check_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import upserts observations in a single transaction and returns the
// number of rows written.
func (s *Store) Import(ctx context.Context, obs []models.VolumeObservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO volume_observations (app, message_type, week_start_date, volume)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (app, message_type, week_start_date) DO UPDATE SET volume = excluded.volume`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i := range obs {
		o := &obs[i]
		if err := o.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: invalid observation: %w", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, o.Key.AppID, o.Key.MessageTypeID,
			o.PeriodStart.Format(models.DateLayout), o.Count); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(obs), nil
}

// Observations returns every stored observation ordered by key and date.
func (s *Store) Observations(ctx context.Context) ([]models.VolumeObservation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT app, message_type, week_start_date, volume
		FROM volume_observations ORDER BY app, message_type, week_start_date`)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []models.VolumeObservation
	for rows.Next() {
		var (
			o    models.VolumeObservation
			date string
		)
		if err := rows.Scan(&o.Key.AppID, &o.Key.MessageTypeID, &date, &o.Count); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if o.PeriodStart, err = models.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// RecordRun stores a run and its alerts.
func (s *Store) RecordRun(ctx context.Context, run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	checkDate := run.CheckDate.Format(models.DateLayout)
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(id, check_date, sensitivity, started_at, duration_ms, evaluated, skipped, alert_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, checkDate, run.Sensitivity, run.StartedAt.Unix(), run.Duration.Milliseconds(),
		run.Evaluated, run.Skipped, len(run.Alerts)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, a := range run.Alerts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO alerts
			(id, run_id, app, message_type, check_date, current_volume, threshold, mean_volume,
			 recent_avg, drop_pct, severity, alert_type, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, run.ID, a.AppID, a.MessageTypeID, checkDate, a.ObservedCount, a.Threshold, a.Mean,
			a.RecentAvg, a.DropPct, string(a.Severity), string(a.Type), a.Message); err != nil {
			return fmt.Errorf("insert alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// AlertHistory returns stored alerts for one category, newest first.
func (s *Store) AlertHistory(ctx context.Context, key models.CategoryKey, limit int) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, check_date, current_volume, threshold, mean_volume,
			recent_avg, drop_pct, severity, alert_type, message
		FROM alerts WHERE app = ? AND message_type = ?
		ORDER BY check_date DESC, run_id DESC LIMIT ?`, key.AppID, key.MessageTypeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a := models.Alert{Key: key, AppID: key.AppID, MessageTypeID: key.MessageTypeID}
		var sev, typ string
		if err := rows.Scan(&a.ID, &a.Period, &a.ObservedCount, &a.Threshold, &a.Mean,
			&a.RecentAvg, &a.DropPct, &sev, &typ, &a.Message); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Severity = models.Severity(sev)
		a.Type = models.AlertType(typ)
		if a.PeriodStart, err = models.ParseDate(a.Period); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RunCount returns the number of recorded runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Recorder persists completed runs.
type Recorder interface {
	RecordRun(ctx context.Context, run *models.Run) error
	Close() error
}

// NopRecorder discards runs.
type NopRecorder struct{}

func (NopRecorder) RecordRun(context.Context, *models.Run) error { return nil }
func (NopRecorder) Close() error                                 { return nil }

// NewRecorder opens a Store when enabled, otherwise returns a NopRecorder.
func NewRecorder(enabled bool, path string) (Recorder, error) {
	if !enabled {
		return NopRecorder{}, nil
	}
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ Recorder = (*Store)(nil)

