package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists run history in SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// History writes come from a single sequential run.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded filesystem.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, mode, status, total_steps, started_at, completed_at, error, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Mode,
		run.Status,
		run.TotalSteps,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		run.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun updates a run's final status, error, and summary.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, runErr *string, summary string) error {
	query := `
		UPDATE runs SET status = ?, completed_at = ?, error = ?, summary = ?
		WHERE id = ?
	`
	now := time.Now()
	res, err := s.db.ExecContext(ctx, query, status, now, runErr, summary, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, mode, status, total_steps, started_at, completed_at, error, summary
		FROM runs WHERE id = ?
	`
	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Mode,
		&run.Status,
		&run.TotalSteps,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.Summary,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs in reverse start order.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `
		SELECT id, mode, status, total_steps, started_at, completed_at, error, summary
		FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(
			&run.ID,
			&run.Mode,
			&run.Status,
			&run.TotalSteps,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Error,
			&run.Summary,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AppendStepEvent records one step outcome.
func (s *SQLiteStore) AppendStepEvent(ctx context.Context, event *StepEvent) error {
	query := `
		INSERT INTO step_events (run_id, step_id, status, error, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.StepID,
		event.Status,
		event.Error,
		event.DurationMS,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append step event: %w", err)
	}
	return nil
}

// ListStepEvents returns the step events for a run in execution order.
func (s *SQLiteStore) ListStepEvents(ctx context.Context, runID string) ([]*StepEvent, error) {
	query := `
		SELECT id, run_id, step_id, status, error, duration_ms, timestamp
		FROM step_events WHERE run_id = ? ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step events: %w", err)
	}
	defer rows.Close()

	var events []*StepEvent
	for rows.Next() {
		e := &StepEvent{}
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.StepID,
			&e.Status,
			&e.Error,
			&e.DurationMS,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan step event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// HealthCheck verifies the database connection.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
