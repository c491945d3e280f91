// Package ledger records sync runs in an embedded SQLite database and
// provides a local run lock keyed by (category, year, month). The remote
// service's checksum sync already makes overlapping runs safe; the lock
// just keeps a slow transfer and an eager cron schedule from piling up
// duplicate submissions.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Outcome values stored in the runs table.
const (
	OutcomeInFlight     = "in-flight"
	OutcomeCompleted    = "completed"
	OutcomeStillRunning = "still-running"
	OutcomeFailed       = "failed"
)

// staleAfter is how old an unfinished run row may be before it stops
// blocking new runs. A process killed mid-run leaves its row in-flight
// forever; runs this old are treated as abandoned.
const staleAfter = 24 * time.Hour

// ErrRunInProgress means an unfinished run for the same selection is
// younger than the staleness bound.
var ErrRunInProgress = errors.New("ledger: a run for this selection is already in progress")

// Run is one recorded sync run.
type Run struct {
	ID         int64
	Category   string
	Year       int
	Month      int
	Pattern    string
	LocalDest  string
	TaskID     string
	FileCount  int
	Outcome    string
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time // zero if unfinished
}

// Ledger wraps the runs database.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the ledger database at dbPath and applies
// pending migrations. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("ledger: creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}

	// Single writer; the CLI is the only process expected to touch this DB.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: set WAL mode: %w", err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("run ledger ready", slog.String("path", dbPath))

	return &Ledger{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ledger: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("ledger: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("ledger: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// BeginRun records the start of a run and returns its row ID. It fails with
// ErrRunInProgress if an unfinished run for the same (category, year, month)
// started within the staleness bound.
func (l *Ledger) BeginRun(
	ctx context.Context, category string, year, month int, pattern, localDest string, now time.Time,
) (int64, error) {
	var blocking int64

	err := l.db.QueryRowContext(ctx,
		`SELECT count(*) FROM runs
		 WHERE category = ? AND year = ? AND month = ?
		   AND outcome = ? AND started_at > ?`,
		category, year, month, OutcomeInFlight, now.Add(-staleAfter).Unix(),
	).Scan(&blocking)
	if err != nil {
		return 0, fmt.Errorf("ledger: checking for in-flight runs: %w", err)
	}

	if blocking > 0 {
		return 0, fmt.Errorf("%w: %s %d-%02d", ErrRunInProgress, category, year, month)
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (category, year, month, pattern, local_dest, outcome, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category, year, month, pattern, localDest, OutcomeInFlight, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("ledger: recording run start: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger: reading run id: %w", err)
	}

	l.logger.Debug("run recorded",
		slog.Int64("run_id", id),
		slog.String("category", category),
		slog.Int("year", year),
		slog.Int("month", month),
	)

	return id, nil
}

// FinishRun records the outcome of a run started with BeginRun.
func (l *Ledger) FinishRun(
	ctx context.Context, id int64, taskID string, fileCount int, outcome, reason string, now time.Time,
) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET task_id = ?, file_count = ?, outcome = ?, reason = ?, finished_at = ?
		 WHERE id = ?`,
		taskID, fileCount, outcome, reason, now.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("ledger: recording run outcome: %w", err)
	}

	return nil
}

// Recent returns the most recent runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, category, year, month, pattern, local_dest, task_id,
		        file_count, outcome, reason, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: listing runs: %w", err)
	}

	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			r          Run
			startedAt  int64
			finishedAt sql.NullInt64
		)

		if err := rows.Scan(&r.ID, &r.Category, &r.Year, &r.Month, &r.Pattern, &r.LocalDest,
			&r.TaskID, &r.FileCount, &r.Outcome, &r.Reason, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("ledger: scanning run row: %w", err)
		}

		r.StartedAt = time.Unix(startedAt, 0).UTC()
		if finishedAt.Valid {
			r.FinishedAt = time.Unix(finishedAt.Int64, 0).UTC()
		}

		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating runs: %w", err)
	}

	return runs, nil
}
