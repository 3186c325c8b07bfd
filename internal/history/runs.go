package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one ledger row.
type Run struct {
	ID         string     `json:"id"`
	Operation  string     `json:"operation"`
	DryRun     bool       `json:"dry_run"`
	Status     Status     `json:"status"`
	Affected   int        `json:"affected"`
	Manifest   string     `json:"manifest,omitempty"`
	Backup     string     `json:"backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Outcome is what a finished run reports.
type Outcome struct {
	Affected int
	Manifest string
	Backup   string
	Err      error
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, operation, dry_run, status, affected, manifest_path, backup_path, error_message, started_at, finished_at"

// Begin inserts a running row. An empty id is replaced with a new UUID.
func (s *Store) Begin(ctx context.Context, id, operation string, dryRun bool) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	run := &Run{
		ID:        id,
		Operation: operation,
		DryRun:    dryRun,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, operation, dry_run, status, affected, started_at) VALUES (?, ?, ?, ?, 0, ?)`,
		run.ID, run.Operation, boolToInt(dryRun), run.Status, run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish records the outcome of a run.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	status := StatusSucceeded
	var message any
	if outcome.Err != nil {
		status = StatusFailed
		message = outcome.Err.Error()
	}
	finished := time.Now().UTC().Format(timeLayout)
	err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, affected = ?, manifest_path = ?, backup_path = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		status, outcome.Affected, nullableString(outcome.Manifest), nullableString(outcome.Backup), message, finished, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Get returns a run by id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		dryRun      int64
		status      string
		manifest    sql.NullString
		backup      sql.NullString
		message     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Operation, &dryRun, &status, &run.Affected,
		&manifest, &backup, &message, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	run.Status = Status(status)
	run.Manifest = manifest.String
	run.Backup = backup.String
	run.Error = message.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		finished := parseTime(finishedRaw.String)
		run.FinishedAt = &finished
	}
	return &run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
