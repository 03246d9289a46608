package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/streamflow/core"
)

// ErrNotFound is returned when no journal entry exists for a plan.
var ErrNotFound = errors.New("not found")

// Record is one journal entry: a resolved plan outcome plus its verdict.
type Record struct {
	Outcome    core.PlanOutcome
	Success    bool
	Failure    string
	ResolvedAt time.Time
}

// Journal is a SQLite-backed log of resolved plan outcomes.
type Journal struct {
	db *sql.DB
}

// Open creates (or reopens) the journal at path, applying schema migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordOutcome inserts (or replaces) the journal entry for a resolved plan.
// planErr is the plan-level failure, nil on success.
func (j *Journal) RecordOutcome(ctx context.Context, outcome core.PlanOutcome, planErr error) error {
	sessions, err := json.Marshal(outcome.Sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	var failure any
	if planErr != nil {
		failure = planErr.Error()
	}
	_, err = j.db.ExecContext(ctx, `
INSERT INTO plan_outcomes(plan_id, description, success, failure, sessions, resolved_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(plan_id) DO UPDATE SET
	description=excluded.description,
	success=excluded.success,
	failure=excluded.failure,
	sessions=excluded.sessions,
	resolved_at=excluded.resolved_at
`, outcome.PlanID.String(), outcome.Description, boolToInt(planErr == nil), failure, string(sessions), ts(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// GetOutcome loads the journal entry for planID, or ErrNotFound.
func (j *Journal) GetOutcome(ctx context.Context, planID core.PlanID) (Record, error) {
	row := j.db.QueryRowContext(ctx, `
SELECT plan_id, description, success, failure, sessions, resolved_at
FROM plan_outcomes WHERE plan_id = ?
`, planID.String())
	return scanRecord(row)
}

// ListOutcomes returns up to limit entries, most recently resolved first.
// limit <= 0 returns everything.
func (j *Journal) ListOutcomes(ctx context.Context, limit int) ([]Record, error) {
	query := `
SELECT plan_id, description, success, failure, sessions, resolved_at
FROM plan_outcomes ORDER BY resolved_at DESC, plan_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec        Record
		planID     string
		success    int
		failure    sql.NullString
		sessions   string
		resolvedAt string
	)
	err := row.Scan(&planID, &rec.Outcome.Description, &success, &failure, &sessions, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan outcome: %w", err)
	}
	id, err := core.ParsePlanID(planID)
	if err != nil {
		return Record{}, fmt.Errorf("parse plan id: %w", err)
	}
	rec.Outcome.PlanID = id
	rec.Success = success != 0
	rec.Failure = failure.String
	if err := json.Unmarshal([]byte(sessions), &rec.Outcome.Sessions); err != nil {
		return Record{}, fmt.Errorf("unmarshal sessions: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, resolvedAt); err == nil {
		rec.ResolvedAt = t
	}
	return rec, nil
}

func ts(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
