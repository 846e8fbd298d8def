package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/google/uuid"

	"github.com/chriserin/ftspec/internal/runner"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrAmbiguousID = errors.New("run id prefix matches more than one run")
)

// Run is one recorded run of the parent process.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Passed     int
	Failed     int
	Pending    int
	Duration   time.Duration
}

// Total is the number of reported tests.
func (r Run) Total() int {
	return r.Passed + r.Failed + r.Pending
}

// TestRecord is the stored outcome of one test of a run.
type TestRecord struct {
	Position    int
	Feature     string
	Scenario    string
	Description string
	Status      string
	Class       string
	Message     string
	File        string
	Line        int
	Remote      bool
	Duration    time.Duration
}

// Store records runs and their results.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RecordRun stores res and every test result in one transaction.
func (s *Store) RecordRun(started time.Time, res *runner.Result) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: s.now(),
		Passed:     res.Passed(),
		Failed:     res.Failed(),
		Pending:    res.Pending(),
		Duration:   res.Duration,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, fmt.Errorf("beginning run insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, started_at, finished_at, passed, failed, pending, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Passed, run.Failed, run.Pending, run.Duration.Milliseconds())
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(run_id, position, feature, scenario, description, status, class, message, file, line, remote, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, tr := range res.Tests {
		rec := recordOf(i, tr)
		_, err := stmt.Exec(run.ID, rec.Position, rec.Feature, rec.Scenario, rec.Description, rec.Status,
			rec.Class, rec.Message, rec.File, rec.Line, rec.Remote, rec.Duration.Milliseconds())
		if err != nil {
			return Run{}, fmt.Errorf("inserting result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

func recordOf(i int, tr *runner.TestResult) TestRecord {
	rec := TestRecord{
		Position:    i,
		Description: strings.TrimSpace(tr.Test.Description()),
		Status:      tr.Status.String(),
		Duration:    tr.Duration,
	}
	rec.Feature, rec.Scenario = placeOf(tr.Test)
	if f := tr.Failure; f != nil {
		rec.Class = f.Class
		rec.Message = stripansi.Strip(f.Message)
		rec.File = f.File
		rec.Line = f.Line
		rec.Remote = f.Remote
	}
	return rec
}

// placeOf names the feature and the innermost scenario a test belongs to. Only
// the first line of each suite description is kept.
func placeOf(t *runner.Test) (feature, scenario string) {
	for p := t.Parent(); p != nil; p = p.Parent() {
		desc := strings.TrimSpace(p.Description())
		if desc == "" {
			continue
		}
		first, _, _ := strings.Cut(desc, "\n")
		if strings.HasPrefix(first, "Feature:") {
			feature = first
		} else if scenario == "" {
			scenario = first
		}
	}
	return feature, scenario
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, passed, failed, pending, duration_ms
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// FindRun looks a run up by its id or a unique id prefix.
func (s *Store) FindRun(prefix string) (Run, error) {
	if prefix == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, passed, failed, pending, duration_ms
		FROM runs
		WHERE substr(id, 1, length(?)) = ?
		LIMIT 2
	`, prefix, prefix)
	if err != nil {
		return Run{}, fmt.Errorf("querying run %s: %w", prefix, err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterating runs: %w", err)
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
	}
}

// LatestRun returns the most recent run, or ErrRunNotFound when none exists.
func (s *Store) LatestRun() (Run, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrRunNotFound
	}
	return runs[0], nil
}

// Results returns the tests of a run in execution order.
func (s *Store) Results(runID string) ([]TestRecord, error) {
	rows, err := s.db.Query(`
		SELECT position, feature, scenario, description, status, class, message, file, line, remote, duration_ms
		FROM results
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []TestRecord
	for rows.Next() {
		var rec TestRecord
		var ms int64
		if err := rows.Scan(&rec.Position, &rec.Feature, &rec.Scenario, &rec.Description, &rec.Status,
			&rec.Class, &rec.Message, &rec.File, &rec.Line, &rec.Remote, &ms); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var started, finished, ms int64
	if err := row.Scan(&run.ID, &started, &finished, &run.Passed, &run.Failed, &run.Pending, &ms); err != nil {
		return Run{}, fmt.Errorf("scanning run row: %w", err)
	}
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	run.Duration = time.Duration(ms) * time.Millisecond
	return run, nil
}
