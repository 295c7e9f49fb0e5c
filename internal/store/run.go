package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/procharness/internal/harness"
)

// Run modes.
const (
	ModeInProcess  = "in-process"
	ModeSupervised = "supervised"
)

// RunRecord is the stored summary of one run.
//
// Counts, abort fields and ExitStatus are taken from the report by WriteRun;
// callers only fill the identity fields.
type RunRecord struct {
	ID          string    `json:"id" yaml:"id"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	Mode        string    `json:"mode" yaml:"mode"`
	Profile     string    `json:"profile,omitempty" yaml:"profile,omitempty"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`

	Planned  int `json:"planned" yaml:"planned"`
	Passed   int `json:"passed" yaml:"passed"`
	Failed   int `json:"failed" yaml:"failed"`
	Panicked int `json:"panicked" yaml:"panicked"`
	Total    int `json:"total" yaml:"total"`

	Aborted       bool   `json:"aborted" yaml:"aborted"`
	AbortedDuring string `json:"aborted_during,omitempty" yaml:"aborted_during,omitempty"`
	AbortReason   string `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
	ExitStatus    int    `json:"exit_status" yaml:"exit_status"`
}

// fill copies the report-derived fields into rec.
func (rec *RunRecord) fill(r *harness.Report) {
	rec.Planned = r.Planned
	rec.Passed = r.Passed
	rec.Failed = r.Failed
	rec.Panicked = r.AbnormallyTerminated
	rec.Total = r.Total()
	rec.Aborted = r.Aborted
	rec.AbortedDuring = r.AbortedDuring
	rec.AbortReason = r.AbortReason
	rec.ExitStatus = 0
	if !r.OK() {
		rec.ExitStatus = 1
	}
}

// WriteRun stores rec and the entries of r in one transaction and returns
// the record as stored. Writing an existing run ID fails with ErrDuplicateRun.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord, r *harness.Report) (RunRecord, error) {
	if rec.ID == "" {
		return RunRecord{}, errors.New("write run: empty run id")
	}
	rec.fill(r)
	rec.StartedAt = rec.StartedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunRecord{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, mode, profile, fingerprint, planned, passed, failed, panicked, total,
		 aborted, aborted_during, abort_reason, exit_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.StartedAt.UnixNano(),
		rec.Mode,
		rec.Profile,
		rec.Fingerprint,
		rec.Planned,
		rec.Passed,
		rec.Failed,
		rec.Panicked,
		rec.Total,
		rec.Aborted,
		rec.AbortedDuring,
		rec.AbortReason,
		rec.ExitStatus,
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return RunRecord{}, fmt.Errorf("write run %s: %w", rec.ID, ErrDuplicateRun)
		}
		return RunRecord{}, fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (run_id, seq, name, kind, message, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return RunRecord{}, fmt.Errorf("write run: prepare outcomes: %w", err)
	}
	defer stmt.Close()

	for i, e := range r.Entries {
		_, err := stmt.ExecContext(ctx,
			rec.ID,
			i,
			e.Name,
			e.Outcome.Kind.String(),
			e.Outcome.Message,
			int64(e.Duration),
		)
		if err != nil {
			return RunRecord{}, fmt.Errorf("write outcome %q: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("write run: commit: %w", err)
	}
	return rec, nil
}

const runColumns = `id, started_at, mode, profile, fingerprint, planned, passed, failed, panicked,
	total, aborted, aborted_during, abort_reason, exit_status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec       RunRecord
		startedAt int64
	)
	err := row.Scan(
		&rec.ID,
		&startedAt,
		&rec.Mode,
		&rec.Profile,
		&rec.Fingerprint,
		&rec.Planned,
		&rec.Passed,
		&rec.Failed,
		&rec.Panicked,
		&rec.Total,
		&rec.Aborted,
		&rec.AbortedDuring,
		&rec.AbortReason,
		&rec.ExitStatus,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.StartedAt = time.Unix(0, startedAt).UTC()
	return rec, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the record and the reconstructed report of run id.
// Returns ErrRunNotFound when no such run exists.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, *harness.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, message, duration_ns
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []harness.Entry
	for rows.Next() {
		var (
			e        harness.Entry
			kind     string
			duration int64
		)
		if err := rows.Scan(&e.Name, &kind, &e.Outcome.Message, &duration); err != nil {
			return RunRecord{}, nil, fmt.Errorf("scan outcome: %w", err)
		}
		if e.Outcome.Kind, err = harness.ParseOutcomeKind(kind); err != nil {
			return RunRecord{}, nil, fmt.Errorf("scan outcome %q: %w", e.Name, err)
		}
		e.Duration = time.Duration(duration)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	b := harness.Begin(names...)
	if rec.Aborted {
		if rec.AbortedDuring != "" {
			b.Abort(rec.AbortedDuring, rec.AbortReason)
		} else {
			b.Truncate(rec.AbortReason)
		}
	}
	for _, e := range entries {
		if err := b.Record(e.Name, e.Outcome, e.Duration); err != nil {
			return RunRecord{}, nil, fmt.Errorf("rebuild run %s: %w", id, err)
		}
	}
	r := b.Finish()
	// Only recorded names are known here; never-started cases count towards Planned.
	r.Planned = rec.Planned
	return rec, r, nil
}
