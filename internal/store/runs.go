package store

import (
	"context"
	"database/sql"

	"github.com/user/newshound/internal/types"
)

// SaveRun inserts or updates a run record.
func (s *Store) SaveRun(ctx context.Context, run *types.AgentRun) error {
	query := `
	INSERT INTO runs (id, started_at, finished_at, status, fetched, deduped,
		verified, actionable, translated, error_message)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		status = excluded.status,
		fetched = excluded.fetched,
		deduped = excluded.deduped,
		verified = excluded.verified,
		actionable = excluded.actionable,
		translated = excluded.translated,
		error_message = excluded.error_message
	`

	var finished any
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, finished, run.Status,
		run.Counters.Fetched, run.Counters.Deduped, run.Counters.Verified,
		run.Counters.Actionable, run.Counters.Translated, run.ErrorMessage,
	)
	if err != nil {
		return storeErr("save run", err)
	}
	return nil
}

// LastRun returns the most recently started run, types.ErrNotFound when
// no run has ever executed.
func (s *Store) LastRun(ctx context.Context) (*types.AgentRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, status, fetched, deduped,
			verified, actionable, translated, error_message
		FROM runs ORDER BY started_at DESC LIMIT 1`)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("last run", err)
	}
	return run, nil
}

// ListRuns returns runs most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*types.AgentRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, fetched, deduped,
			verified, actionable, translated, error_message
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list runs", err)
	}
	defer rows.Close()

	var runs []*types.AgentRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, storeErr("list runs", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list runs", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (*types.AgentRun, error) {
	run := &types.AgentRun{}
	var finished sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status,
		&run.Counters.Fetched, &run.Counters.Deduped, &run.Counters.Verified,
		&run.Counters.Actionable, &run.Counters.Translated, &errMsg)
	if err != nil {
		return nil, err
	}

	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	run.ErrorMessage = errMsg.String
	return run, nil
}
