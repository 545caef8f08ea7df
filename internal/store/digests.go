package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/user/newshound/internal/types"
)

// SaveDigest inserts or updates a digest. Items are stored as a JSON
// array so slice order, which is rank order, survives the round trip.
func (s *Store) SaveDigest(ctx context.Context, d *types.Digest) error {
	items, err := json.Marshal(d.Items)
	if err != nil {
		return fmt.Errorf("marshal digest items: %w", err)
	}

	var decided any
	if d.DecidedAt != nil {
		decided = *d.DecidedAt
	}

	query := `
	INSERT INTO digests (id, run_id, chat_id, items, status, created_at, decided_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		run_id = excluded.run_id,
		chat_id = excluded.chat_id,
		items = excluded.items,
		status = excluded.status,
		created_at = excluded.created_at,
		decided_at = excluded.decided_at
	`

	if _, err := s.db.ExecContext(ctx, query,
		d.ID, d.RunID, d.ChatID, string(items), d.Status, d.CreatedAt, decided); err != nil {
		return storeErr("save digest", err)
	}
	return nil
}

// Digest retrieves one digest by id, types.ErrNotFound when missing.
func (s *Store) Digest(ctx context.Context, id types.DigestID) (*types.Digest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, chat_id, items, status, created_at, decided_at
		FROM digests WHERE id = ?`, id)

	d, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get digest", err)
	}
	return d, nil
}

// PendingDigest returns the conversation's pending-approval digest,
// types.ErrNotFound when there is none. The single-pending invariant is
// enforced by the workflow before new digests are saved.
func (s *Store) PendingDigest(ctx context.Context, chat types.ChatID) (*types.Digest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, chat_id, items, status, created_at, decided_at
		FROM digests WHERE chat_id = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`, chat, types.DigestPending)

	d, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("pending digest", err)
	}
	return d, nil
}

// ListDigests returns digests most recent first.
func (s *Store) ListDigests(ctx context.Context, limit int) ([]*types.Digest, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, chat_id, items, status, created_at, decided_at
		FROM digests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list digests", err)
	}
	defer rows.Close()

	var digests []*types.Digest
	for rows.Next() {
		d, err := scanDigest(rows)
		if err != nil {
			return nil, storeErr("list digests", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list digests", err)
	}
	return digests, nil
}

func scanDigest(row rowScanner) (*types.Digest, error) {
	d := &types.Digest{}
	var items string
	var decided sql.NullTime

	err := row.Scan(&d.ID, &d.RunID, &d.ChatID, &items, &d.Status, &d.CreatedAt, &decided)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(items), &d.Items); err != nil {
		return nil, fmt.Errorf("unmarshal digest items: %w", err)
	}
	if decided.Valid {
		t := decided.Time
		d.DecidedAt = &t
	}
	return d, nil
}
