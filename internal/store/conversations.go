package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/newshound/internal/types"
)

// Conversation returns the state for a chat, or a fresh zero state when
// the chat has never been seen. Callers never need to create explicitly.
func (s *Store) Conversation(ctx context.Context, chat types.ChatID) (*types.ConversationState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, pending_digest_id, feedback, last_activity_at
		FROM conversations WHERE chat_id = ?`, chat)

	st := &types.ConversationState{}
	var pending sql.NullString
	var feedback sql.NullString

	err := row.Scan(&st.ChatID, &pending, &feedback, &st.LastActivityAt)
	if err == sql.ErrNoRows {
		return &types.ConversationState{ChatID: chat, LastActivityAt: time.Now()}, nil
	}
	if err != nil {
		return nil, storeErr("get conversation", err)
	}

	st.PendingDigestID = types.DigestID(pending.String)
	if feedback.Valid && feedback.String != "" {
		if err := json.Unmarshal([]byte(feedback.String), &st.Feedback); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
	}
	return st, nil
}

// SaveConversation upserts the state for a chat.
func (s *Store) SaveConversation(ctx context.Context, st *types.ConversationState) error {
	feedback, err := json.Marshal(st.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	query := `
	INSERT INTO conversations (chat_id, pending_digest_id, feedback, last_activity_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET
		pending_digest_id = excluded.pending_digest_id,
		feedback = excluded.feedback,
		last_activity_at = excluded.last_activity_at
	`

	if _, err := s.db.ExecContext(ctx, query,
		st.ChatID, string(st.PendingDigestID), string(feedback), st.LastActivityAt); err != nil {
		return storeErr("save conversation", err)
	}
	return nil
}
