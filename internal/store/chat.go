package store

import (
	"context"

	"github.com/user/newshound/internal/types"
)

// AppendChatMessage records one assistant-conversation turn and trims the
// chat to its keep most recent messages. keep <= 0 disables trimming.
func (s *Store) AppendChatMessage(ctx context.Context, chat types.ChatID, msg *types.ChatMessage, keep int) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (chat_id, role, content, at) VALUES (?, ?, ?, ?)`,
		chat, msg.Role, msg.Content, msg.At); err != nil {
		return storeErr("append chat message", err)
	}

	if keep <= 0 {
		return nil
	}
	prune := `
	DELETE FROM chat_messages
	WHERE chat_id = ? AND id NOT IN (
		SELECT id FROM chat_messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?
	)`
	if _, err := s.db.ExecContext(ctx, prune, chat, chat, keep); err != nil {
		return storeErr("prune chat messages", err)
	}
	return nil
}

// ChatHistory returns the limit most recent turns for a chat in
// chronological order.
func (s *Store) ChatHistory(ctx context.Context, chat types.ChatID, limit int) ([]*types.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, at FROM chat_messages
		WHERE chat_id = ? ORDER BY id DESC LIMIT ?`, chat, limit)
	if err != nil {
		return nil, storeErr("chat history", err)
	}
	defer rows.Close()

	var newestFirst []*types.ChatMessage
	for rows.Next() {
		msg := &types.ChatMessage{}
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.At); err != nil {
			return nil, storeErr("scan chat message", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("chat history rows", err)
	}

	out := make([]*types.ChatMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i])
	}
	return out, nil
}
