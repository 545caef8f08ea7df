// internal/types/ids.go
package types

import (
	"strconv"

	"github.com/google/uuid"
)

type ArticleID string
type RunID string
type DigestID string

// ChatID identifies a conversation on the message transport. Telegram
// chat identifiers are signed 64-bit integers, so the raw value is kept.
type ChatID int64

func NewArticleID() ArticleID {
	return ArticleID(uuid.New().String())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewDigestID() DigestID {
	return DigestID(uuid.New().String())
}

func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

func ParseChatID(s string) (ChatID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChatID(n), nil
}
