// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// Fetcher retrieves raw articles for a single source descriptor.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) ([]*Article, error)
}

// Translator rewrites a non-English article into English in place,
// setting WasTranslated on success. Failure leaves the article usable.
type Translator interface {
	Translate(ctx context.Context, a *Article) error
}

// Classifier scores a single article. Implementations must fill every
// Classification field so downstream stages never distinguish the path.
type Classifier interface {
	Classify(ctx context.Context, a *Article) (*Classification, error)
}

// Corroborator looks up independent confirmation for a story, keyed by
// title rather than URL, and reports the number of confirming sources.
type Corroborator interface {
	Corroborate(ctx context.Context, a *Article) (int, error)
}

type ArticleStore interface {
	SaveArticle(ctx context.Context, a *Article) error
	Article(ctx context.Context, id ArticleID) (*Article, error)
	RecentURLs(ctx context.Context, since time.Time) (map[string]bool, error)
	RecentArticles(ctx context.Context, category Category, limit int) ([]*Article, error)
	TopArticles(ctx context.Context, since time.Time, limit int) ([]*Article, error)
	SearchArticles(ctx context.Context, query string, limit int) ([]*Article, error)
	DeleteExpiredArticles(ctx context.Context, now time.Time) ([]ArticleID, error)
}

type RunStore interface {
	SaveRun(ctx context.Context, run *AgentRun) error
	LastRun(ctx context.Context) (*AgentRun, error)
	ListRuns(ctx context.Context, limit int) ([]*AgentRun, error)
}

type DigestStore interface {
	SaveDigest(ctx context.Context, d *Digest) error
	Digest(ctx context.Context, id DigestID) (*Digest, error)
	PendingDigest(ctx context.Context, chat ChatID) (*Digest, error)
	ListDigests(ctx context.Context, limit int) ([]*Digest, error)
}

type ConversationStore interface {
	Conversation(ctx context.Context, chat ChatID) (*ConversationState, error)
	SaveConversation(ctx context.Context, st *ConversationState) error
}

// ChatHistoryStore keeps the assistant's conversational memory. Append
// trims each chat to keep messages so history never grows unbounded.
type ChatHistoryStore interface {
	AppendChatMessage(ctx context.Context, chat ChatID, msg *ChatMessage, keep int) error
	ChatHistory(ctx context.Context, chat ChatID, limit int) ([]*ChatMessage, error)
}
