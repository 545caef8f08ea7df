// internal/types/models.go
package types

import (
	"time"
)

type Category string

const (
	CategoryFinance    Category = "finance"
	CategoryTech       Category = "tech"
	CategoryGovernment Category = "government"
)

type SourceType string

const (
	SourceTypeOfficial  SourceType = "official"
	SourceTypeNews      SourceType = "news"
	SourceTypeCommunity SourceType = "community"
	SourceTypeResearch  SourceType = "research"
)

type ValidationStatus string

const (
	StatusVerified    ValidationStatus = "verified"
	StatusUnverified  ValidationStatus = "unverified"
	StatusConflicting ValidationStatus = "conflicting"
)

// Article is the unit flowing through the pipeline. It is created by the
// aggregator, enriched in place by the validator and cross-referencer, and
// dropped from the store once ExpiresAt passes.
type Article struct {
	ID                  ArticleID        `json:"id"`
	URL                 string           `json:"url"`
	Title               string           `json:"title"`
	Content             string           `json:"content"`
	Summary             string           `json:"summary,omitempty"`
	SourceName          string           `json:"source_name"`
	Category            Category         `json:"category"`
	Language            string           `json:"language"`
	WasTranslated       bool             `json:"was_translated"`
	SourceType          SourceType       `json:"source_type,omitempty"`
	ValidationStatus    ValidationStatus `json:"validation_status,omitempty"`
	CredibilityScore    int              `json:"credibility_score"`
	Reasoning           string           `json:"reasoning,omitempty"`
	IsActionable        bool             `json:"is_actionable"`
	WhyItMatters        string           `json:"why_it_matters,omitempty"`
	CrossReferenceCount int              `json:"cross_reference_count"`
	FetchedAt           time.Time        `json:"fetched_at"`
	ExpiresAt           time.Time        `json:"expires_at"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type RunCounters struct {
	Fetched    int `json:"fetched"`
	Deduped    int `json:"deduped"`
	Verified   int `json:"verified"`
	Actionable int `json:"actionable"`
	Translated int `json:"translated"`
}

// AgentRun tracks a single pipeline execution. At most one run may be in
// the running state process-wide.
type AgentRun struct {
	ID           RunID       `json:"run_id"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
	Status       RunStatus   `json:"status"`
	Counters     RunCounters `json:"counters"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

func NewAgentRun() *AgentRun {
	return &AgentRun{
		ID:        NewRunID(),
		StartedAt: time.Now(),
		Status:    RunStatusRunning,
	}
}

type DigestStatus string

const (
	DigestPending  DigestStatus = "pending_approval"
	DigestApproved DigestStatus = "approved"
	DigestRejected DigestStatus = "rejected"
	DigestExpired  DigestStatus = "expired"
)

// DigestItem pairs an article with the rank score it held when the digest
// was built. Slice order is rank order.
type DigestItem struct {
	ArticleID ArticleID `json:"article_id"`
	RankScore int       `json:"rank_score"`
}

// Digest is a ranked, capped bundle of articles from one run awaiting a
// human decision in one conversation.
type Digest struct {
	ID        DigestID     `json:"digest_id"`
	RunID     RunID        `json:"run_id"`
	ChatID    ChatID       `json:"chat_id"`
	Items     []DigestItem `json:"items"`
	Status    DigestStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	DecidedAt *time.Time   `json:"decided_at,omitempty"`
}

type FeedbackEntry struct {
	ArticleIndex int       `json:"article_index"`
	Text         string    `json:"text"`
	At           time.Time `json:"at"`
}

// ConversationState is owned exclusively by the workflow. A non-empty
// PendingDigestID means the conversation is awaiting a decision.
type ConversationState struct {
	ChatID          ChatID          `json:"chat_id"`
	PendingDigestID DigestID        `json:"pending_digest_id,omitempty"`
	Feedback        []FeedbackEntry `json:"feedback,omitempty"`
	LastActivityAt  time.Time       `json:"last_activity_at"`
}

func (c *ConversationState) Awaiting() bool {
	return c.PendingDigestID != ""
}

// ChatMessage is one turn of the assistant conversation, kept so the
// assistant can refer back to recent exchanges.
type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type SourceKind string

const (
	SourceKindRSS        SourceKind = "rss"
	SourceKindHackerNews SourceKind = "hackernews"
)

// Source describes one feed in the catalog.
type Source struct {
	Name     string     `yaml:"name" json:"name"`
	Kind     SourceKind `yaml:"kind" json:"kind"`
	URL      string     `yaml:"url" json:"url"`
	Category Category   `yaml:"category" json:"category"`
	Limit    int        `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// Classification is the output shape shared by the model-backed classifier
// and the rule-based fallback. Downstream stages cannot tell which produced it.
type Classification struct {
	SourceType          SourceType       `json:"source_type"`
	ValidationStatus    ValidationStatus `json:"validation_status"`
	CredibilityScore    int              `json:"credibility_score"`
	Reasoning           string           `json:"reasoning"`
	IsActionable        bool             `json:"is_actionable"`
	WhyItMatters        string           `json:"why_it_matters"`
	NeedsCrossReference bool             `json:"needs_cross_reference"`
	Summary             string           `json:"summary"`
}
