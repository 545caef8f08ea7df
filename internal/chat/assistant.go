// Package chat answers free-text messages with a search-grounded LLM
// call. Every answer pipeline is the same: detect intent, fan out web
// searches, fold the results and any referenced digest article into the
// user turn, and let the model extract from there.
package chat

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/pkg/llm"
)

const (
	defaultHistoryWindow = 8
	defaultHistoryKeep   = 60
	resultsPerQuery      = 4
	sourceLinkCap        = 4
)

// DigestSource is the slice of the digest store the assistant needs to
// resolve "item N" references.
type DigestSource interface {
	PendingDigest(ctx context.Context, chat types.ChatID) (*types.Digest, error)
	ListDigests(ctx context.Context, limit int) ([]*types.Digest, error)
}

type ArticleSource interface {
	Article(ctx context.Context, id types.ArticleID) (*types.Article, error)
}

type Config struct {
	Provider llm.Provider
	Searcher WebSearcher
	History  types.ChatHistoryStore
	Digests  DigestSource
	Articles ArticleSource

	// Model picks the tokenizer; MaxContextTokens minus ReserveTokens is
	// the prompt budget.
	Model            string
	MaxContextTokens int
	ReserveTokens    int

	HistoryWindow int
	HistoryKeep   int

	Logger *slog.Logger
}

// Assistant turns free-form questions into grounded Telegram-ready
// answers. It satisfies the workflow's Assistant interface.
type Assistant struct {
	provider llm.Provider
	searcher WebSearcher
	history  types.ChatHistoryStore
	digests  DigestSource
	articles ArticleSource
	prompts  *promptBuilder
	window   int
	keep     int
	logger   *slog.Logger
}

func New(cfg Config) (*Assistant, error) {
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 8000
	}
	if cfg.ReserveTokens <= 0 {
		cfg.ReserveTokens = 1000
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.HistoryKeep <= 0 {
		cfg.HistoryKeep = defaultHistoryKeep
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	prompts, err := newPromptBuilder(cfg.Model, cfg.MaxContextTokens, cfg.ReserveTokens)
	if err != nil {
		return nil, err
	}
	return &Assistant{
		provider: cfg.Provider,
		searcher: cfg.Searcher,
		history:  cfg.History,
		digests:  cfg.Digests,
		articles: cfg.Articles,
		prompts:  prompts,
		window:   cfg.HistoryWindow,
		keep:     cfg.HistoryKeep,
		logger:   cfg.Logger,
	}, nil
}

// Reply answers one free-text message from a chat.
func (a *Assistant) Reply(ctx context.Context, chat types.ChatID, text string) (string, error) {
	kind := detectIntent(text)

	searchSeed := text
	digestContext := ""
	if ref := extractItemRef(text); ref > 0 {
		if art := a.referencedArticle(ctx, chat, ref); art != nil {
			searchSeed = fmt.Sprintf("%s India %d details", art.Title, currentYear())
			digestContext = formatDigestContext(ref, art)
		}
	}

	var results []WebResult
	if a.searcher != nil {
		queries := buildQueries(searchSeed, kind, currentYear())
		results = searchMulti(ctx, a.searcher, queries, resultsPerQuery)
		a.logger.Debug("chat search", "intent", string(kind), "queries", len(queries), "results", len(results))
	}
	searchBlock := formatResults(results)

	history, err := a.history.ChatHistory(ctx, chat, a.window)
	if err != nil {
		a.logger.Warn("load chat history", "error", err)
	}

	userTurn := fmt.Sprintf("Question: %s\n\n%s", text, searchBlock)
	if digestContext != "" {
		userTurn += "\n" + digestContext
	}
	userTurn += "\n\nAnswer based on the search results above. Be specific."

	messages := a.prompts.build(systemPrompt, history, userTurn)

	resp, err := a.provider.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	answer := MarkdownToHTML(resp.Content)
	answer += sourceLinks(results)

	a.remember(ctx, chat, "user", userTurn)
	a.remember(ctx, chat, "assistant", answer)

	return answer, nil
}

// referencedArticle resolves "item N" against the chat's pending digest,
// falling back to the most recent digest of any status so references
// still work right after a decision.
func (a *Assistant) referencedArticle(ctx context.Context, chat types.ChatID, ref int) *types.Article {
	d, err := a.digests.PendingDigest(ctx, chat)
	if errors.Is(err, types.ErrNotFound) {
		latest, lerr := a.digests.ListDigests(ctx, 1)
		if lerr != nil || len(latest) == 0 {
			return nil
		}
		d = latest[0]
	} else if err != nil {
		a.logger.Warn("resolve digest reference", "error", err)
		return nil
	}

	if ref > len(d.Items) {
		return nil
	}
	art, err := a.articles.Article(ctx, d.Items[ref-1].ArticleID)
	if err != nil {
		return nil
	}
	return art
}

func (a *Assistant) remember(ctx context.Context, chat types.ChatID, role, content string) {
	msg := &types.ChatMessage{Role: role, Content: content, At: time.Now().UTC()}
	if err := a.history.AppendChatMessage(ctx, chat, msg, a.keep); err != nil {
		a.logger.Warn("save chat message", "role", role, "error", err)
	}
}

func formatResults(results []WebResult) string {
	if len(results) == 0 {
		return "No search results found."
	}
	var sb strings.Builder
	sb.WriteString("## SEARCH RESULTS (read carefully, extract specific facts from these)\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n    Source: %s\n    %s\n\n", i+1, r.Title, r.URL, truncateRunes(r.Description, 500))
	}
	sb.WriteString("## END OF SEARCH RESULTS\n")
	return sb.String()
}

func formatDigestContext(ref int, a *types.Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Digest Article #%d (user is asking about this)\n", ref)
	fmt.Fprintf(&sb, "Title: %s\n", a.Title)
	summary := a.Summary
	if summary == "" {
		summary = "No summary available."
	}
	fmt.Fprintf(&sb, "Summary: %s\n", summary)
	fmt.Fprintf(&sb, "Source URL: %s\n", a.URL)
	fmt.Fprintf(&sb, "Category: %s | Credibility: %d/100\n", a.Category, a.CredibilityScore)
	if a.WhyItMatters != "" {
		fmt.Fprintf(&sb, "Why it matters: %s\n", a.WhyItMatters)
	}
	return sb.String()
}

// sourceLinks appends the top result links so the reader can verify
// claims the model wove into the answer.
func sourceLinks(results []WebResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n🔗 <b>Sources:</b>")
	for i, r := range results {
		if i == sourceLinkCap {
			break
		}
		title := html.EscapeString(truncateRunes(r.Title, 65))
		fmt.Fprintf(&sb, "\n• <a href=\"%s\">%s</a>", r.URL, title)
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
