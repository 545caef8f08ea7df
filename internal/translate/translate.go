// Package translate rewrites non-English articles into English before
// classification. Regional sources in the catalog publish in Hindi and
// other Indian languages; the classifier and the digest both want English.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/pkg/llm"
)

const defaultTimeout = 25 * time.Second

const systemPrompt = `You translate news articles into English.
Respond with only a JSON object in this exact shape:
{"title": "<english title>", "content": "<english content>"}
Keep names, numbers, and abbreviations as they are. Do not summarize.`

// LLMTranslator translates articles through a completion provider.
type LLMTranslator struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewLLMTranslator creates a translator. A non-positive timeout falls back
// to 25 seconds.
func NewLLMTranslator(provider llm.Provider, timeout time.Duration, logger *slog.Logger) *LLMTranslator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LLMTranslator{provider: provider, timeout: timeout, logger: logger}
}

// Translate rewrites the article title and content in place and marks it
// translated. English articles pass through untouched. Any failure is
// reported as ErrTranslationFailed and leaves the article as fetched.
func (t *LLMTranslator) Translate(ctx context.Context, a *types.Article) error {
	if a.Language == "" || a.Language == "en" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"title":   a.Title,
		"content": a.Content,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal article: %v", types.ErrTranslationFailed, err)
	}

	resp, err := t.provider.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: string(payload)},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrTranslationFailed, err)
	}

	var out struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &out); err != nil {
		return fmt.Errorf("%w: parse reply: %v", types.ErrTranslationFailed, err)
	}
	if out.Title == "" {
		return fmt.Errorf("%w: empty title in reply", types.ErrTranslationFailed)
	}

	a.Title = out.Title
	if out.Content != "" {
		a.Content = out.Content
	}
	a.WasTranslated = true

	t.logger.Debug("Translated article", "id", a.ID, "from", a.Language)
	return nil
}

// Noop passes every article through untranslated. Used when no completion
// provider is configured.
type Noop struct{}

// Translate implements types.Translator.
func (Noop) Translate(ctx context.Context, a *types.Article) error { return nil }
