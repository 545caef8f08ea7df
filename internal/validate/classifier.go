package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/pkg/llm"
)

const defaultClassifyTimeout = 40 * time.Second

// maxClassifyContent bounds how much article body goes into the prompt.
const maxClassifyContent = 4000

const classifySystemPrompt = `You assess news credibility for a fintech team in India.
Given one article, respond with only a JSON object:
{
  "source_type": "official|news|community|research",
  "validation_status": "verified|unverified|conflicting",
  "credibility_score": 0-100,
  "reasoning": "<one short sentence>",
  "is_actionable": true|false,
  "why_it_matters": "<one short sentence, empty if not actionable>",
  "needs_cross_reference": true|false,
  "summary": "<2-3 sentence summary>"
}
Official regulator publications are verified. Mark validation_status
"conflicting" only when the article contradicts well-established facts.
Set is_actionable when the item concerns UPI, cards, lending rules, or
compliance deadlines.`

// LLMClassifier scores articles through a completion provider under a strict
// JSON contract. Any deviation from the contract is reported as
// ErrClassifierUnavailable so the caller can run the rule fallback.
type LLMClassifier struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewLLMClassifier creates a classifier. A non-positive timeout falls back
// to 40 seconds.
func NewLLMClassifier(provider llm.Provider, timeout time.Duration, logger *slog.Logger) *LLMClassifier {
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	return &LLMClassifier{provider: provider, timeout: timeout, logger: logger}
}

// Classify implements types.Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, a *types.Article) (*types.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"title":    a.Title,
		"source":   a.SourceName,
		"category": string(a.Category),
		"url":      a.URL,
		"content":  truncateRunes(a.Content, maxClassifyContent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal article: %v", types.ErrClassifierUnavailable, err)
	}

	resp, err := c.provider.Complete(ctx, []llm.Message{
		{Role: "system", Content: classifySystemPrompt},
		{Role: "user", Content: string(payload)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrClassifierUnavailable, err)
	}

	var out types.Classification
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &out); err != nil {
		return nil, fmt.Errorf("%w: parse reply: %v", types.ErrClassifierUnavailable, err)
	}
	if err := checkContract(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrClassifierUnavailable, err)
	}
	if out.Summary == "" {
		out.Summary = Summarize(a.Content)
	}

	c.logger.Debug("Classified article", "id", a.ID, "score", out.CredibilityScore, "status", out.ValidationStatus)
	return &out, nil
}

// checkContract rejects replies with out-of-enum values or impossible
// scores rather than letting them leak into the store.
func checkContract(c *types.Classification) error {
	switch c.SourceType {
	case types.SourceTypeOfficial, types.SourceTypeNews, types.SourceTypeCommunity, types.SourceTypeResearch:
	default:
		return fmt.Errorf("bad source_type %q", c.SourceType)
	}
	switch c.ValidationStatus {
	case types.StatusVerified, types.StatusUnverified, types.StatusConflicting:
	default:
		return fmt.Errorf("bad validation_status %q", c.ValidationStatus)
	}
	if c.CredibilityScore < 0 || c.CredibilityScore > 100 {
		return fmt.Errorf("credibility_score %d out of range", c.CredibilityScore)
	}
	return nil
}
