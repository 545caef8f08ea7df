// Package digest ranks a run's validated articles into a bounded digest
// and renders it for delivery.
package digest

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/user/newshound/internal/types"
)

const (
	// DefaultMaxItems caps digest length.
	DefaultMaxItems = 15

	// DefaultBoost is added to UPI/card-relevant finance articles. Keep it
	// larger than any plausible credibility differential so boosted items
	// predictably surface.
	DefaultBoost = 40
)

// financeKeywords is the allow-list for the finance category. A finance
// article matching none of these is dropped outright, not down-scored.
var financeKeywords = []string{
	"bank", "upi", "payment", "card", "credit", "debit", "loan", "lending",
	"rbi", "npci", "sebi", "deposit", "interest rate", "repo", "kyc",
	"fintech", "neft", "rtgs", "imps", "wallet", "emi", "nbfc", "insurance",
	"mutual fund", "rupee", "fraud", "settlement",
}

// boostKeywords trigger the category boost for finance articles.
var boostKeywords = []string{
	"upi", "credit card", "debit card", "rupay", "card network",
}

// Builder selects and orders digest items.
type Builder struct {
	maxItems int
	boost    int
	logger   *slog.Logger
}

// NewBuilder creates a builder. Non-positive arguments fall back to the
// defaults.
func NewBuilder(maxItems, boost int, logger *slog.Logger) *Builder {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if boost <= 0 {
		boost = DefaultBoost
	}
	return &Builder{maxItems: maxItems, boost: boost, logger: logger}
}

// Build filters, scores, ranks, and caps the batch into a pending digest.
// The returned article slice is aligned with the digest items.
//
// Selection is strictly by rank: score descending, ties to the most recent.
// The stored item order is the presentation order, a stable partition of
// the rank order into category groups, so the numbers a reader sees match
// the digest indices that details/feedback commands use.
func (b *Builder) Build(runID types.RunID, chat types.ChatID, articles []*types.Article) (*types.Digest, []*types.Article) {
	type scored struct {
		a     *types.Article
		score int
	}

	var eligible []scored
	dropped := 0
	for _, a := range articles {
		if a.Category == types.CategoryFinance && !matchesAny(a, financeKeywords) {
			dropped++
			continue
		}
		eligible = append(eligible, scored{a: a, score: b.rankScore(a)})
	}
	if dropped > 0 {
		b.logger.Debug("Dropped off-topic finance articles", "count", dropped)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		return eligible[i].a.FetchedAt.After(eligible[j].a.FetchedAt)
	})
	if len(eligible) > b.maxItems {
		eligible = eligible[:b.maxItems]
	}

	// Stable partition into presentation groups.
	var ordered []scored
	for _, cat := range CategoryOrder {
		for _, s := range eligible {
			if s.a.Category == cat {
				ordered = append(ordered, s)
			}
		}
	}
	for _, s := range eligible {
		if !knownCategory(s.a.Category) {
			ordered = append(ordered, s)
		}
	}

	digest := &types.Digest{
		ID:        types.NewDigestID(),
		RunID:     runID,
		ChatID:    chat,
		Status:    types.DigestPending,
		CreatedAt: time.Now().UTC(),
	}
	ranked := make([]*types.Article, 0, len(ordered))
	for _, s := range ordered {
		digest.Items = append(digest.Items, types.DigestItem{ArticleID: s.a.ID, RankScore: s.score})
		ranked = append(ranked, s.a)
	}

	b.logger.Info("Built digest", "items", len(digest.Items), "candidates", len(articles))
	return digest, ranked
}

// rankScore is credibility plus the category boost for UPI/card-relevant
// finance items.
func (b *Builder) rankScore(a *types.Article) int {
	score := a.CredibilityScore
	if a.Category == types.CategoryFinance && matchesAny(a, boostKeywords) {
		score += b.boost
	}
	return score
}

func matchesAny(a *types.Article, keywords []string) bool {
	text := strings.ToLower(a.Title + " " + a.Summary + " " + a.Content)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func knownCategory(c types.Category) bool {
	for _, cat := range CategoryOrder {
		if c == cat {
			return true
		}
	}
	return false
}
