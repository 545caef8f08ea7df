package crossref

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/newshound/internal/types"
)

// scoreBonus is added once when corroboration upgrades an article.
const scoreBonus = 15

// Resolver applies the corroboration policy over a validated batch.
type Resolver struct {
	corroborator types.Corroborator
	logger       *slog.Logger
}

// NewResolver creates a resolver. corroborator may be nil, which turns the
// stage into a no-op.
func NewResolver(corroborator types.Corroborator, logger *slog.Logger) *Resolver {
	return &Resolver{corroborator: corroborator, logger: logger}
}

// ResolveAll looks up every unverified article and upgrades those with at
// least one independent confirmation. Verified and conflicting articles are
// skipped; this stage resolves ambiguity and never downgrades. Lookup
// failures leave the article exactly as it was.
func (r *Resolver) ResolveAll(ctx context.Context, articles []*types.Article) {
	if r.corroborator == nil {
		return
	}
	for _, a := range articles {
		if a.ValidationStatus != types.StatusUnverified {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		n, err := r.corroborator.Corroborate(ctx, a)
		if err != nil {
			r.logger.Warn("Corroboration lookup failed, status unchanged", "id", a.ID, "error", err)
			continue
		}
		a.CrossReferenceCount = n
		if n < 1 {
			continue
		}

		a.ValidationStatus = types.StatusVerified
		a.CredibilityScore = min(a.CredibilityScore+scoreBonus, 100)
		suffix := fmt.Sprintf("[%d other sources confirm]", n)
		if a.Reasoning == "" {
			a.Reasoning = suffix
		} else {
			a.Reasoning += " " + suffix
		}
		r.logger.Debug("Corroboration upgraded article", "id", a.ID, "confirmations", n)
	}
}
