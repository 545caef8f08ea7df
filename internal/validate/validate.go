// Package validate scores fetched articles for credibility. A model-backed
// classifier does the scoring when available; a deterministic rule
// classifier covers every failure so the pipeline never stalls on the model.
package validate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/user/newshound/internal/types"
)

// DefaultConcurrency bounds simultaneous classification calls.
const DefaultConcurrency = 5

// Counters reports what validation did to a batch.
type Counters struct {
	Verified   int
	Actionable int
	Translated int
}

// Validator runs translation and classification over a batch with bounded
// concurrency. The bound covers the external calls, not the batch size.
type Validator struct {
	classifier types.Classifier
	fallback   RuleClassifier
	translator types.Translator
	sem        *semaphore.Weighted
	logger     *slog.Logger
}

// New creates a validator. classifier may be nil, in which case every
// article takes the rule path. A non-positive concurrency falls back to 5.
func New(classifier types.Classifier, translator types.Translator, concurrency int64, logger *slog.Logger) *Validator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Validator{
		classifier: classifier,
		translator: translator,
		sem:        semaphore.NewWeighted(concurrency),
		logger:     logger,
	}
}

// ValidateAll processes every article in place and returns batch counters.
// Each article holds a semaphore slot for its translate+classify round trip,
// so at no instant are more than the configured number of calls in flight.
func (v *Validator) ValidateAll(ctx context.Context, articles []*types.Article) Counters {
	var (
		wg         sync.WaitGroup
		verified   atomic.Int64
		actionable atomic.Int64
		translated atomic.Int64
	)

	for _, a := range articles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := v.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer v.sem.Release(1)

			if v.translate(ctx, a) {
				translated.Add(1)
			}
			v.classify(ctx, a)

			if a.ValidationStatus == types.StatusVerified {
				verified.Add(1)
			}
			if a.IsActionable {
				actionable.Add(1)
			}
		}()
	}
	wg.Wait()

	return Counters{
		Verified:   int(verified.Load()),
		Actionable: int(actionable.Load()),
		Translated: int(translated.Load()),
	}
}

// translate runs non-English articles through the translator. Failure keeps
// the article as fetched; it still proceeds through classification.
func (v *Validator) translate(ctx context.Context, a *types.Article) bool {
	if v.translator == nil || a.Language == "" || a.Language == "en" {
		return false
	}
	if err := v.translator.Translate(ctx, a); err != nil {
		v.logger.Warn("Translation failed, keeping original language", "id", a.ID, "language", a.Language, "error", err)
		return false
	}
	return a.WasTranslated
}

// classify fills the article's credibility fields, falling back to the rule
// classifier whenever the model path errors.
func (v *Validator) classify(ctx context.Context, a *types.Article) {
	var (
		cls *types.Classification
		err error
	)
	if v.classifier != nil {
		cls, err = v.classifier.Classify(ctx, a)
		if err != nil {
			v.logger.Warn("Classifier unavailable, using rule fallback", "id", a.ID, "error", err)
		}
	}
	if cls == nil {
		cls, _ = v.fallback.Classify(ctx, a)
	}

	a.SourceType = cls.SourceType
	a.ValidationStatus = cls.ValidationStatus
	a.CredibilityScore = cls.CredibilityScore
	a.Reasoning = cls.Reasoning
	a.IsActionable = cls.IsActionable
	a.WhyItMatters = cls.WhyItMatters
	if cls.Summary != "" {
		a.Summary = cls.Summary
	} else {
		a.Summary = Summarize(a.Content)
	}
}
