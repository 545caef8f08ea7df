// Package pipeline orchestrates one agent run through its stages: fetch,
// dedup, validate, cross-reference, persist, build digest, notify.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/newshound/internal/feeds"
	"github.com/user/newshound/internal/metrics"
	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/internal/validate"
)

// DefaultRetentionDays is how long a fetched article stays in the store.
const DefaultRetentionDays = 30

// Store is the persistence surface a run needs.
type Store interface {
	types.ArticleStore
	types.RunStore
	types.DigestStore
}

// Aggregator fans out across the source catalog.
type Aggregator interface {
	FetchAll(ctx context.Context, sources []types.Source) ([]*types.Article, []feeds.SourceResult)
}

// Deduplicator drops articles already seen inside the URL window.
type Deduplicator interface {
	Filter(ctx context.Context, articles []*types.Article) ([]*types.Article, int)
}

// Validator classifies and translates a batch in place.
type Validator interface {
	ValidateAll(ctx context.Context, articles []*types.Article) validate.Counters
}

// Resolver corroborates unverified articles in place.
type Resolver interface {
	ResolveAll(ctx context.Context, articles []*types.Article)
}

// Builder assembles the ranked digest for a run.
type Builder interface {
	Build(runID types.RunID, chat types.ChatID, articles []*types.Article) (*types.Digest, []*types.Article)
}

// Indexer makes stored articles searchable. Index failures are logged and
// never fail a run; the search path has a store fallback.
type Indexer interface {
	IndexArticle(a *types.Article) error
	DeleteBatch(ids []types.ArticleID) error
}

// Notifier receives run outcomes for delivery to the conversation. A
// successful run with an empty digest and a failed run produce different
// notifications.
type Notifier interface {
	PipelineCompleted(ctx context.Context, d *types.Digest, articles []*types.Article) error
	PipelineEmpty(ctx context.Context, run *types.AgentRun) error
	PipelineFailed(ctx context.Context, run *types.AgentRun) error
}

// Runner executes pipeline runs. At most one run is in flight per process;
// Trigger rejects concurrent starts synchronously.
type Runner struct {
	store      Store
	aggregator Aggregator
	deduper    Deduplicator
	validator  Validator
	resolver   Resolver
	builder    Builder
	indexer    Indexer
	notifier   Notifier
	metrics    *metrics.Collector
	logger     *slog.Logger

	sources   []types.Source
	chat      types.ChatID
	retention time.Duration

	running atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config carries the Runner's collaborators. Indexer, Notifier, and
// Metrics may be nil.
type Config struct {
	Store         Store
	Aggregator    Aggregator
	Deduplicator  Deduplicator
	Validator     Validator
	Resolver      Resolver
	Builder       Builder
	Indexer       Indexer
	Notifier      Notifier
	Metrics       *metrics.Collector
	Sources       []types.Source
	Chat          types.ChatID
	RetentionDays int
	Logger        *slog.Logger
}

func NewRunner(cfg Config) *Runner {
	retention := cfg.RetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:      cfg.Store,
		aggregator: cfg.Aggregator,
		deduper:    cfg.Deduplicator,
		validator:  cfg.Validator,
		resolver:   cfg.Resolver,
		builder:    cfg.Builder,
		indexer:    cfg.Indexer,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		logger:     logger,
		sources:    cfg.Sources,
		chat:       cfg.Chat,
		retention:  time.Duration(retention) * 24 * time.Hour,
	}
}

// Start initialises the context background runs execute under.
func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
}

// Stop cancels any in-flight run and waits for it to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Running reports whether a run is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Trigger starts a run in the background and returns its ID immediately.
// If a run is already in flight it returns ErrRunInProgress without
// creating a second AgentRun.
func (r *Runner) Trigger(ctx context.Context) (types.RunID, error) {
	if !r.running.CompareAndSwap(false, true) {
		return "", types.ErrRunInProgress
	}
	run := types.NewAgentRun()
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.running.Store(false)
		return "", fmt.Errorf("%w: save run: %v", types.ErrStoreUnavailable, err)
	}

	runCtx := r.ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(runCtx, run)
	}()
	return run.ID, nil
}

// RunOnce executes a run in the foreground and returns the finished
// AgentRun. Used by the CLI; shares the single-flight guard with Trigger.
func (r *Runner) RunOnce(ctx context.Context) (*types.AgentRun, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, types.ErrRunInProgress
	}
	run := types.NewAgentRun()
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.running.Store(false)
		return nil, fmt.Errorf("%w: save run: %v", types.ErrStoreUnavailable, err)
	}
	r.execute(ctx, run)
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *types.AgentRun) {
	defer r.running.Store(false)

	log := r.logger.With("run_id", run.ID)
	started := time.Now()
	log.Info("Pipeline run started", "sources", len(r.sources))

	combined, results := r.aggregator.FetchAll(ctx, r.sources)
	run.Counters.Fetched = len(combined)
	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			r.metrics.RecordSourceFailure(res.Source)
		}
	}
	if len(results) > 0 && failures == len(results) {
		r.fail(ctx, run, started, fmt.Errorf("all %d sources unavailable", len(results)))
		return
	}

	fresh, dupes := r.deduper.Filter(ctx, combined)
	run.Counters.Deduped = dupes

	counters := r.validator.ValidateAll(ctx, fresh)
	run.Counters.Actionable = counters.Actionable
	run.Counters.Translated = counters.Translated

	r.resolver.ResolveAll(ctx, fresh)
	verified := 0
	for _, a := range fresh {
		if a.ValidationStatus == types.StatusVerified {
			verified++
		}
	}
	run.Counters.Verified = verified

	for _, a := range fresh {
		if a.ExpiresAt.IsZero() {
			a.ExpiresAt = a.FetchedAt.Add(r.retention)
		}
		if err := r.store.SaveArticle(ctx, a); err != nil {
			r.fail(ctx, run, started, fmt.Errorf("save article %s: %w", a.ID, err))
			return
		}
		if r.indexer != nil {
			if err := r.indexer.IndexArticle(a); err != nil {
				log.Warn("Index write failed", "article_id", a.ID, "error", err)
			}
		}
	}

	d, ranked := r.builder.Build(run.ID, r.chat, fresh)
	r.metrics.RecordBatch(run.Counters.Fetched, dupes, verified)

	if len(d.Items) == 0 {
		r.finish(ctx, run, started)
		log.Info("Pipeline run completed with no digest",
			"fetched", run.Counters.Fetched, "deduped", dupes)
		if r.notifier != nil {
			if err := r.notifier.PipelineEmpty(ctx, run); err != nil {
				log.Warn("Empty-run notification failed", "error", err)
			}
		}
		return
	}

	if err := r.store.SaveDigest(ctx, d); err != nil {
		r.fail(ctx, run, started, fmt.Errorf("save digest: %w", err))
		return
	}
	r.metrics.RecordDigestItems(len(d.Items))

	r.finish(ctx, run, started)
	log.Info("Pipeline run completed",
		"fetched", run.Counters.Fetched,
		"deduped", dupes,
		"verified", verified,
		"digest_items", len(d.Items),
		"duration", time.Since(started).Round(time.Millisecond))

	if r.notifier != nil {
		if err := r.notifier.PipelineCompleted(ctx, d, ranked); err != nil {
			log.Warn("Digest notification failed", "error", err)
		}
	}
}

// CleanupExpired deletes articles past their retention window from the
// store and the search index. Returns the number removed.
func (r *Runner) CleanupExpired(ctx context.Context) (int, error) {
	ids, err := r.store.DeleteExpiredArticles(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 && r.indexer != nil {
		if err := r.indexer.DeleteBatch(ids); err != nil {
			r.logger.Warn("Index cleanup failed", "count", len(ids), "error", err)
		}
	}
	return len(ids), nil
}

// finish marks the run completed and persists it. A failed final save is
// logged; the run already happened and its articles are stored.
func (r *Runner) finish(ctx context.Context, run *types.AgentRun, started time.Time) {
	finished := time.Now().UTC()
	run.Status = types.RunStatusCompleted
	run.FinishedAt = &finished
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.logger.Error("Saving finished run failed", "run_id", run.ID, "error", err)
	}
	r.metrics.RecordRun(string(types.RunStatusCompleted), time.Since(started))
}

func (r *Runner) fail(ctx context.Context, run *types.AgentRun, started time.Time, cause error) {
	finished := time.Now().UTC()
	run.Status = types.RunStatusFailed
	run.FinishedAt = &finished
	run.ErrorMessage = cause.Error()
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.logger.Error("Saving failed run failed", "run_id", run.ID, "error", err)
	}
	r.metrics.RecordRun(string(types.RunStatusFailed), time.Since(started))
	r.logger.Error("Pipeline run failed", "run_id", run.ID, "error", cause)

	if r.notifier != nil {
		if err := r.notifier.PipelineFailed(ctx, run); err != nil {
			r.logger.Warn("Failure notification failed", "run_id", run.ID, "error", err)
		}
	}
}
