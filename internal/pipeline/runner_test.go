package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/user/newshound/internal/digest"
	"github.com/user/newshound/internal/feeds"
	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/internal/validate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu         sync.Mutex
	articles   []*types.Article
	runs       []*types.AgentRun
	digests    []*types.Digest
	articleErr error
	runErr     error
	digestErr  error
}

func (s *fakeStore) SaveArticle(ctx context.Context, a *types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.articleErr != nil {
		return s.articleErr
	}
	s.articles = append(s.articles, a)
	return nil
}

func (s *fakeStore) Article(ctx context.Context, id types.ArticleID) (*types.Article, error) {
	return nil, types.ErrNotFound
}

func (s *fakeStore) RecentURLs(ctx context.Context, since time.Time) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *fakeStore) RecentArticles(ctx context.Context, category types.Category, limit int) ([]*types.Article, error) {
	return nil, nil
}

func (s *fakeStore) TopArticles(ctx context.Context, since time.Time, limit int) ([]*types.Article, error) {
	return nil, nil
}

func (s *fakeStore) SearchArticles(ctx context.Context, query string, limit int) ([]*types.Article, error) {
	return nil, nil
}

func (s *fakeStore) DeleteExpiredArticles(ctx context.Context, now time.Time) ([]types.ArticleID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []types.ArticleID
	var kept []*types.Article
	for _, a := range s.articles {
		if !a.ExpiresAt.IsZero() && !a.ExpiresAt.After(now) {
			removed = append(removed, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	s.articles = kept
	return removed, nil
}

func (s *fakeStore) SaveRun(ctx context.Context, run *types.AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return s.runErr
	}
	for i, existing := range s.runs {
		if existing.ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeStore) LastRun(ctx context.Context) (*types.AgentRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) == 0 {
		return nil, types.ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

func (s *fakeStore) ListRuns(ctx context.Context, limit int) ([]*types.AgentRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.AgentRun(nil), s.runs...), nil
}

func (s *fakeStore) SaveDigest(ctx context.Context, d *types.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.digestErr != nil {
		return s.digestErr
	}
	s.digests = append(s.digests, d)
	return nil
}

func (s *fakeStore) Digest(ctx context.Context, id types.DigestID) (*types.Digest, error) {
	return nil, types.ErrNotFound
}

func (s *fakeStore) PendingDigest(ctx context.Context, chat types.ChatID) (*types.Digest, error) {
	return nil, types.ErrNotFound
}

func (s *fakeStore) ListDigests(ctx context.Context, limit int) ([]*types.Digest, error) {
	return nil, nil
}

func (s *fakeStore) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func (s *fakeStore) digestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.digests)
}

type fakeAggregator struct {
	articles []*types.Article
	results  []feeds.SourceResult
	block    chan struct{}
}

func (a *fakeAggregator) FetchAll(ctx context.Context, sources []types.Source) ([]*types.Article, []feeds.SourceResult) {
	if a.block != nil {
		<-a.block
	}
	return a.articles, a.results
}

type fakeDedup struct {
	dropped int
}

func (d *fakeDedup) Filter(ctx context.Context, articles []*types.Article) ([]*types.Article, int) {
	return articles, d.dropped
}

type fakeValidator struct {
	counters validate.Counters
	mark     func(a *types.Article)
}

func (v *fakeValidator) ValidateAll(ctx context.Context, articles []*types.Article) validate.Counters {
	if v.mark != nil {
		for _, a := range articles {
			v.mark(a)
		}
	}
	return v.counters
}

type fakeResolver struct{}

func (fakeResolver) ResolveAll(ctx context.Context, articles []*types.Article) {}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []*types.Digest
	empty     int
	failed    []*types.AgentRun
}

func (n *fakeNotifier) PipelineCompleted(ctx context.Context, d *types.Digest, articles []*types.Article) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, d)
	return nil
}

func (n *fakeNotifier) PipelineEmpty(ctx context.Context, run *types.AgentRun) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.empty++
	return nil
}

func (n *fakeNotifier) PipelineFailed(ctx context.Context, run *types.AgentRun) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, run)
	return nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	ids     []types.ArticleID
	deleted []types.ArticleID
	err     error
}

func (i *fakeIndexer) IndexArticle(a *types.Article) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.ids = append(i.ids, a.ID)
	return nil
}

func (i *fakeIndexer) DeleteBatch(ids []types.ArticleID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.deleted = append(i.deleted, ids...)
	return nil
}

func pipelineArticle(title string, category types.Category) *types.Article {
	return &types.Article{
		ID:        types.NewArticleID(),
		URL:       "https://example.com/" + title,
		Title:     title,
		Category:  category,
		FetchedAt: time.Now().UTC(),
		Language:  "en",
		Content:   "Reserve bank payment update for " + title,
	}
}

func newTestRunner(store *fakeStore, agg Aggregator, val Validator, notifier Notifier, idx Indexer) *Runner {
	return NewRunner(Config{
		Store:        store,
		Aggregator:   agg,
		Deduplicator: &fakeDedup{dropped: 2},
		Validator:    val,
		Resolver:     fakeResolver{},
		Builder:      digest.NewBuilder(15, 40, testLogger()),
		Indexer:      idx,
		Notifier:     notifier,
		Sources:      []types.Source{{Name: "A", Kind: types.SourceKindRSS, URL: "https://a"}},
		Chat:         types.ChatID(7),
		Logger:       testLogger(),
	})
}

func markValidated(a *types.Article) {
	a.ValidationStatus = types.StatusVerified
	a.CredibilityScore = 80
	a.Summary = "Summary of " + a.Title
}

func TestRunOnce_HappyPath(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	idx := &fakeIndexer{}
	agg := &fakeAggregator{
		articles: []*types.Article{
			pipelineArticle("UPI limit raised", types.CategoryFinance),
			pipelineArticle("Data center policy", types.CategoryTech),
			pipelineArticle("Chip fab approved", types.CategoryTech),
		},
		results: []feeds.SourceResult{{Source: "A", Articles: 3}},
	}
	val := &fakeValidator{
		counters: validate.Counters{Actionable: 1, Translated: 0},
		mark:     markValidated,
	}
	r := newTestRunner(store, agg, val, notifier, idx)

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if run.Status != types.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed (%s)", run.Status, run.ErrorMessage)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if run.Counters.Fetched != 3 || run.Counters.Deduped != 2 || run.Counters.Verified != 3 {
		t.Errorf("counters = %+v", run.Counters)
	}
	if run.Counters.Actionable != 1 {
		t.Errorf("Actionable = %d, want 1", run.Counters.Actionable)
	}

	if len(store.articles) != 3 {
		t.Fatalf("stored %d articles, want 3", len(store.articles))
	}
	for _, a := range store.articles {
		if a.ExpiresAt.IsZero() {
			t.Error("stored article has no expiry")
		}
		wantExpiry := a.FetchedAt.Add(DefaultRetentionDays * 24 * time.Hour)
		if !a.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("expiry = %v, want fetchedAt+30d", a.ExpiresAt)
		}
	}
	if len(idx.ids) != 3 {
		t.Errorf("indexed %d articles, want 3", len(idx.ids))
	}

	if store.digestCount() != 1 {
		t.Fatalf("stored %d digests, want 1", store.digestCount())
	}
	d := store.digests[0]
	if d.Status != types.DigestPending {
		t.Errorf("digest status = %s, want pending_approval", d.Status)
	}
	if d.RunID != run.ID || d.ChatID != types.ChatID(7) {
		t.Errorf("digest run/chat = %s/%d", d.RunID, d.ChatID)
	}
	if len(notifier.completed) != 1 || notifier.empty != 0 || len(notifier.failed) != 0 {
		t.Errorf("notifications: completed=%d empty=%d failed=%d",
			len(notifier.completed), notifier.empty, len(notifier.failed))
	}
}

func TestRunOnce_AllSourcesFailedFailsRun(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	agg := &fakeAggregator{
		results: []feeds.SourceResult{
			{Source: "A", Err: types.ErrSourceUnavailable},
			{Source: "B", Err: types.ErrSourceUnavailable},
		},
	}
	r := newTestRunner(store, agg, &fakeValidator{}, notifier, nil)

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if run.Status != types.RunStatusFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Error("failed run carries no error message")
	}
	if len(notifier.failed) != 1 {
		t.Errorf("failure notifications = %d, want 1", len(notifier.failed))
	}
	if notifier.empty != 0 || len(notifier.completed) != 0 {
		t.Error("a failed run must not look like an empty or completed one")
	}
	if store.digestCount() != 0 {
		t.Error("failed run must not store a digest")
	}
}

func TestRunOnce_PartialSourceFailureContinues(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	agg := &fakeAggregator{
		articles: []*types.Article{pipelineArticle("RBI circular on KYC", types.CategoryFinance)},
		results: []feeds.SourceResult{
			{Source: "A", Articles: 1},
			{Source: "B", Err: types.ErrSourceUnavailable},
		},
	}
	val := &fakeValidator{mark: markValidated}
	r := newTestRunner(store, agg, val, notifier, nil)

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if run.Status != types.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed despite one dead source", run.Status)
	}
}

func TestRunOnce_EmptyRunNotifiesDistinctly(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	agg := &fakeAggregator{results: []feeds.SourceResult{{Source: "A", Articles: 0}}}
	r := newTestRunner(store, agg, &fakeValidator{}, notifier, nil)

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if run.Status != types.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
	if notifier.empty != 1 || len(notifier.failed) != 0 || len(notifier.completed) != 0 {
		t.Errorf("notifications: completed=%d empty=%d failed=%d, want empty only",
			len(notifier.completed), notifier.empty, len(notifier.failed))
	}
	if store.digestCount() != 0 {
		t.Error("empty run must not store a digest")
	}
}

func TestRunOnce_StoreFailureFailsRun(t *testing.T) {
	store := &fakeStore{articleErr: fmt.Errorf("%w: disk full", types.ErrStoreUnavailable)}
	notifier := &fakeNotifier{}
	agg := &fakeAggregator{
		articles: []*types.Article{pipelineArticle("UPI outage report", types.CategoryFinance)},
		results:  []feeds.SourceResult{{Source: "A", Articles: 1}},
	}
	r := newTestRunner(store, agg, &fakeValidator{mark: markValidated}, notifier, nil)

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if run.Status != types.RunStatusFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
	if len(notifier.failed) != 1 {
		t.Error("store failure must produce a failure notification")
	}
}

func TestRunOnce_IndexFailureDoesNotFailRun(t *testing.T) {
	store := &fakeStore{}
	idx := &fakeIndexer{err: errors.New("index corrupt")}
	agg := &fakeAggregator{
		articles: []*types.Article{pipelineArticle("NPCI settlement note", types.CategoryFinance)},
		results:  []feeds.SourceResult{{Source: "A", Articles: 1}},
	}
	r := newTestRunner(store, agg, &fakeValidator{mark: markValidated}, &fakeNotifier{}, idx)

	run, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if run.Status != types.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
}

func TestTrigger_RejectsConcurrentRun(t *testing.T) {
	store := &fakeStore{}
	block := make(chan struct{})
	agg := &fakeAggregator{
		block:   block,
		results: []feeds.SourceResult{{Source: "A", Articles: 0}},
	}
	r := newTestRunner(store, agg, &fakeValidator{}, &fakeNotifier{}, nil)
	r.Start(context.Background())
	defer r.Stop()

	id, err := r.Trigger(context.Background())
	if err != nil {
		t.Fatalf("first Trigger: %v", err)
	}
	if id == "" {
		t.Fatal("first Trigger returned no run ID")
	}

	if _, err := r.Trigger(context.Background()); !errors.Is(err, types.ErrRunInProgress) {
		t.Fatalf("second Trigger error = %v, want ErrRunInProgress", err)
	}
	if store.runCount() != 1 {
		t.Fatalf("stored %d runs while one in flight, want 1", store.runCount())
	}

	close(block)
	waitFor(t, func() bool { return !r.Running() })

	if _, err := r.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger after completion: %v", err)
	}
	waitFor(t, func() bool { return !r.Running() })
}

func TestTrigger_SaveRunFailureReleasesGuard(t *testing.T) {
	store := &fakeStore{runErr: errors.New("locked")}
	agg := &fakeAggregator{results: []feeds.SourceResult{{Source: "A"}}}
	r := newTestRunner(store, agg, &fakeValidator{}, &fakeNotifier{}, nil)

	if _, err := r.Trigger(context.Background()); !errors.Is(err, types.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if r.Running() {
		t.Error("guard still held after a failed start")
	}
}

func TestCleanupExpired(t *testing.T) {
	store := &fakeStore{}
	idx := &fakeIndexer{}
	r := newTestRunner(store, &fakeAggregator{}, &fakeValidator{}, &fakeNotifier{}, idx)

	expired := pipelineArticle("Old budget recap", types.CategoryFinance)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	live := pipelineArticle("Fresh repo rate call", types.CategoryFinance)
	live.ExpiresAt = time.Now().UTC().Add(24 * time.Hour)
	for _, a := range []*types.Article{expired, live} {
		if err := store.SaveArticle(context.Background(), a); err != nil {
			t.Fatalf("SaveArticle: %v", err)
		}
	}

	removed, err := r.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	store.mu.Lock()
	kept := len(store.articles)
	store.mu.Unlock()
	if kept != 1 {
		t.Fatalf("store holds %d articles after cleanup, want 1", kept)
	}

	idx.mu.Lock()
	deleted := append([]types.ArticleID(nil), idx.deleted...)
	idx.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != expired.ID {
		t.Errorf("index deletions = %v, want [%s]", deleted, expired.ID)
	}
}

func TestCleanupExpired_IndexFailureStillRemoves(t *testing.T) {
	store := &fakeStore{}
	idx := &fakeIndexer{err: errors.New("index corrupt")}
	r := newTestRunner(store, &fakeAggregator{}, &fakeValidator{}, &fakeNotifier{}, idx)

	expired := pipelineArticle("Stale KYC circular", types.CategoryFinance)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := store.SaveArticle(context.Background(), expired); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	removed, err := r.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
