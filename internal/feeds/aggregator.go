package feeds

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/newshound/internal/types"
)

// SourceResult records the outcome of one source fetch.
type SourceResult struct {
	Source   string
	Articles int
	Err      error
}

// Aggregator fans a fetch out across every catalog source concurrently.
// A failing source never fails the whole fetch; its error is recorded in
// the per-source results and the run moves on with whatever arrived.
type Aggregator struct {
	fetchers map[types.SourceKind]types.Fetcher
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an aggregator that dispatches each source to the
// fetcher registered for its kind. timeout bounds each individual source.
func NewAggregator(fetchers map[types.SourceKind]types.Fetcher, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Aggregator{fetchers: fetchers, timeout: timeout, logger: logger}
}

// FetchAll fetches every source concurrently and returns the combined
// articles plus per-source results in catalog order.
func (a *Aggregator) FetchAll(ctx context.Context, sources []types.Source) ([]*types.Article, []SourceResult) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		combined []*types.Article
		results  = make([]SourceResult, len(sources))
	)

	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()

			srcCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			fetcher, ok := a.fetchers[src.Kind]
			if !ok {
				a.logger.Warn("No fetcher for source kind", "source", src.Name, "kind", src.Kind)
				results[i] = SourceResult{Source: src.Name, Err: types.ErrSourceUnavailable}
				return
			}

			articles, err := fetcher.Fetch(srcCtx, src)
			if err != nil {
				a.logger.Warn("Source fetch failed", "source", src.Name, "error", err)
				results[i] = SourceResult{Source: src.Name, Err: err}
				return
			}

			mu.Lock()
			combined = append(combined, articles...)
			mu.Unlock()
			results[i] = SourceResult{Source: src.Name, Articles: len(articles)}
		}()
	}
	wg.Wait()

	a.logger.Info("Fetch complete", "sources", len(sources), "articles", len(combined))
	return combined, results
}
