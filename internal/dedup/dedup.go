// Package dedup drops articles whose URL was already fetched recently.
package dedup

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/user/newshound/internal/types"
)

const (
	// DefaultWindowDays is how far back a URL counts as already seen.
	DefaultWindowDays = 7

	// DefaultMaxBatch caps how many new articles continue downstream.
	DefaultMaxBatch = 50
)

// Deduplicator filters a fetch batch against the store's recent URL window.
type Deduplicator struct {
	store      types.ArticleStore
	windowDays int
	maxBatch   int
	logger     *slog.Logger
}

// New creates a deduplicator. Non-positive windowDays or maxBatch fall back
// to the defaults.
func New(store types.ArticleStore, windowDays, maxBatch int, logger *slog.Logger) *Deduplicator {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Deduplicator{store: store, windowDays: windowDays, maxBatch: maxBatch, logger: logger}
}

// Filter returns the articles whose URL has not been seen inside the window,
// newest first, capped at the batch limit. The duplicate count covers both
// previously stored URLs and repeats inside the batch itself. If the window
// query fails the batch passes through unfiltered; losing dedup for one run
// is better than losing the run.
func (d *Deduplicator) Filter(ctx context.Context, articles []*types.Article) ([]*types.Article, int) {
	since := time.Now().UTC().AddDate(0, 0, -d.windowDays)

	seen, err := d.store.RecentURLs(ctx, since)
	if err != nil {
		d.logger.Warn("Recent URL window unavailable, skipping dedup", "error", err)
		seen = map[string]bool{}
	}

	fresh := make([]*types.Article, 0, len(articles))
	dupes := 0
	for _, a := range articles {
		if seen[a.URL] {
			dupes++
			continue
		}
		seen[a.URL] = true
		fresh = append(fresh, a)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].FetchedAt.After(fresh[j].FetchedAt)
	})
	if len(fresh) > d.maxBatch {
		d.logger.Info("Capping batch", "fetched", len(fresh), "cap", d.maxBatch)
		fresh = fresh[:d.maxBatch]
	}

	d.logger.Debug("Dedup complete", "in", len(articles), "new", len(fresh), "duplicates", dupes)
	return fresh, dupes
}
