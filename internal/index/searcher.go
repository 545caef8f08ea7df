package index

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/user/newshound/internal/types"
)

// Searcher answers /search queries: index first, then the store's
// case-insensitive substring scan when the index finds nothing.
type Searcher struct {
	idx    *Index
	store  types.ArticleStore
	logger *slog.Logger
}

func NewSearcher(idx *Index, store types.ArticleStore, logger *slog.Logger) *Searcher {
	return &Searcher{idx: idx, store: store, logger: logger}
}

// Search returns matching articles ranked by index weight, ties broken by
// recency. An index failure degrades to the substring fallback rather than
// failing the command.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]*types.Article, error) {
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.idx.Search(query, limit)
	if err != nil {
		s.logger.Warn("index search failed, using substring fallback",
			slog.String("query", query),
			slog.String("error", err.Error()))
		hits = nil
	}

	if len(hits) == 0 {
		return s.store.SearchArticles(ctx, query, limit)
	}

	type scored struct {
		article *types.Article
		score   float64
	}

	var found []scored
	for _, hit := range hits {
		a, err := s.store.Article(ctx, hit.ID)
		if errors.Is(err, types.ErrNotFound) {
			// Index entry outlived the article; cleanup will prune it.
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, scored{article: a, score: hit.Score})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].article.FetchedAt.After(found[j].article.FetchedAt)
	})

	articles := make([]*types.Article, 0, len(found))
	for _, f := range found {
		articles = append(articles, f.article)
	}
	return articles, nil
}
