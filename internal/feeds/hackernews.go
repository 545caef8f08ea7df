package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/newshound/internal/types"
)

const (
	hnTopStoriesTimeout = 10 * time.Second
	hnItemTimeout       = 8 * time.Second
	hnDefaultLimit      = 10
)

// HackerNewsFetcher pulls top stories from the Hacker News Firebase API.
// The catalog URL is the API base, e.g. https://hacker-news.firebaseio.com/v0.
type HackerNewsFetcher struct {
	client Doer
	logger *slog.Logger
}

// NewHackerNewsFetcher creates a Hacker News fetcher using the given HTTP client.
func NewHackerNewsFetcher(client Doer, logger *slog.Logger) *HackerNewsFetcher {
	return &HackerNewsFetcher{client: client, logger: logger}
}

type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Score int    `json:"score"`
	By    string `json:"by"`
	Dead  bool   `json:"dead"`
}

// Fetch lists the top story IDs, then loads items until the source limit is
// met. Jobs, polls and dead items are skipped. Individual item failures are
// logged and skipped; only a failed listing fails the source.
func (f *HackerNewsFetcher) Fetch(ctx context.Context, src types.Source) ([]*types.Article, error) {
	ids, err := f.topStories(ctx, src)
	if err != nil {
		return nil, err
	}

	limit := src.Limit
	if limit <= 0 {
		limit = hnDefaultLimit
	}

	now := time.Now().UTC()
	articles := make([]*types.Article, 0, limit)
	for _, id := range ids {
		if len(articles) >= limit {
			break
		}
		if ctx.Err() != nil {
			break
		}
		item, err := f.item(ctx, src, id)
		if err != nil {
			f.logger.Debug("Skipping HN item", "id", id, "error", err)
			continue
		}
		if item.Type != "story" || item.Dead || item.Title == "" {
			continue
		}
		url := item.URL
		if url == "" {
			// Ask HN and similar text posts have no outbound link.
			url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
		}
		articles = append(articles, &types.Article{
			ID:         types.NewArticleID(),
			URL:        url,
			Title:      plainText(item.Title),
			Content:    truncate(plainText(item.Text), maxContentChars),
			SourceName: src.Name,
			Category:   src.Category,
			Language:   "en",
			FetchedAt:  now,
		})
	}
	return articles, nil
}

func (f *HackerNewsFetcher) topStories(ctx context.Context, src types.Source) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, hnTopStoriesTimeout)
	defer cancel()

	var ids []int
	if err := f.getJSON(ctx, src.URL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("%w: %s: top stories: %v", types.ErrSourceUnavailable, src.Name, err)
	}
	return ids, nil
}

func (f *HackerNewsFetcher) item(ctx context.Context, src types.Source, id int) (*hnItem, error) {
	ctx, cancel := context.WithTimeout(ctx, hnItemTimeout)
	defer cancel()

	var item hnItem
	if err := f.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", src.URL, id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (f *HackerNewsFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
