package feeds

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/user/newshound/internal/types"
)

const (
	userAgent = "Newshound/1.0 (news digest bot)"

	// maxFeedBytes bounds how much of a feed response is read.
	maxFeedBytes = 5 << 20

	// maxContentChars bounds stored article content.
	maxContentChars = 8000

	// defaultSourceLimit applies when a catalog entry has no limit.
	defaultSourceLimit = 15
)

// stripPolicy removes every tag. Policies are safe for concurrent use.
var stripPolicy = bluemonday.StrictPolicy()

// plainText strips markup from feed text fields. Feeds routinely wrap titles
// and descriptions in HTML, which must never reach Telegram unescaped.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// RSSFetcher pulls articles from RSS and Atom feeds.
type RSSFetcher struct {
	client Doer
	logger *slog.Logger
}

// NewRSSFetcher creates an RSS fetcher using the given HTTP client.
func NewRSSFetcher(client Doer, logger *slog.Logger) *RSSFetcher {
	return &RSSFetcher{client: client, logger: logger}
}

// Fetch downloads and parses one feed. Every failure is reported as a
// source-unavailable error so the aggregator can isolate it.
func (f *RSSFetcher) Fetch(ctx context.Context, src types.Source) ([]*types.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, src.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", types.ErrSourceUnavailable, src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", types.ErrSourceUnavailable, src.Name, err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse feed: %v", types.ErrSourceUnavailable, src.Name, err)
	}

	limit := src.Limit
	if limit <= 0 {
		limit = defaultSourceLimit
	}

	now := time.Now().UTC()
	articles := make([]*types.Article, 0, limit)
	for _, item := range feed.Items {
		if len(articles) >= limit {
			break
		}
		article := f.articleFromItem(src, item, now)
		if article == nil {
			continue
		}
		articles = append(articles, article)
	}

	f.logger.Debug("Fetched feed", "source", src.Name, "items", len(feed.Items), "kept", len(articles))
	return articles, nil
}

func (f *RSSFetcher) articleFromItem(src types.Source, item *gofeed.Item, now time.Time) *types.Article {
	title := plainText(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return nil
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	text := f.normalizeBody(src.Name, content)

	combined := title + " " + text
	return &types.Article{
		ID:         types.NewArticleID(),
		URL:        link,
		Title:      title,
		Content:    text,
		SourceName: src.Name,
		Category:   src.Category,
		Language:   DetectLanguage(combined),
		FetchedAt:  now,
	}
}

// normalizeBody converts an HTML item body to markdown-ish plain text.
func (f *RSSFetcher) normalizeBody(source, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		f.logger.Debug("HTML conversion failed, falling back to tag stripping", "source", source, "error", err)
		md = plainText(body)
	}
	return truncate(strings.TrimSpace(md), maxContentChars)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
