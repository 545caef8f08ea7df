// Package crossref corroborates unverified stories against Google News.
// One confirming publisher is enough to upgrade an article to verified;
// lookup failures never change anything.
package crossref

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/user/newshound/internal/types"
)

const (
	// DefaultBaseURL is the Google News RSS search endpoint.
	DefaultBaseURL = "https://news.google.com/rss/search"

	defaultTimeout = 15 * time.Second
	maxQueryChars  = 100
	maxEntries     = 15
	maxBodyBytes   = 2 << 20
)

// Doer is the slice of http.Client the lookup needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GoogleNews looks a story up by title and counts independent publishers
// carrying it.
type GoogleNews struct {
	client  Doer
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGoogleNews creates a corroborator against the public endpoint.
func NewGoogleNews(client Doer, timeout time.Duration, logger *slog.Logger) *GoogleNews {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GoogleNews{client: client, baseURL: DefaultBaseURL, timeout: timeout, logger: logger}
}

// NewGoogleNewsAt is NewGoogleNews against a different endpoint. Tests point
// it at a local server.
func NewGoogleNewsAt(baseURL string, client Doer, timeout time.Duration, logger *slog.Logger) *GoogleNews {
	g := NewGoogleNews(client, timeout, logger)
	g.baseURL = baseURL
	return g
}

// Corroborate implements types.Corroborator. It returns how many distinct
// publishers other than the article's own source carry a matching story.
func (g *GoogleNews) Corroborate(ctx context.Context, a *types.Article) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	query := a.Title
	if len(query) > maxQueryChars {
		cut := maxQueryChars
		for cut > 0 && !utf8.RuneStart(query[cut]) {
			cut--
		}
		query = query[:cut]
	}

	lookup := fmt.Sprintf("%s?q=%s&hl=en-IN&gl=IN&ceid=IN:en", g.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrCorroborationUnavailable, err)
	}
	req.Header.Set("User-Agent", "Newshound/1.0 (news digest bot)")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrCorroborationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", types.ErrCorroborationUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", types.ErrCorroborationUnavailable, err)
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return 0, fmt.Errorf("%w: parse feed: %v", types.ErrCorroborationUnavailable, err)
	}

	return countPublishers(feed.Items, a), nil
}

// countPublishers counts distinct publishers in the top entries, skipping
// the article's own source so a story cannot corroborate itself.
func countPublishers(items []*gofeed.Item, a *types.Article) int {
	own := strings.ToLower(strings.TrimSpace(a.SourceName))
	ownHost := hostOf(a.URL)

	seen := make(map[string]bool)
	for i, item := range items {
		if i >= maxEntries {
			break
		}
		p := publisherOf(item)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if key == own || (ownHost != "" && key == ownHost) {
			continue
		}
		seen[key] = true
	}
	return len(seen)
}

// publisherOf extracts the publisher from a Google News entry. Entry titles
// follow the "Headline - Publisher" convention; the link host is a redirect
// through news.google.com and only useful as a fallback.
func publisherOf(item *gofeed.Item) string {
	if i := strings.LastIndex(item.Title, " - "); i >= 0 {
		if p := strings.TrimSpace(item.Title[i+3:]); p != "" {
			return p
		}
	}
	if host := hostOf(item.Link); host != "news.google.com" {
		return host
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
