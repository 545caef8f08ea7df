package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// WebResult is one hit from a web search.
type WebResult struct {
	Title       string
	URL         string
	Description string
}

// WebSearcher performs a web search for grounding assistant answers.
type WebSearcher interface {
	Search(ctx context.Context, query string, count int) ([]WebResult, error)
}

// BraveClient searches the web via the Brave Search API.
type BraveClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewBraveClient(apiKey string) *BraveClient {
	return &BraveClient{
		apiKey:  apiKey,
		baseURL: "https://api.search.brave.com/res/v1/web/search",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type braveResponse struct {
	Web braveWeb `json:"web"`
}

type braveWeb struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (b *BraveClient) Search(ctx context.Context, query string, count int) ([]WebResult, error) {
	if count <= 0 {
		count = 5
	}
	if count > 20 {
		count = 20
	}

	u, _ := url.Parse(b.baseURL)
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", count))
	q.Set("country", "IN")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]WebResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, WebResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return results, nil
}

const maxMergedResults = 10

// searchMulti runs all queries in parallel, deduplicates by URL keeping
// first-query-first order, and caps the merged list. Failed queries are
// dropped silently so one bad query never sinks the whole answer.
func searchMulti(ctx context.Context, searcher WebSearcher, queries []string, perQuery int) []WebResult {
	batches := make([][]WebResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results, err := searcher.Search(ctx, q, perQuery)
			if err != nil {
				return
			}
			batches[i] = results
		}(i, q)
	}
	wg.Wait()

	seen := make(map[string]bool)
	var merged []WebResult
	for _, batch := range batches {
		for _, r := range batch {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			merged = append(merged, r)
			if len(merged) == maxMergedResults {
				return merged
			}
		}
	}
	return merged
}
