package crossref

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/newshound/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const googleNewsRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>"rbi digital lending" - Google News</title>
<item><title>RBI tightens digital lending norms - The Hindu</title><link>https://news.google.com/rss/articles/a1</link></item>
<item><title>RBI tightens lending rules - Moneycontrol</title><link>https://news.google.com/rss/articles/a2</link></item>
<item><title>Digital lending norms tightened further - The Hindu</title><link>https://news.google.com/rss/articles/a3</link></item>
<item><title>RBI acts on digital lending - LiveMint Banking</title><link>https://news.google.com/rss/articles/a4</link></item>
</channel></rss>`

func TestGoogleNews_Corroborate(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("hl") != "en-IN" || r.URL.Query().Get("gl") != "IN" {
			t.Errorf("missing locale params: %s", r.URL.RawQuery)
		}
		io.WriteString(w, googleNewsRSS)
	}))
	defer srv.Close()

	g := NewGoogleNewsAt(srv.URL, srv.Client(), time.Second, testLogger())
	a := &types.Article{
		ID:         types.NewArticleID(),
		URL:        "https://www.livemint.com/industry/banking/story.html",
		Title:      "RBI tightens digital lending norms",
		SourceName: "LiveMint Banking",
	}

	n, err := g.Corroborate(context.Background(), a)
	if err != nil {
		t.Fatalf("Corroborate() error = %v", err)
	}
	// The Hindu (twice, counted once) and Moneycontrol; the article's own
	// source does not corroborate itself.
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if gotQuery != a.Title {
		t.Errorf("query = %q, want the title", gotQuery)
	}
}

func TestGoogleNews_QueryTruncated(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		io.WriteString(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`)
	}))
	defer srv.Close()

	g := NewGoogleNewsAt(srv.URL, srv.Client(), time.Second, testLogger())
	a := &types.Article{Title: strings.Repeat("lending ", 30), SourceName: "X"}

	if _, err := g.Corroborate(context.Background(), a); err != nil {
		t.Fatalf("Corroborate() error = %v", err)
	}
	if len(gotQuery) > 100 {
		t.Errorf("query length = %d, want <= 100", len(gotQuery))
	}
}

func TestGoogleNews_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogleNewsAt(srv.URL, srv.Client(), time.Second, testLogger())
	_, err := g.Corroborate(context.Background(), &types.Article{Title: "anything", SourceName: "X"})
	if !errors.Is(err, types.ErrCorroborationUnavailable) {
		t.Errorf("error = %v, want ErrCorroborationUnavailable", err)
	}
}

// mockCorroborator returns a fixed count or error and records which
// articles were looked up.
type mockCorroborator struct {
	count   int
	err     error
	lookups []types.ArticleID
}

func (m *mockCorroborator) Corroborate(ctx context.Context, a *types.Article) (int, error) {
	m.lookups = append(m.lookups, a.ID)
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

func TestResolver_UpgradesOnConfirmation(t *testing.T) {
	mock := &mockCorroborator{count: 3}
	r := NewResolver(mock, testLogger())

	a := &types.Article{
		ID:               types.NewArticleID(),
		ValidationStatus: types.StatusUnverified,
		CredibilityScore: 72,
		Reasoning:        "Reputable outlet",
	}
	r.ResolveAll(context.Background(), []*types.Article{a})

	if a.ValidationStatus != types.StatusVerified {
		t.Errorf("status = %s, want verified", a.ValidationStatus)
	}
	if a.CredibilityScore != 87 {
		t.Errorf("score = %d, want 87", a.CredibilityScore)
	}
	if a.CrossReferenceCount != 3 {
		t.Errorf("CrossReferenceCount = %d, want 3", a.CrossReferenceCount)
	}
	if !strings.HasSuffix(a.Reasoning, "[3 other sources confirm]") {
		t.Errorf("Reasoning = %q", a.Reasoning)
	}
}

func TestResolver_ScoreCappedAt100(t *testing.T) {
	r := NewResolver(&mockCorroborator{count: 1}, testLogger())
	a := &types.Article{ID: types.NewArticleID(), ValidationStatus: types.StatusUnverified, CredibilityScore: 95}
	r.ResolveAll(context.Background(), []*types.Article{a})
	if a.CredibilityScore != 100 {
		t.Errorf("score = %d, want 100", a.CredibilityScore)
	}
}

func TestResolver_SkipsResolvedArticles(t *testing.T) {
	mock := &mockCorroborator{count: 5}
	r := NewResolver(mock, testLogger())

	verified := &types.Article{ID: types.NewArticleID(), ValidationStatus: types.StatusVerified, CredibilityScore: 92}
	conflicting := &types.Article{ID: types.NewArticleID(), ValidationStatus: types.StatusConflicting, CredibilityScore: 30}
	r.ResolveAll(context.Background(), []*types.Article{verified, conflicting})

	if len(mock.lookups) != 0 {
		t.Errorf("lookups = %d, verified/conflicting articles must be skipped", len(mock.lookups))
	}
	if verified.CredibilityScore != 92 || conflicting.ValidationStatus != types.StatusConflicting {
		t.Error("skipped articles must not change")
	}
}

func TestResolver_FailureLeavesStatusUnchanged(t *testing.T) {
	r := NewResolver(&mockCorroborator{err: types.ErrCorroborationUnavailable}, testLogger())
	a := &types.Article{ID: types.NewArticleID(), ValidationStatus: types.StatusUnverified, CredibilityScore: 60, Reasoning: "r"}
	r.ResolveAll(context.Background(), []*types.Article{a})

	if a.ValidationStatus != types.StatusUnverified || a.CredibilityScore != 60 || a.CrossReferenceCount != 0 {
		t.Errorf("failed lookup must leave the article untouched: %+v", a)
	}
}

func TestResolver_ZeroConfirmationsStaysUnverified(t *testing.T) {
	r := NewResolver(&mockCorroborator{count: 0}, testLogger())
	a := &types.Article{ID: types.NewArticleID(), ValidationStatus: types.StatusUnverified, CredibilityScore: 60}
	r.ResolveAll(context.Background(), []*types.Article{a})

	if a.ValidationStatus != types.StatusUnverified {
		t.Errorf("status = %s, want unverified", a.ValidationStatus)
	}
	if a.CrossReferenceCount != 0 {
		t.Errorf("CrossReferenceCount = %d", a.CrossReferenceCount)
	}
}

func TestResolver_NilCorroborator(t *testing.T) {
	r := NewResolver(nil, testLogger())
	a := &types.Article{ID: types.NewArticleID(), ValidationStatus: types.StatusUnverified}
	r.ResolveAll(context.Background(), []*types.Article{a})
	if a.ValidationStatus != types.StatusUnverified {
		t.Error("nil corroborator must be a no-op")
	}
}
