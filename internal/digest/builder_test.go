package digest

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/user/newshound/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func finArticle(title string, score int, fetched time.Time) *types.Article {
	return &types.Article{
		ID:               types.NewArticleID(),
		URL:              "https://example.com/" + title,
		Title:            title,
		Category:         types.CategoryFinance,
		CredibilityScore: score,
		ValidationStatus: types.StatusVerified,
		FetchedAt:        fetched,
	}
}

func techArticle(title string, score int, fetched time.Time) *types.Article {
	a := finArticle(title, score, fetched)
	a.Category = types.CategoryTech
	return a
}

func TestBuild_FinanceHardFilter(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuilder(15, 40, testLogger())

	offTopic := finArticle("Celebrity opens a restaurant", 90, now)
	onTopic := finArticle("RBI tightens bank lending rules", 70, now)
	gadget := techArticle("New phone announced", 60, now)

	d, ranked := b.Build(types.NewRunID(), types.ChatID(1), []*types.Article{offTopic, onTopic, gadget})

	if len(d.Items) != 2 {
		t.Fatalf("got %d items, want 2 (off-topic finance dropped)", len(d.Items))
	}
	for _, a := range ranked {
		if a.ID == offTopic.ID {
			t.Error("off-topic finance article must be dropped entirely")
		}
	}
	if d.Status != types.DigestPending {
		t.Errorf("Status = %s, want pending_approval", d.Status)
	}
}

func TestBuild_BoostRanksHigher(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuilder(15, 40, testLogger())

	plain := finArticle("Bank deposit rates updated", 80, now)
	boosted := finArticle("UPI transaction limit raised", 80, now.Add(-time.Hour))

	d, ranked := b.Build(types.NewRunID(), types.ChatID(1), []*types.Article{plain, boosted})

	if ranked[0].ID != boosted.ID {
		t.Fatal("equal credibility: the UPI article must rank strictly higher")
	}
	if d.Items[0].RankScore != 120 {
		t.Errorf("boosted rank score = %d, want 120", d.Items[0].RankScore)
	}
	if d.Items[1].RankScore != 80 {
		t.Errorf("plain rank score = %d, want 80", d.Items[1].RankScore)
	}
}

func TestBuild_CapKeepsHighestRanked(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuilder(15, 40, testLogger())

	var batch []*types.Article
	for i := 0; i < 20; i++ {
		batch = append(batch, techArticle(fmt.Sprintf("Story %d", i), 50+i, now))
	}
	d, ranked := b.Build(types.NewRunID(), types.ChatID(1), batch)

	if len(d.Items) != 15 {
		t.Fatalf("got %d items, want exactly 15", len(d.Items))
	}
	for _, a := range ranked {
		if a.CredibilityScore < 55 {
			t.Errorf("article scored %d made the digest; the bottom 5 must be cut", a.CredibilityScore)
		}
	}
}

func TestBuild_TieBreakByRecency(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuilder(15, 40, testLogger())

	older := techArticle("Older story", 70, now.Add(-2*time.Hour))
	newer := techArticle("Newer story", 70, now)

	_, ranked := b.Build(types.NewRunID(), types.ChatID(1), []*types.Article{older, newer})
	if ranked[0].ID != newer.ID {
		t.Error("ties must break to the most recent article")
	}
}

func TestBuild_GroupsFollowCategoryOrder(t *testing.T) {
	now := time.Now().UTC()
	b := NewBuilder(15, 40, testLogger())

	gov := finArticle("Data protection rules notified", 95, now)
	gov.Category = types.CategoryGovernment
	tech := techArticle("Chip startup funding", 90, now)
	fin := finArticle("Bank credit growth accelerates", 60, now)

	d, ranked := b.Build(types.NewRunID(), types.ChatID(1), []*types.Article{gov, tech, fin})

	if ranked[0].Category != types.CategoryFinance ||
		ranked[1].Category != types.CategoryTech ||
		ranked[2].Category != types.CategoryGovernment {
		t.Errorf("presentation order wrong: %s, %s, %s", ranked[0].Category, ranked[1].Category, ranked[2].Category)
	}
	for i, item := range d.Items {
		if item.ArticleID != ranked[i].ID {
			t.Fatalf("digest item %d does not align with the ranked slice", i)
		}
	}
}

func TestBuild_SelectionIsByGlobalRank(t *testing.T) {
	// A low-scored finance article must not displace a high-scored tech
	// article just because finance renders first.
	now := time.Now().UTC()
	b := NewBuilder(2, 40, testLogger())

	lowFin := finArticle("Minor bank notice", 40, now)
	highTech := techArticle("Major outage postmortem", 90, now)
	midGov := finArticle("Policy update", 70, now)
	midGov.Category = types.CategoryGovernment

	d, ranked := b.Build(types.NewRunID(), types.ChatID(1), []*types.Article{lowFin, highTech, midGov})

	if len(d.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(d.Items))
	}
	for _, a := range ranked {
		if a.ID == lowFin.ID {
			t.Error("the lowest-ranked article must be the one cut")
		}
	}
}
