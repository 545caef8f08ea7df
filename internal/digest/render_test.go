package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/user/newshound/internal/types"
)

func TestRenderHTML_HeadersAndNumbering(t *testing.T) {
	now := time.Now().UTC()
	fin1 := finArticle("UPI limits raised", 92, now)
	fin2 := finArticle("Bank credit expands", 70, now)
	tech := techArticle("Chip plant announced", 80, now)
	gov := finArticle("New data rules notified", 85, now)
	gov.Category = types.CategoryGovernment

	out := RenderHTML([]*types.Article{fin1, fin2, tech, gov})

	if !strings.HasPrefix(out, "📰 <b>News Digest</b>") {
		t.Error("missing digest header")
	}
	finIdx := strings.Index(out, "💰 <b>Finance &amp; Banking</b>")
	techIdx := strings.Index(out, "💻 <b>Technology</b>")
	govIdx := strings.Index(out, "🏛️ <b>Government &amp; Policy</b>")
	if finIdx < 0 || techIdx < 0 || govIdx < 0 {
		t.Fatalf("missing a category header:\n%s", out)
	}
	if !(finIdx < techIdx && techIdx < govIdx) {
		t.Error("category headers out of order")
	}
	for i, want := range []string{"1. ", "2. ", "3. ", "4. "} {
		if !strings.Contains(out, "\n\n"+want) {
			t.Errorf("item %d not numbered as %q", i+1, want)
		}
	}
	if !strings.Contains(out, "Reply <b>YES</b> to approve") {
		t.Error("missing approval footer")
	}
}

func TestRenderHTML_EscapesUserText(t *testing.T) {
	a := finArticle(`Banks & "fintechs" <b>merge</b>`, 60, time.Now().UTC())
	a.SourceName = "Money <Control>"
	a.Summary = "A & B tie up."

	out := RenderHTML([]*types.Article{a})

	if strings.Contains(out, "<b>merge</b>") {
		t.Error("title markup must be escaped")
	}
	if !strings.Contains(out, "Banks &amp; &#34;fintechs&#34; &lt;b&gt;merge&lt;/b&gt;") {
		t.Errorf("title not escaped:\n%s", out)
	}
	if !strings.Contains(out, "Money &lt;Control&gt;") {
		t.Error("source name not escaped")
	}
	if !strings.Contains(out, "A &amp; B tie up.") {
		t.Error("summary not escaped")
	}
}

func TestRenderHTML_ItemLines(t *testing.T) {
	a := finArticle("RBI mandates new KYC norms", 87, time.Now().UTC())
	a.SourceName = "RBI Press Releases"
	a.Summary = "Banks must re-verify dormant accounts."
	a.WhyItMatters = "Compliance deadline affects onboarding flows."
	a.CrossReferenceCount = 3
	a.WasTranslated = true
	a.URL = "https://rbi.org.in/press/123"

	out := RenderHTML([]*types.Article{a})

	for _, want := range []string{
		"✅ <b>RBI mandates new KYC norms</b> — 87/100",
		"RBI Press Releases · 3 sources confirm · translated",
		"💡 Compliance deadline affects onboarding flows.",
		`<a href="https://rbi.org.in/press/123">Read more</a>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHTML_UnknownStatusFallsBackToWarning(t *testing.T) {
	a := techArticle("Mystery story", 50, time.Now().UTC())
	a.ValidationStatus = ""

	out := RenderHTML([]*types.Article{a})
	if !strings.Contains(out, "⚠️ <b>Mystery story</b>") {
		t.Error("unknown validation status should render the warning emoji")
	}
}

func TestRenderHTML_Empty(t *testing.T) {
	out := RenderHTML(nil)
	if !strings.Contains(out, "No qualifying articles today.") {
		t.Errorf("empty digest message wrong:\n%s", out)
	}
	if strings.Contains(out, "Reply <b>YES</b>") {
		t.Error("empty digest must not carry the approval footer")
	}
}
