package digest

import (
	"fmt"
	"html"
	"strings"

	"github.com/user/newshound/internal/types"
)

// CategoryOrder fixes the presentation order of digest groups.
var CategoryOrder = []types.Category{
	types.CategoryFinance,
	types.CategoryTech,
	types.CategoryGovernment,
}

var categoryHeaders = map[types.Category]string{
	types.CategoryFinance:    "💰 <b>Finance &amp; Banking</b>",
	types.CategoryTech:       "💻 <b>Technology</b>",
	types.CategoryGovernment: "🏛️ <b>Government &amp; Policy</b>",
}

var statusEmoji = map[types.ValidationStatus]string{
	types.StatusVerified:    "✅",
	types.StatusUnverified:  "⚠️",
	types.StatusConflicting: "❌",
}

const footer = `Reply <b>YES</b> to approve, <b>NO</b> or <b>SKIP</b> to pass.
Use <b>details N</b> for a full story and <b>feedback N your note</b> to comment.`

// RenderHTML renders the ranked articles as Telegram HTML. Items are
// numbered 1-based in slice order, which is the digest item order, so the
// numbers shown are the ones details/feedback commands accept. Paragraphs
// are separated by blank lines; the chunker cuts only there.
func RenderHTML(articles []*types.Article) string {
	var sb strings.Builder
	sb.WriteString("📰 <b>News Digest</b>")

	idx := 0
	var current types.Category
	for _, a := range articles {
		if a.Category != current || idx == 0 {
			current = a.Category
			if header, ok := categoryHeaders[current]; ok {
				sb.WriteString("\n\n" + header)
			}
		}
		idx++
		sb.WriteString("\n\n")
		sb.WriteString(renderItem(idx, a))
	}

	if idx == 0 {
		sb.WriteString("\n\nNo qualifying articles today.")
		return sb.String()
	}

	sb.WriteString("\n\n")
	sb.WriteString(footer)
	return sb.String()
}

func renderItem(idx int, a *types.Article) string {
	var sb strings.Builder

	emoji := statusEmoji[a.ValidationStatus]
	if emoji == "" {
		emoji = "⚠️"
	}
	fmt.Fprintf(&sb, "%d. %s <b>%s</b> — %d/100", idx, emoji, html.EscapeString(a.Title), a.CredibilityScore)

	sb.WriteString("\n")
	sb.WriteString(html.EscapeString(a.SourceName))
	if a.CrossReferenceCount > 0 {
		fmt.Fprintf(&sb, " · %d sources confirm", a.CrossReferenceCount)
	}
	if a.WasTranslated {
		sb.WriteString(" · translated")
	}

	if a.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(a.Summary))
	}
	if a.WhyItMatters != "" {
		sb.WriteString("\n💡 ")
		sb.WriteString(html.EscapeString(a.WhyItMatters))
	}
	fmt.Fprintf(&sb, "\n<a href=\"%s\">Read more</a>", html.EscapeString(a.URL))

	return sb.String()
}
