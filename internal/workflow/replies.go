package workflow

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/user/newshound/internal/types"
)

const helpReply = `<b>Commands</b>
YES / NO / SKIP — decide on the pending digest
details N — full story for item N
feedback N your note — comment on item N
/refresh — fetch and build a new digest
/status — last run and pending digest
/history — recent digests
/top — best stories from the last 24h
/search keyword — find stored articles
/clear — drop the pending digest and feedback
/help — this message

Anything else is treated as a question for the assistant.`

const startReply = `Hello! I collect fintech and policy news for you twice a day.
I will send a digest for approval when the next run finishes.
Use /refresh to start one now, or /help for the command list.`

func statusReply(run *types.AgentRun, pending *types.Digest) string {
	if run == nil {
		return "No runs yet. Use /refresh to start one."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Last run</b> %s\n", run.Status)
	fmt.Fprintf(&sb, "Started: %s\n", run.StartedAt.Format("02 Jan 15:04"))
	if run.FinishedAt != nil {
		fmt.Fprintf(&sb, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	c := run.Counters
	fmt.Fprintf(&sb, "Fetched %d · new %d · verified %d · actionable %d · translated %d",
		c.Fetched, c.Fetched-c.Deduped, c.Verified, c.Actionable, c.Translated)
	if run.ErrorMessage != "" {
		fmt.Fprintf(&sb, "\nError: %s", html.EscapeString(run.ErrorMessage))
	}

	if pending != nil {
		fmt.Fprintf(&sb, "\n\nA digest with %d items is awaiting your decision.", len(pending.Items))
	} else {
		sb.WriteString("\n\nNo digest pending.")
	}
	return sb.String()
}

func historyReply(digests []*types.Digest) string {
	if len(digests) == 0 {
		return "No digests yet."
	}
	var sb strings.Builder
	sb.WriteString("<b>Recent digests</b>")
	for _, d := range digests {
		fmt.Fprintf(&sb, "\n%s — %s (%d items)",
			d.CreatedAt.Format("02 Jan 15:04"), d.Status, len(d.Items))
	}
	return sb.String()
}

func topReply(articles []*types.Article) string {
	if len(articles) == 0 {
		return "No stored articles in the last 24 hours."
	}
	var sb strings.Builder
	sb.WriteString("<b>Top stories, last 24h</b>")
	for i, a := range articles {
		fmt.Fprintf(&sb, "\n%d. <a href=\"%s\">%s</a> — %d/100 (%s)",
			i+1, html.EscapeString(a.URL), html.EscapeString(a.Title),
			a.CredibilityScore, html.EscapeString(a.SourceName))
	}
	return sb.String()
}

func searchReply(query string, articles []*types.Article) string {
	if len(articles) == 0 {
		return fmt.Sprintf("Nothing found for <i>%s</i>.", html.EscapeString(query))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Results for</b> <i>%s</i>", html.EscapeString(query))
	for i, a := range articles {
		fmt.Fprintf(&sb, "\n%d. <a href=\"%s\">%s</a> (%s, %s)",
			i+1, html.EscapeString(a.URL), html.EscapeString(a.Title),
			html.EscapeString(a.SourceName), a.FetchedAt.Format("02 Jan"))
	}
	return sb.String()
}

func detailsReply(idx int, a *types.Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%d. %s</b>\n", idx, html.EscapeString(a.Title))
	fmt.Fprintf(&sb, "%s · %s · %d/100", html.EscapeString(a.SourceName), a.ValidationStatus, a.CredibilityScore)
	if a.CrossReferenceCount > 0 {
		fmt.Fprintf(&sb, " · %d sources confirm", a.CrossReferenceCount)
	}
	if a.WasTranslated {
		sb.WriteString(" · translated")
	}
	if a.Summary != "" {
		sb.WriteString("\n\n")
		sb.WriteString(html.EscapeString(a.Summary))
	}
	if a.Content != "" && a.Content != a.Summary {
		sb.WriteString("\n\n")
		sb.WriteString(html.EscapeString(a.Content))
	}
	if a.WhyItMatters != "" {
		sb.WriteString("\n\n💡 ")
		sb.WriteString(html.EscapeString(a.WhyItMatters))
	}
	fmt.Fprintf(&sb, "\n\n<a href=\"%s\">Read more</a>", html.EscapeString(a.URL))
	return sb.String()
}

func outOfRangeReply(err *types.CommandOutOfRangeError) string {
	if err.Max == 0 {
		return "There is no digest awaiting a decision right now."
	}
	return fmt.Sprintf("Item %d is out of range; the pending digest has %d items.", err.Index, err.Max)
}
