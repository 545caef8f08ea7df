package chat

import (
	"regexp"
	"strings"
)

var (
	fencedRe = regexp.MustCompile("```[\\s\\S]*?```")
	boldRe   = regexp.MustCompile(`(?s)\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*\n]+)\*`)
	codeRe   = regexp.MustCompile("`([^`]+)`")
	linkRe   = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)]+)\)`)
	entityRe = regexp.MustCompile(`&amp;(lt|gt|amp|quot);`)
)

// MarkdownToHTML converts the markdown subset LLMs actually emit into
// Telegram HTML. Fenced code blocks are dropped entirely; Telegram has
// no good rendering for them and they are never worth 4000 characters.
// Bold must convert before italic so ** pairs are consumed first.
func MarkdownToHTML(text string) string {
	text = fencedRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "<b>$1</b>")
	text = italicRe.ReplaceAllString(text, "<i>$1</i>")
	text = codeRe.ReplaceAllString(text, "<code>$1</code>")
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)

	// Escape bare ampersands without double-escaping entities the model
	// already wrote.
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = entityRe.ReplaceAllString(text, "&$1;")

	return strings.TrimSpace(text)
}
