package digest

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit keeps each part under Telegram's message size with
// headroom for entity markup.
const DefaultChunkLimit = 3800

// Chunk splits text into parts of at most limit bytes, cutting only after
// paragraph separators ("\n\n"). A single paragraph longer than the limit
// is hard-split at a rune boundary. Parts are consecutive substrings of
// text, so concatenating them in order reconstructs it exactly.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	rest := text
	for len(rest) > limit {
		cut := strings.LastIndex(rest[:limit], "\n\n")
		if cut >= 0 {
			// The separator stays with the leading part.
			cut += 2
		} else {
			cut = limit
			for cut > 0 && !utf8.RuneStart(rest[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, rest[:cut])
		rest = rest[cut:]
	}
	parts = append(parts, rest)
	return parts
}
