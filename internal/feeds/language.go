package feeds

import "unicode"

// indicScripts maps a language tag to its Unicode script range. Sources in
// the default catalog publish in English or one of these.
var indicScripts = []struct {
	lang string
	lo   rune
	hi   rune
}{
	{"hi", 0x0900, 0x097F}, // Devanagari
	{"bn", 0x0980, 0x09FF}, // Bengali
	{"gu", 0x0A80, 0x0AFF}, // Gujarati
	{"ta", 0x0B80, 0x0BFF}, // Tamil
	{"te", 0x0C00, 0x0C7F}, // Telugu
	{"kn", 0x0C80, 0x0CFF}, // Kannada
	{"ml", 0x0D00, 0x0D7F}, // Malayalam
}

// DetectLanguage guesses the text language from its dominant script.
// It returns "en" unless an Indic script outweighs Latin letters.
func DetectLanguage(text string) string {
	var latin int
	counts := make([]int, len(indicScripts))

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if r < 0x0250 {
			latin++
			continue
		}
		for i, s := range indicScripts {
			if r >= s.lo && r <= s.hi {
				counts[i]++
				break
			}
		}
	}

	best := -1
	for i, n := range counts {
		if n > 0 && (best < 0 || n > counts[best]) {
			best = i
		}
	}
	if best < 0 || counts[best] <= latin {
		return "en"
	}
	return indicScripts[best].lang
}
