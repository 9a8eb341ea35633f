package layout

import (
	"regexp"
	"strings"
)

// WrapGlyph marks a wrapped line in the scanned dictionary layout.
const WrapGlyph = "→"

// codePattern matches an annotation code: a two-digit numeral followed by a slash.
var codePattern = regexp.MustCompile(`(?s)\d{2}.*/`)

// RemoveWrapGlyphs deletes every wrap glyph and nothing else.
func RemoveWrapGlyphs(text string) string {
	return strings.ReplaceAll(text, WrapGlyph, "")
}

// StripAnnotations drops bracketed annotations that look like phonetic
// notation or cross-reference codes, and keeps every other bracket verbatim.
// Brackets do not nest and a stray closing bracket is ordinary text. An
// unterminated bracket at the end of the input is kept as it is.
// It returns the cleaned text and the number of brackets discarded.
func StripAnnotations(text string) (string, int) {
	var (
		out     strings.Builder
		bracket strings.Builder
		open    bool
		dropped int
	)
	out.Grow(len(text))

	for _, r := range text {
		switch {
		case !open && isOpenBracket(r):
			open = true
			bracket.Reset()
			bracket.WriteRune(r)
		case open && isCloseBracket(r):
			bracket.WriteRune(r)
			open = false
			if isNoise(bracket.String()) {
				dropped++
				continue
			}
			out.WriteString(bracket.String())
		case open:
			bracket.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}
	if open {
		out.WriteString(bracket.String())
	}
	return out.String(), dropped
}

// isNoise classifies the whole bracket, delimiters included.
func isNoise(bracket string) bool {
	if strings.Count(bracket, "/") >= 2 && containsTarget(bracket) {
		return true
	}
	return codePattern.MatchString(bracket)
}

func containsTarget(s string) bool {
	for _, r := range s {
		if isTarget(r) {
			return true
		}
	}
	return false
}
