package layout

import (
	"strings"
	"unicode"
)

// posPrefixes continue the current entry's part-of-speech tag, so a switch
// into Latin text that starts with one of them is not a new entry.
var posPrefixes = []string{
	"v.", "vr.", "vt.", "vi.", "v.link.", "mod.", "aux.", "n.",
	"[c].", "[pl.]", "[Cpl.]", "[Csing.]", "[U].",
	"adj.", "adv.", "prep.", "pron.",
}

const maxPrefixRunes = 8

// InsertLineBreaks puts each dictionary entry on its own line by breaking
// wherever target-script text is followed by source-script text.
//
// Two cursors walk the input: one over the original runes, which are
// emitted, and one over a whitespace-free copy, which is only consulted for
// prefix lookahead. Runes that are neither script inherit the previous
// classification. A target rune followed, across whitespace, by an opening
// bracket that begins with source text gets the break after it and the
// whitespace dropped. Otherwise a target to source switch breaks before the
// source rune unless the compact text ahead starts with a part-of-speech tag.
// It returns the new text and the number of breaks inserted.
func InsertLineBreaks(text string) (string, int) {
	runes := []rune(text)
	compact := make([]rune, 0, len(runes))
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			compact = append(compact, r)
		}
	}

	var (
		out         strings.Builder
		prev        = classNone
		breaks      int
		k           int // compact cursor, always at the rune being emitted
		afterTarget = -1
	)
	out.Grow(len(text) + len(text)/16)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if unicode.IsSpace(r) {
			out.WriteRune(r)
			continue
		}

		cls := classify(r)
		if cls == classSource && prev == classTarget && !continuesTag(compact, k, afterTarget) {
			out.WriteByte('\n')
			breaks++
		}
		out.WriteRune(r)
		k++
		if cls != classNone {
			prev = cls
		}
		if cls != classTarget {
			continue
		}

		afterTarget = k
		if next, ok := sourceBracketAhead(runes, i+1); ok {
			out.WriteByte('\n')
			breaks++
			i = next - 1
			prev = classSource
		}
	}
	return out.String(), breaks
}

// continuesTag checks the compact text at the current rune and, to catch
// tags opening with punctuation such as "[c].", right after the last target rune.
func continuesTag(compact []rune, at, afterTarget int) bool {
	if hasPOSPrefix(compact, at) {
		return true
	}
	return afterTarget >= 0 && afterTarget < at && hasPOSPrefix(compact, afterTarget)
}

func hasPOSPrefix(compact []rune, at int) bool {
	end := min(at+maxPrefixRunes, len(compact))
	ahead := string(compact[at:end])
	for _, p := range posPrefixes {
		if strings.HasPrefix(ahead, p) {
			return true
		}
	}
	return false
}

// sourceBracketAhead skips whitespace from i and reports the index of an
// opening bracket whose first non-space content rune is source script.
func sourceBracketAhead(runes []rune, i int) (int, bool) {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	if i >= len(runes) || !isOpenBracket(runes[i]) {
		return 0, false
	}
	for j := i + 1; j < len(runes); j++ {
		if unicode.IsSpace(runes[j]) {
			continue
		}
		return i, isSource(runes[j])
	}
	return 0, false
}

// CollapseTargetSpaces deletes whitespace runs sitting between two target runes.
func CollapseTargetSpaces(text string) string {
	runes := []rune(text)
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			out.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if !(i > 0 && j < len(runes) && isTarget(runes[i-1]) && isTarget(runes[j])) {
			out.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return out.String()
}
