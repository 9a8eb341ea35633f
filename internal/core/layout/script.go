package layout

import "unicode"

type scriptClass int

const (
	classNone scriptClass = iota
	classTarget
	classSource
)

// isTarget reports whether r is in the CJK Unified Ideographs block.
func isTarget(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}

// isSource reports whether r is a letter outside the target block.
func isSource(r rune) bool {
	return unicode.IsLetter(r) && !isTarget(r)
}

func classify(r rune) scriptClass {
	switch {
	case isTarget(r):
		return classTarget
	case isSource(r):
		return classSource
	default:
		return classNone
	}
}

func isOpenBracket(r rune) bool  { return r == '(' || r == '（' }
func isCloseBracket(r rune) bool { return r == ')' || r == '）' }
