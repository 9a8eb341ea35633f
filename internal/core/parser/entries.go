package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/markdave123-py/wordbook/internal/models"
)

// Tags lists the part-of-speech markers printed in the dictionary.
var Tags = []string{
	"v.", "vr.", "vt.", "vi.", "v.link.", "mod.", "aux.", "n.",
	"[c].", "[pl.]", "[Cpl.]", "[Csing.]", "[U].",
	"adj.", "adv.", "prep.", "pron.",
}

var (
	tagGroup  *regexp.Regexp
	tagSingle *regexp.Regexp
	phonetic  = regexp.MustCompile(`/[^/\n]*/`)
)

func init() {
	sorted := append([]string(nil), Tags...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	alt := `(?:` + strings.Join(quoted, "|") + `)`

	tagGroup = regexp.MustCompile(`(?:^|[\s/\]])(` + alt + `(?:\s*/\s*` + alt + `)*)`)
	tagSingle = regexp.MustCompile(`^` + alt + `$`)
}

// EntryParser reads raw "headword /phonetic/ pos. translation" lines.
// It remembers the last single-word headword so phrases and sentences can
// be anchored on preceding context only.
type EntryParser struct {
	bucket   string
	lastWord string
}

// NewEntryParser builds a parser for one bucket. An empty bucket is
// inferred from the first word headword.
func NewEntryParser(bucket string) *EntryParser {
	return &EntryParser{bucket: strings.ToLower(bucket)}
}

func (p *EntryParser) ParseText(text string) []models.Record {
	var out []models.Record
	for _, line := range strings.Split(text, "\n") {
		out = append(out, p.ParseLine(line)...)
	}
	return out
}

// ParseLine returns one record per part-of-speech tag and translation sense.
func (p *EntryParser) ParseLine(line string) []models.Record {
	line = strings.TrimSpace(stripPhonetics(line))
	if line == "" {
		return nil
	}

	type sense struct {
		tags        []string
		translation string
	}
	var (
		headword string
		senses   []sense
	)

	locs := tagGroup.FindAllStringSubmatchIndex(line, -1)
	if len(locs) > 0 {
		headword = line[:locs[0][2]]
		for i, loc := range locs {
			end := len(line)
			if i+1 < len(locs) {
				end = locs[i+1][2]
			}
			senses = append(senses, sense{
				tags:        splitTags(line[loc[2]:loc[3]]),
				translation: cleanTranslation(line[loc[3]:end]),
			})
		}
	} else {
		cut := strings.IndexFunc(line, isHan)
		if cut < 0 {
			cut = len(line)
		}
		headword = line[:cut]
		senses = []sense{{translation: cleanTranslation(line[cut:])}}
	}

	headword = strings.Trim(strings.TrimSpace(headword), ",，")
	if headword == "" {
		return nil
	}

	entryType := DetectEntryType(headword)
	var anchor *string
	if entryType == models.EntryWord {
		p.lastWord = headword
		if p.bucket == "" {
			p.bucket = initialLetter(headword)
		}
	} else {
		anchor = models.Optional(p.anchorFor(headword))
	}

	var out []models.Record
	for _, s := range senses {
		tags := s.tags
		if entryType != models.EntryWord || len(tags) == 0 {
			tags = []string{""}
		}
		for _, tag := range tags {
			for _, tr := range SplitSenses(s.translation) {
				out = append(out, models.Record{
					Headword:     headword,
					Translation:  tr,
					PartOfSpeech: models.Optional(tag),
					EntryType:    entryType,
					AnchorHint:   anchor,
				})
			}
		}
	}
	return out
}

// DetectEntryType calls a single token a word, a dotted multi-word
// headword a sentence and any other multi-word headword a phrase.
func DetectEntryType(headword string) models.EntryType {
	words := strings.Fields(headword)
	switch {
	case len(words) <= 1:
		return models.EntryWord
	case strings.ContainsAny(headword, ".?!"):
		return models.EntrySentence
	default:
		return models.EntryPhrase
	}
}

// anchorFor picks the most specific indexing word for a phrase or sentence:
// the last word headword if the phrase uses it, else a word starting with
// the bucket letter, else the last word headword.
func (p *EntryParser) anchorFor(headword string) string {
	words := strings.Fields(headword)
	last := strings.ToLower(p.lastWord)

	if last != "" {
		for _, w := range words {
			if strings.HasPrefix(strings.ToLower(trimWord(w)), last) {
				return p.lastWord
			}
		}
	}
	if p.bucket != "" {
		for _, w := range words {
			if w = trimWord(w); strings.HasPrefix(strings.ToLower(w), p.bucket) {
				return w
			}
		}
	}
	return p.lastWord
}

// initialLetter returns the lower-cased first letter of s, skipping quotes
// and other leading punctuation, or "" when s has no letter.
func initialLetter(s string) string {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return string(unicode.ToLower(r))
		}
	}
	return ""
}

func stripPhonetics(line string) string {
	return phonetic.ReplaceAllStringFunc(line, func(m string) string {
		if tagSingle.MatchString(strings.TrimSpace(m[1 : len(m)-1])) {
			return m
		}
		return " "
	})
}

func splitTags(group string) []string {
	var tags []string
	for _, t := range strings.Split(group, "/") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func cleanTranslation(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",，")
}

func trimWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && r != '-' && r != '\'' })
}

func isHan(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}
