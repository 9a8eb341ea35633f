// Package parser reads and writes the pipe-delimited record format
//
//	|headword|translation|pos-or-NULL|entry_type|anchor-or-NULL|
//
// and turns raw dictionary lines into records without a language model.
package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/markdave123-py/wordbook/internal/models"
)

const (
	Delimiter = "|"
	Null      = "NULL"
	minFields = 5
)

// Parser turns normalizer output into records. Malformed lines are
// reported and skipped; they never fail the chunk.
type Parser struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{log: log}
}

// Parse returns the records of text in line order. A translation holding
// several senses separated by a semicolon yields one record per sense.
func (p *Parser) Parse(text string) []models.Record {
	var out []models.Record

	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, Delimiter) {
			continue
		}

		fields := strings.Split(strings.Trim(line, Delimiter), Delimiter)
		if len(fields) < minFields {
			p.log.Warn("record line has too few fields, skipped",
				slog.Int("line", n+1), slog.Int("fields", len(fields)), slog.String("text", line))
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		entryType := models.EntryWord
		if v, err := strconv.Atoi(fields[3]); err != nil {
			p.log.Warn("entry type is not an integer, using word",
				slog.Int("line", n+1), slog.String("value", fields[3]))
		} else {
			entryType = models.EntryType(v)
		}

		base := models.Record{
			Headword:     fields[0],
			PartOfSpeech: nullable(fields[2]),
			EntryType:    entryType,
			AnchorHint:   nullable(fields[4]),
		}
		for _, sense := range SplitSenses(fields[1]) {
			r := base
			r.Translation = sense
			out = append(out, r)
		}
	}
	return out
}

// SplitSenses splits a translation on ASCII and full-width semicolons.
// A translation with no sense text is kept as a single empty sense.
func SplitSenses(translation string) []string {
	parts := strings.FieldsFunc(translation, func(r rune) bool { return r == ';' || r == '；' })
	senses := parts[:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			senses = append(senses, s)
		}
	}
	if len(senses) == 0 {
		return []string{strings.TrimSpace(translation)}
	}
	return senses
}

// FormatRecord renders r as one merged-artifact line, without a terminator.
func FormatRecord(r models.Record) string {
	var b strings.Builder
	b.WriteString(Delimiter)
	b.WriteString(r.Headword)
	b.WriteString(Delimiter)
	b.WriteString(r.Translation)
	b.WriteString(Delimiter)
	b.WriteString(orNull(r.PartOfSpeech))
	b.WriteString(Delimiter)
	b.WriteString(strconv.Itoa(int(r.EntryType)))
	b.WriteString(Delimiter)
	b.WriteString(orNull(r.AnchorHint))
	b.WriteString(Delimiter)
	return b.String()
}

// FormatRecords renders one line per record, each ending in a newline.
func FormatRecords(records []models.Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(FormatRecord(r))
		b.WriteByte('\n')
	}
	return b.String()
}

// Dedupe drops records whose lower-cased headword and translation were
// already seen. Records missing either field are always kept.
func Dedupe(records []models.Record) ([]models.Record, int) {
	seen := make(map[[2]string]struct{}, len(records))
	out := make([]models.Record, 0, len(records))
	removed := 0

	for _, r := range records {
		hw := strings.ToLower(strings.TrimSpace(r.Headword))
		tr := strings.TrimSpace(r.Translation)
		if hw == "" || tr == "" {
			out = append(out, r)
			continue
		}
		key := [2]string{hw, tr}
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, removed
}

func nullable(s string) *string {
	if s == Null {
		return nil
	}
	return &s
}

func orNull(s *string) string {
	if s == nil {
		return Null
	}
	return *s
}
