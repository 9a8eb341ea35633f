package config

import (
	"sort"
	"strings"
)

// SelectBuckets filters available bucket names by a selection such as
// "all", "a", "a-c" or "a,c-e,x". Ranges work on single letters and may be
// written backwards. The result is sorted and contains only available names.
func SelectBuckets(selection string, available []string) []string {
	selection = strings.TrimSpace(selection)
	if selection == "" || strings.EqualFold(selection, "all") {
		out := append([]string(nil), available...)
		sort.Strings(out)
		return out
	}

	have := make(map[string]bool, len(available))
	for _, b := range available {
		have[b] = true
	}

	picked := map[string]bool{}
	for _, part := range strings.Split(selection, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if from, to, ok := strings.Cut(part, "-"); ok && len(from) == 1 && len(to) == 1 {
			lo, hi := from[0], to[0]
			if lo > hi {
				lo, hi = hi, lo
			}
			if !isLetter(lo) || !isLetter(hi) {
				continue
			}
			for c := lo; c <= hi; c++ {
				if have[string(c)] {
					picked[string(c)] = true
				}
			}
			continue
		}
		if have[part] {
			picked[part] = true
		}
	}

	out := make([]string, 0, len(picked))
	for b := range picked {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}
