package orchestrator

import (
	"strings"
	"unicode"
)

// Copy detection: an "explanation" that merely repeats the selection
// is rejected. Three signals, checked in order of cost: normalized
// equality, long substring containment, and 4-gram token overlap.

// normalizeForCopy lowercases, strips punctuation and collapses
// whitespace so superficial edits cannot hide a copy.
func normalizeForCopy(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// isCopy reports whether explanation is effectively a copy of source.
func (o *Orchestrator) isCopy(explanation, source string) bool {
	ne := normalizeForCopy(explanation)
	ns := normalizeForCopy(source)
	if ne == "" || ns == "" {
		return false
	}
	if ne == ns {
		return true
	}
	if len(ne) >= o.cfg.CopySubstringMin &&
		(strings.Contains(ns, ne) || strings.Contains(ne, ns)) {
		return true
	}

	et := strings.Fields(ne)
	st := strings.Fields(ns)
	if len(et) < o.cfg.CopyMinTokens || len(st) < o.cfg.CopyMinTokens {
		return false
	}
	return ngramOverlap(et, st, 4) >= o.cfg.CopyOverlapThreshold
}

// ngramOverlap returns the share of a's n-grams that also occur in b.
func ngramOverlap(a, b []string, n int) float64 {
	ag := ngramSet(a, n)
	if len(ag) == 0 {
		return 0
	}
	bg := ngramSet(b, n)
	shared := 0
	for g := range ag {
		if _, ok := bg[g]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ag))
}

func ngramSet(tokens []string, n int) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return set
}
