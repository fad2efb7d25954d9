// Package analyze detects difficult vocabulary in text and validates
// that generated output stays within the easy-word lexicon.
package analyze

import (
	"strings"
	"unicode"

	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/lexicon"
)

// Analyzer runs difficulty checks against an easy-word lexicon.
type Analyzer struct {
	lex *lexicon.Lexicon
}

// New creates an analyzer over the given lexicon.
func New(lex *lexicon.Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

// Tokenize splits text into word tokens: runs of letters or digits,
// keeping internal apostrophes and hyphens ("dog's", "well-known").
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	runes := []rune(text)

	isWordRune := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			cur.WriteRune(r)
		case (r == '\'' || r == '’' || r == '-') && cur.Len() > 0 &&
			i+1 < len(runes) && isWordRune(runes[i+1]):
			// Internal apostrophe or hyphen only: both neighbors are word runes.
			cur.WriteRune(r)
		default:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// properNounShaped reports whether the token looks like a proper noun:
// an all-caps acronym (NASA) or capitalized hyphenated parts
// (Jean-Pierre). Such tokens are never reported as difficult.
func properNounShaped(token string) bool {
	letters := 0
	uppers := 0
	for _, r := range token {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters >= 2 && letters == uppers {
		return true
	}
	if parts := strings.Split(token, "-"); len(parts) >= 2 {
		capitalized := 0
		for _, p := range parts {
			r := []rune(p)
			if len(r) > 0 && unicode.IsUpper(r[0]) {
				capitalized++
			}
		}
		if capitalized == len(parts) {
			return true
		}
	}
	return false
}

// numeric reports whether the token contains any digit.
func numeric(token string) bool {
	for _, r := range token {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// skippable reports whether a token is excluded from difficulty
// checks: too short, numeric, or proper-noun shaped.
func skippable(token string) bool {
	return len([]rune(token)) <= 2 || numeric(token) || properNounShaped(token)
}

// FindDifficultWords returns the normalized difficult tokens of text in
// first-seen order, deduplicated. A token is difficult unless the
// lexicon knows it directly or as a morphological variant.
func (a *Analyzer) FindDifficultWords(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		if skippable(tok) {
			continue
		}
		norm := strings.ToLower(tok)
		if _, dup := seen[norm]; dup {
			continue
		}
		if a.lex.ContainsVariant(norm) {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// ExtractCandidates returns up to maxCount difficult words of text as
// their first-seen surface forms, excluding proper nouns.
func (a *Analyzer) ExtractCandidates(text string, maxCount int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		if len(out) >= maxCount {
			break
		}
		if skippable(tok) {
			continue
		}
		norm := strings.ToLower(tok)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		if a.lex.ContainsVariant(norm) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// RewriteDifficult rebuilds text, passing every difficult token through
// replace and keeping everything else byte for byte. Used by the final
// easy-language enforcement to substitute hard words in place.
func (a *Analyzer) RewriteDifficult(text string, replace func(token string) string) string {
	var out strings.Builder
	var cur strings.Builder
	runes := []rune(text)

	isWordRune := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		cur.Reset()
		if skippable(tok) || a.lex.ContainsVariant(tok) {
			out.WriteString(tok)
			return
		}
		out.WriteString(replace(tok))
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			cur.WriteRune(r)
		case (r == '\'' || r == '’' || r == '-') && cur.Len() > 0 &&
			i+1 < len(runes) && isWordRune(runes[i+1]):
			cur.WriteRune(r)
		default:
			flush()
			out.WriteRune(r)
		}
	}
	flush()
	return out.String()
}

// Validation is the outcome of a simplicity check on generated output.
type Validation struct {
	Valid          bool
	OffendingWords []string
}

// IsSimpleEnough re-runs difficulty detection over everything the user
// will read: the explanation plus every definition and example. A
// non-empty offending set means the output violates the simplicity
// contract and must be repaired before delivery.
func (a *Analyzer) IsSimpleEnough(result domain.ExplainResult) Validation {
	var b strings.Builder
	b.WriteString(result.Explanation)
	for _, e := range result.Vocabulary {
		b.WriteString("\n")
		b.WriteString(e.Definition)
		b.WriteString("\n")
		b.WriteString(e.Example)
	}
	offending := a.FindDifficultWords(b.String())
	return Validation{Valid: len(offending) == 0, OffendingWords: offending}
}
