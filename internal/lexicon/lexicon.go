// Package lexicon provides the easy-word lexicon: the set of normalized
// word forms considered simple enough for learner-facing text. The set
// itself is opaque data; callers only ask membership questions.
package lexicon

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed words.txt
var defaultWords string

// Lexicon is an immutable set of simple normalized word forms.
type Lexicon struct {
	words map[string]struct{}
}

// suffixes tried during morphological matching, longest first so that
// "es" is tried before "s" and "est" before "er".
var suffixes = []string{"ing", "est", "ed", "es", "er", "ly", "s"}

// Default returns the lexicon built from the embedded word list.
func Default() *Lexicon {
	lex, err := read(strings.NewReader(defaultWords))
	if err != nil {
		// The embedded list is compiled in; a read failure here is a bug.
		panic(fmt.Sprintf("lexicon: embedded word list: %v", err))
	}
	return lex
}

// FromFile loads a lexicon from a file with one word per line.
// Blank lines and lines starting with '#' are skipped.
func FromFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	lex, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return lex, nil
}

func read(r io.Reader) (*Lexicon, error) {
	words := make(map[string]struct{}, 1024)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Lexicon{words: words}, nil
}

// Len returns the number of base forms in the lexicon.
func (l *Lexicon) Len() int { return len(l.words) }

// Contains reports whether the normalized word is in the lexicon verbatim.
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.words[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// ContainsVariant reports whether the token is a known word or a
// morphological variant of one: a possessive form, or a form that
// strips a common suffix down to a known stem. Stripping "ing", "ed"
// and "es" also tries re-inserting a trailing "e" ("making" -> "make").
func (l *Lexicon) ContainsVariant(token string) bool {
	w := strings.ToLower(strings.TrimSpace(token))
	if w == "" {
		return false
	}
	if _, ok := l.words[w]; ok {
		return true
	}

	// Possessives: dog's, dogs'.
	for _, suf := range []string{"'s", "’s", "'", "’"} {
		if base, ok := strings.CutSuffix(w, suf); ok && base != "" {
			if _, found := l.words[base]; found {
				return true
			}
		}
	}

	for _, suf := range suffixes {
		stem, ok := strings.CutSuffix(w, suf)
		if !ok || len(stem) < 2 {
			continue
		}
		if _, found := l.words[stem]; found {
			return true
		}
		// e-insertion: "making" -> "make", "used" -> "use", "places" -> "place".
		if suf == "ing" || suf == "ed" || suf == "es" {
			if _, found := l.words[stem+"e"]; found {
				return true
			}
		}
	}
	return false
}
