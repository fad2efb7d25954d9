package analyze

import (
	"reflect"
	"testing"

	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/lexicon"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return New(lexicon.Default())
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "the quick fox", []string{"the", "quick", "fox"}},
		{"punctuation", "wait, stop! now?", []string{"wait", "stop", "now"}},
		{"apostrophe kept", "the dog's bone", []string{"the", "dog's", "bone"}},
		{"hyphen kept", "a well-known fact", []string{"a", "well-known", "fact"}},
		{"trailing apostrophe dropped", "dogs' bones", []string{"dogs", "bones"}},
		{"empty", "", nil},
		{"digits", "room 42 is open", []string{"room", "42", "is", "open"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFindDifficultWords(t *testing.T) {
	a := newAnalyzer(t)

	got := a.FindDifficultWords("The ubiquitous phenomenon of serendipity is ubiquitous")
	want := []string{"ubiquitous", "phenomenon", "serendipity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindDifficultWords = %v, want %v", got, want)
	}

	// All simple: nothing reported.
	if got := a.FindDifficultWords("the dog walked home quickly"); len(got) != 0 {
		t.Errorf("expected no difficult words, got %v", got)
	}
}

func TestFindDifficultWordsExclusions(t *testing.T) {
	a := newAnalyzer(t)

	tests := []struct {
		name string
		text string
	}{
		{"short tokens", "an ox is by it"},
		{"numeric tokens", "42 100 3rd"},
		{"acronyms", "NASA HTTP URL"},
		{"capitalized hyphenated", "Jean-Pierre Saint-Denis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.FindDifficultWords(tt.text); len(got) != 0 {
				t.Errorf("FindDifficultWords(%q) = %v, want none", tt.text, got)
			}
		})
	}
}

func TestExtractCandidates(t *testing.T) {
	a := newAnalyzer(t)

	text := "The Ubiquitous phenomenon of serendipity perplexed onlookers"
	got := a.ExtractCandidates(text, 3)
	// Surface forms preserved, capped at 3.
	want := []string{"Ubiquitous", "phenomenon", "serendipity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCandidates = %v, want %v", got, want)
	}

	// Proper nouns excluded even when unknown.
	got = a.ExtractCandidates("NASA made the colossal rocket", 10)
	want = []string{"colossal", "rocket"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCandidates = %v, want %v", got, want)
	}
}

func TestIsSimpleEnough(t *testing.T) {
	a := newAnalyzer(t)

	ok := domain.ExplainResult{
		Explanation: "This text is about a dog that walked home.",
		Vocabulary: []domain.VocabularyEntry{
			{Word: "ubiquitous", Definition: "seen in many places", Example: "Phones are seen in every place now."},
		},
	}
	if v := a.IsSimpleEnough(ok); !v.Valid {
		t.Errorf("expected valid, offending = %v", v.OffendingWords)
	}

	bad := domain.ExplainResult{
		Explanation: "A perspicacious reader will notice.",
	}
	v := a.IsSimpleEnough(bad)
	if v.Valid {
		t.Fatal("expected invalid result")
	}
	if !reflect.DeepEqual(v.OffendingWords, []string{"perspicacious", "notice"}) {
		t.Errorf("OffendingWords = %v", v.OffendingWords)
	}
}
