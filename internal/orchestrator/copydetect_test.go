package orchestrator

import (
	"strings"
	"testing"
)

func copyTestOrchestrator() *Orchestrator {
	o := &Orchestrator{cfg: DefaultConfig().normalized()}
	return o
}

func TestNormalizeForCopy(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "hello world"},
		{"  spaced \t out \n text ", "spaced out text"},
		{"It's a test--really.", "it s a test really"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeForCopy(tt.in); got != tt.want {
			t.Errorf("normalizeForCopy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsCopyNormalizedEquality(t *testing.T) {
	o := copyTestOrchestrator()
	src := "The quick brown fox jumps over the lazy dog."
	if !o.isCopy("the QUICK brown fox, jumps over the lazy dog", src) {
		t.Error("punctuation and case differences must not hide a verbatim copy")
	}
}

func TestIsCopyLongSubstring(t *testing.T) {
	o := copyTestOrchestrator()
	core := strings.Repeat("the committee approved the annual budget proposal ", 3)
	src := "Intro sentence here. " + core + " Closing remark."
	if !o.isCopy(core, src) {
		t.Error("a long verbatim substring of the source is a copy")
	}
	if o.isCopy("the committee", src) {
		t.Error("short substrings are legitimate word reuse, not copies")
	}
}

func TestIsCopyNgramOverlap(t *testing.T) {
	o := copyTestOrchestrator()
	src := "the ancient castle stood on the hill above the river and the town " +
		"while merchants crossed the old stone bridge every single morning carrying goods"

	// Same word sequences lightly reordered: high 4-gram overlap.
	near := "the ancient castle stood on the hill above the river and the town " +
		"and merchants crossed the old stone bridge every single morning carrying wares"
	if !o.isCopy(near, src) {
		t.Error("near-verbatim text with high 4-gram overlap is a copy")
	}

	paraphrase := "an old fort sat on high ground near the water and people from " +
		"the market walked over a rock crossing each day with their things to sell"
	if o.isCopy(paraphrase, src) {
		t.Error("a genuine paraphrase must not be flagged")
	}
}

func TestIsCopyShortTextsSkipNgramCheck(t *testing.T) {
	o := copyTestOrchestrator()
	// Under the token minimum the n-gram signal is unreliable; only the
	// equality and substring checks apply.
	if o.isCopy("the cat sat on the mat today", "the cat sat on the mat again") {
		t.Error("short non-identical texts must not be flagged by overlap")
	}
}

func TestIsCopyEmptyInputs(t *testing.T) {
	o := copyTestOrchestrator()
	if o.isCopy("", "some source text") || o.isCopy("some explanation", "") {
		t.Error("empty sides are never copies")
	}
}
