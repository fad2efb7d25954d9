package domain

import (
	"errors"
	"testing"
)

func TestParsePartOfSpeech(t *testing.T) {
	tests := []struct {
		input string
		want  PartOfSpeech
	}{
		{"noun", POSNoun},
		{"Verb", POSVerb},
		{" ADJECTIVE ", POSAdjective},
		{"interjection", POSOther},
		{"", POSOther},
	}
	for _, tt := range tests {
		if got := ParsePartOfSpeech(tt.input); got != tt.want {
			t.Errorf("ParsePartOfSpeech(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"b2", LevelB2},
		{"C1", LevelC1},
		{"A1", LevelUnknown},
		{"", LevelUnknown},
		{"native", LevelUnknown},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLevelTeachable(t *testing.T) {
	teachable := []Level{LevelB2, LevelC1, LevelC2}
	for _, l := range teachable {
		if !l.Teachable() {
			t.Errorf("%s.Teachable() = false, want true", l)
		}
	}
	for _, l := range []Level{LevelA2, LevelB1, LevelUnknown} {
		if l.Teachable() {
			t.Errorf("%s.Teachable() = true, want false", l)
		}
	}
}

func TestVocabularyEntryKey(t *testing.T) {
	tests := []struct {
		name  string
		entry VocabularyEntry
		want  string
	}{
		{"word wins", VocabularyEntry{Word: "Running", Lemma: "run"}, "running"},
		{"lemma fallback", VocabularyEntry{Lemma: "Run"}, "run"},
		{"whitespace word falls back", VocabularyEntry{Word: "  ", Lemma: "run"}, "run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectionTooLongError(t *testing.T) {
	err := &SelectionTooLongError{Actual: 5001, Max: 5000}
	want := "selection is 5001 characters, the maximum is 5000"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRetriable(t *testing.T) {
	retry := &CallError{Class: ClassProxyRetryable, Status: 429, Retriable: true}
	if !Retriable(retry) {
		t.Error("429 CallError should be retriable")
	}
	if !Retriable(errors.Join(errors.New("wrapped"), retry)) {
		t.Error("wrapped retriable CallError should still be retriable")
	}
	hard := &CallError{Class: ClassProxyError, Status: 400}
	if Retriable(hard) {
		t.Error("400 CallError should not be retriable")
	}
	if Retriable(errors.New("plain")) {
		t.Error("plain error should not be retriable")
	}
}
