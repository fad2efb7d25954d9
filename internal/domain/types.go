// Package domain holds the core types of the reading-aid pipeline.
// Domain types are pure: no HTTP, no storage, no provider dependency.
package domain

import (
	"encoding/json"
	"strings"
)

// ExplanationMode controls how verbose the generated explanation is.
type ExplanationMode string

const (
	ModeSimple   ExplanationMode = "simple"
	ModeBalanced ExplanationMode = "balanced"
	ModeDetailed ExplanationMode = "detailed"
)

// ParseExplanationMode normalizes a raw mode string, defaulting to balanced.
func ParseExplanationMode(s string) ExplanationMode {
	switch ExplanationMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSimple:
		return ModeSimple
	case ModeDetailed:
		return ModeDetailed
	default:
		return ModeBalanced
	}
}

// PartOfSpeech classifies a vocabulary entry.
type PartOfSpeech string

const (
	POSNoun        PartOfSpeech = "noun"
	POSVerb        PartOfSpeech = "verb"
	POSAdjective   PartOfSpeech = "adjective"
	POSAdverb      PartOfSpeech = "adverb"
	POSPreposition PartOfSpeech = "preposition"
	POSPronoun     PartOfSpeech = "pronoun"
	POSDeterminer  PartOfSpeech = "determiner"
	POSConjunction PartOfSpeech = "conjunction"
	POSOther       PartOfSpeech = "other"
)

// ParsePartOfSpeech maps a raw string to a known part of speech.
// Unknown or empty values map to POSOther.
func ParsePartOfSpeech(s string) PartOfSpeech {
	switch PartOfSpeech(strings.ToLower(strings.TrimSpace(s))) {
	case POSNoun, POSVerb, POSAdjective, POSAdverb, POSPreposition,
		POSPronoun, POSDeterminer, POSConjunction:
		return PartOfSpeech(strings.ToLower(strings.TrimSpace(s)))
	default:
		return POSOther
	}
}

// Level is a CEFR-style difficulty band.
type Level string

const (
	LevelA2      Level = "A2"
	LevelB1      Level = "B1"
	LevelB2      Level = "B2"
	LevelC1      Level = "C1"
	LevelC2      Level = "C2"
	LevelUnknown Level = "unknown"
)

// ParseLevel maps a raw string to a known level, defaulting to unknown.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return Level(strings.ToUpper(strings.TrimSpace(s)))
	default:
		return LevelUnknown
	}
}

// Teachable reports whether the level is worth surfacing to the user.
// Only B2 and above count as vocabulary to learn.
func (l Level) Teachable() bool {
	return l == LevelB2 || l == LevelC1 || l == LevelC2
}

// VocabularyEntry is one difficult word with its learner-facing data.
type VocabularyEntry struct {
	Word         string       `json:"word"`
	Lemma        string       `json:"lemma"`
	PartOfSpeech PartOfSpeech `json:"partOfSpeech"`
	Level        Level        `json:"level"`
	Definition   string       `json:"definition"`
	Example      string       `json:"example"`
}

// Key returns the deduplication key for merging vocabulary lists:
// the normalized word if present, otherwise the normalized lemma.
func (e VocabularyEntry) Key() string {
	if w := strings.ToLower(strings.TrimSpace(e.Word)); w != "" {
		return w
	}
	return strings.ToLower(strings.TrimSpace(e.Lemma))
}

// ExplainResult is the canonical output of one explain request.
// Vocabulary preserves discovery order and is deduplicated by Key.
type ExplainResult struct {
	Explanation string            `json:"explanation"`
	Vocabulary  []VocabularyEntry `json:"vocabulary"`
	Notes       string            `json:"notes,omitempty"`
	Confidence  float64           `json:"confidence"`
}

// SelectionRequest is a validated request to explain a text selection.
type SelectionRequest struct {
	RequestID string          `json:"requestId"`
	Text      string          `json:"selectedText"`
	Origin    string          `json:"pageOrigin"`
	Mode      ExplanationMode `json:"explanationMode"`
}

// Invocation is one model call as sent to the proxy. Constructed per
// call and discarded once the response is consumed; never persisted.
type Invocation struct {
	Model           string          `json:"model"`
	System          string          `json:"system"`
	Input           string          `json:"input"`
	MaxOutputTokens int             `json:"maxOutputTokens"`
	ResponseSchema  json.RawMessage `json:"responseSchema,omitempty"`
}

// WordsUpdate is the unsolicited push the coordinator sends to the UI
// once a deferred vocabulary pass settles. The UI must ignore updates
// whose RequestID does not match its currently displayed request.
type WordsUpdate struct {
	Type      string         `json:"type"`
	RequestID string         `json:"requestId"`
	Result    *ExplainResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// WordsUpdateType is the Type value of every WordsUpdate message.
const WordsUpdateType = "words-update"
