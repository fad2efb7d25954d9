// Package modelout parses raw model output into the canonical result
// shape, clamping and defaulting fields so that downstream code never
// sees out-of-range or missing values.
package modelout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plainread/plainread/internal/domain"
)

// wireResult mirrors the JSON shape the model is asked to produce.
// Confidence is a pointer so a missing field can default to 0.5.
type wireResult struct {
	Explanation string      `json:"explanation"`
	Vocabulary  []wireEntry `json:"vocabulary"`
	Notes       string      `json:"notes"`
	Confidence  *float64    `json:"confidence"`
}

type wireEntry struct {
	Word         string `json:"word"`
	Lemma        string `json:"lemma"`
	PartOfSpeech string `json:"partOfSpeech"`
	Level        string `json:"level"`
	Definition   string `json:"definition"`
	Example      string `json:"example"`
}

// Parse decodes raw model output into an ExplainResult. It first tries
// a direct JSON parse; on failure it retries on the substring between
// the first '{' and the last '}'. Models often wrap JSON in prose or
// markdown fences, so the salvage pass recovers most of those cases.
func Parse(raw string) (domain.ExplainResult, error) {
	var wire wireResult
	if err := decode(raw, &wire); err != nil {
		return domain.ExplainResult{}, err
	}
	return normalize(wire), nil
}

// ParseVocabulary decodes a vocabulary-only payload, produced by the
// supplemental word pass. Accepts either {"vocabulary": [...]} or a
// bare JSON array.
func ParseVocabulary(raw string) ([]domain.VocabularyEntry, error) {
	var wrapped struct {
		Vocabulary []wireEntry `json:"vocabulary"`
	}
	if err := decode(raw, &wrapped); err == nil && len(wrapped.Vocabulary) > 0 {
		return normalizeEntries(wrapped.Vocabulary), nil
	}

	var bare []wireEntry
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &bare); err == nil {
		return normalizeEntries(bare), nil
	}
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &bare); err == nil {
			return normalizeEntries(bare), nil
		}
	}
	return nil, fmt.Errorf("vocabulary payload: %w", domain.ErrMalformedOutput)
}

func decode(raw string, v any) error {
	cleaned := stripFences(raw)
	if json.Unmarshal([]byte(cleaned), v) == nil {
		return nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if json.Unmarshal([]byte(cleaned[start:end+1]), v) == nil {
			return nil
		}
	}
	return domain.ErrMalformedOutput
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalize(wire wireResult) domain.ExplainResult {
	confidence := 0.5
	if wire.Confidence != nil {
		confidence = clamp01(*wire.Confidence)
	}
	return domain.ExplainResult{
		Explanation: strings.TrimSpace(wire.Explanation),
		Vocabulary:  normalizeEntries(wire.Vocabulary),
		Notes:       strings.TrimSpace(wire.Notes),
		Confidence:  confidence,
	}
}

func normalizeEntries(entries []wireEntry) []domain.VocabularyEntry {
	var out []domain.VocabularyEntry
	for _, e := range entries {
		word := strings.TrimSpace(e.Word)
		if word == "" {
			continue
		}
		lemma := strings.TrimSpace(e.Lemma)
		if lemma == "" {
			lemma = strings.ToLower(word)
		}
		out = append(out, domain.VocabularyEntry{
			Word:         word,
			Lemma:        lemma,
			PartOfSpeech: domain.ParsePartOfSpeech(e.PartOfSpeech),
			Level:        domain.ParseLevel(e.Level),
			Definition:   strings.TrimSpace(e.Definition),
			Example:      strings.TrimSpace(e.Example),
		})
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
