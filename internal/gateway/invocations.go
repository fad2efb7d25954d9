package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plainread/plainread/internal/domain"
)

// Prompt and schema construction for every call kind the orchestrator
// issues. The orchestrator picks the model and token budget; this file
// owns the wording and the declared output shapes.

const systemPrompt = `You are a reading aid for language learners. You rewrite difficult text
using only very common, simple English words (roughly the 1000 most
frequent words). Short sentences. No rare words, no idioms, no jargon.
Always answer with a single JSON object and nothing else.`

// resultSchema declares the combined explanation + vocabulary shape.
var resultSchema = json.RawMessage(`{
  "name": "explain_result",
  "strict": true,
  "schema": {
    "type": "object",
    "additionalProperties": false,
    "required": ["explanation", "vocabulary", "notes", "confidence"],
    "properties": {
      "explanation": {"type": "string"},
      "vocabulary": {
        "type": "array",
        "items": {
          "type": "object",
          "additionalProperties": false,
          "required": ["word", "lemma", "partOfSpeech", "level", "definition", "example"],
          "properties": {
            "word": {"type": "string"},
            "lemma": {"type": "string"},
            "partOfSpeech": {"type": "string", "enum": ["noun", "verb", "adjective", "adverb", "preposition", "pronoun", "determiner", "conjunction", "other"]},
            "level": {"type": "string", "enum": ["A2", "B1", "B2", "C1", "C2", "unknown"]},
            "definition": {"type": "string"},
            "example": {"type": "string"}
          }
        }
      },
      "notes": {"type": "string"},
      "confidence": {"type": "number"}
    }
  }
}`)

// vocabularySchema declares the vocabulary-only shape for supplemental
// and deferred word passes.
var vocabularySchema = json.RawMessage(`{
  "name": "vocabulary_result",
  "strict": true,
  "schema": {
    "type": "object",
    "additionalProperties": false,
    "required": ["vocabulary"],
    "properties": {
      "vocabulary": {
        "type": "array",
        "items": {
          "type": "object",
          "additionalProperties": false,
          "required": ["word", "lemma", "partOfSpeech", "level", "definition", "example"],
          "properties": {
            "word": {"type": "string"},
            "lemma": {"type": "string"},
            "partOfSpeech": {"type": "string", "enum": ["noun", "verb", "adjective", "adverb", "preposition", "pronoun", "determiner", "conjunction", "other"]},
            "level": {"type": "string", "enum": ["A2", "B1", "B2", "C1", "C2", "unknown"]},
            "definition": {"type": "string"},
            "example": {"type": "string"}
          }
        }
      }
    }
  }
}`)

func modeGuidance(mode domain.ExplanationMode) string {
	switch mode {
	case domain.ModeSimple:
		return "Write at most two short sentences."
	case domain.ModeDetailed:
		return "Write up to six short sentences and cover every main point."
	default:
		return "Write three or four short sentences."
	}
}

// CombinedInvocation asks for explanation and vocabulary in one call.
// Used on the short path.
func CombinedInvocation(model, text string, mode domain.ExplanationMode, budget int) domain.Invocation {
	input := fmt.Sprintf(`Explain the text below in simple English. %s
Do not repeat the original wording; paraphrase it.
Then list the difficult words (CEFR level B2 or above) with a simple
definition and a simple example sentence for each.

Return JSON: {"explanation": string, "vocabulary": [{"word", "lemma",
"partOfSpeech", "level", "definition", "example"}], "notes": string,
"confidence": number between 0 and 1}

Text:
%s`, modeGuidance(mode), text)

	return domain.Invocation{
		Model:           model,
		System:          systemPrompt,
		Input:           input,
		MaxOutputTokens: budget,
		ResponseSchema:  resultSchema,
	}
}

// ExplanationInvocation asks for the explanation only. Used on the
// long and chunked paths, where vocabulary is deferred.
func ExplanationInvocation(model, text string, mode domain.ExplanationMode, budget int) domain.Invocation {
	input := fmt.Sprintf(`Explain the text below in simple English. %s
Do not repeat the original wording; paraphrase it.

Return JSON: {"explanation": string, "vocabulary": [], "notes": string,
"confidence": number between 0 and 1}

Text:
%s`, modeGuidance(mode), text)

	return domain.Invocation{
		Model:           model,
		System:          systemPrompt,
		Input:           input,
		MaxOutputTokens: budget,
		ResponseSchema:  resultSchema,
	}
}

// VocabularyInvocation asks for vocabulary entries only, constrained
// to the candidate hints detected locally.
func VocabularyInvocation(model, text string, hints []string, budget int) domain.Invocation {
	hintLine := ""
	if len(hints) > 0 {
		hintLine = "Focus on these words: " + strings.Join(hints, ", ") + ".\n"
	}
	input := fmt.Sprintf(`List the difficult words (CEFR level B2 or above) from the text below.
%sFor each word give the base form, the part of speech, the CEFR level,
a simple definition, and a simple example sentence.

Return JSON: {"vocabulary": [{"word", "lemma", "partOfSpeech", "level",
"definition", "example"}]}

Text:
%s`, hintLine, text)

	return domain.Invocation{
		Model:           model,
		System:          systemPrompt,
		Input:           input,
		MaxOutputTokens: budget,
		ResponseSchema:  vocabularySchema,
	}
}

// RepairInvocation feeds malformed output back and asks for valid
// JSON. Always issued on the larger model, with no schema so the call
// cannot be rejected for schema reasons.
func RepairInvocation(model, malformed string, budget int) domain.Invocation {
	input := fmt.Sprintf(`The text below should be a JSON object with the fields "explanation",
"vocabulary", "notes" and "confidence", but it is not valid JSON.
Rewrite it as exactly that JSON object. Output only the JSON.

%s`, malformed)

	return domain.Invocation{
		Model:           model,
		System:          systemPrompt,
		Input:           input,
		MaxOutputTokens: budget,
	}
}

// ParaphraseRetryInvocation is the single corrective retry issued when
// copy detection rejects an explanation for repeating the source.
func ParaphraseRetryInvocation(model, text string, mode domain.ExplanationMode, budget int) domain.Invocation {
	inv := ExplanationInvocation(model, text, mode, budget)
	inv.Input = "Your previous answer repeated the original text. Use your own, much simpler words this time.\n\n" + inv.Input
	return inv
}
