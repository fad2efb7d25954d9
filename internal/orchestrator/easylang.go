package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plainread/plainread/internal/analyze"
	"github.com/plainread/plainread/internal/domain"
)

// Final language-safety enforcement. Everything the user reads is
// re-validated against the lexicon on the way out: known hard words
// are swapped from a fixed replacement table, unknown hard words
// become a neutral placeholder, and an explanation that ends up empty
// falls back to a keyword template. The invariant is absolute: the
// returned result always passes IsSimpleEnough.

// placeholder replaces hard words with no table entry. It is not a
// letter run, so the analyzer never flags it.
const placeholder = "___"

// replacements maps frequent hard words to easy equivalents. Every
// target must be in the easy-word lexicon.
var replacements = map[string]string{
	"additional":    "more",
	"approximately": "about",
	"assist":        "help",
	"assistance":    "help",
	"attempt":       "try",
	"commence":      "start",
	"comprehend":    "understand",
	"construct":     "build",
	"currently":     "now",
	"demonstrate":   "show",
	"discover":      "find",
	"enormous":      "big",
	"entire":        "whole",
	"frequently":    "often",
	"inquire":       "ask",
	"numerous":      "many",
	"obtain":        "get",
	"purchase":      "buy",
	"require":       "need",
	"requires":      "needs",
	"reside":        "live",
	"select":        "choose",
	"sufficient":    "enough",
	"terminate":     "end",
	"utilize":       "use",
}

// easyText substitutes every hard word in s.
func (o *Orchestrator) easyText(s string) string {
	return o.analyzer.RewriteDifficult(s, func(tok string) string {
		if easy, ok := replacements[strings.ToLower(tok)]; ok {
			return easy
		}
		return placeholder
	})
}

// enforceEasyLanguage sanitizes a result before it leaves the
// orchestrator: explanation and every definition/example substituted,
// vocabulary filtered to teachable levels with non-empty fields.
func (o *Orchestrator) enforceEasyLanguage(result domain.ExplainResult, source string) domain.ExplainResult {
	out := result
	out.Explanation = strings.TrimSpace(o.easyText(result.Explanation))
	if out.Explanation == "" || !o.analyzer.IsSimpleEnough(domain.ExplainResult{Explanation: out.Explanation}).Valid {
		out.Explanation = o.keywordSummary(source)
	}

	out.Vocabulary = nil
	for _, e := range result.Vocabulary {
		if !e.Level.Teachable() {
			continue
		}
		e.Definition = strings.TrimSpace(o.easyText(e.Definition))
		e.Example = strings.TrimSpace(o.easyText(e.Example))
		if e.Definition == "" || e.Example == "" {
			continue
		}
		out.Vocabulary = append(out.Vocabulary, e)
	}
	return out
}

// stopwords excluded from keyword extraction. Function words only;
// content words are what the template is for.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the a an and or but of to in on at for with from by as is are was were be been being " +
			"it its this that these those there here have has had do does did will would can could " +
			"should shall may might must not no nor so if then than when while which who whom whose " +
			"what where why how all any both each few more most other some such only own same very " +
			"into over under again further once about between through during before after above below " +
			"they them their we our you your he she his her him i me my us also just even still yet",
	) {
		stopwords[w] = struct{}{}
	}
}

// keywordSummary builds the deterministic "this text is about ..."
// fallback from the most frequent content words of the source. The
// output is itself substituted, so it can never reintroduce hard
// words.
func (o *Orchestrator) keywordSummary(source string) string {
	type wordCount struct {
		word  string
		count int
		first int
	}
	counts := make(map[string]*wordCount)
	var order []string
	for i, tok := range analyze.Tokenize(source) {
		w := strings.ToLower(tok)
		if len([]rune(w)) < 4 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if wc, ok := counts[w]; ok {
			wc.count++
			continue
		}
		counts[w] = &wordCount{word: w, count: 1, first: i}
		order = append(order, w)
	}

	ranked := make([]*wordCount, 0, len(order))
	for _, w := range order {
		ranked = append(ranked, counts[w])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	var summary string
	switch len(ranked) {
	case 0:
		summary = "This text is about something."
	case 1:
		summary = fmt.Sprintf("This text is about %s.", ranked[0].word)
	case 2:
		summary = fmt.Sprintf("This text is about %s and %s.", ranked[0].word, ranked[1].word)
	default:
		summary = fmt.Sprintf("This text is about %s, %s and %s.",
			ranked[0].word, ranked[1].word, ranked[2].word)
	}
	return o.easyText(summary)
}

// localFallback is the deterministic result produced when the whole
// repair ladder is exhausted. Always usable, never an error.
func (o *Orchestrator) localFallback(source string) domain.ExplainResult {
	return domain.ExplainResult{
		Explanation: o.keywordSummary(source),
		Notes:       "We could not fully simplify this text. Please try again.",
		Confidence:  0.2,
	}
}
