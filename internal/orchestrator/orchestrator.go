// Package orchestrator owns the end-to-end lifecycle of an explain
// request: validation, fingerprinting, caching, in-flight coalescing,
// model selection, chunking, the retry/repair ladder, supplemental and
// deferred vocabulary passes, copy detection and final easy-language
// enforcement.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/plainread/plainread/internal/analyze"
	"github.com/plainread/plainread/internal/cache"
	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/gateway"
	"github.com/plainread/plainread/internal/metrics"
	"github.com/plainread/plainread/internal/modelout"
)

// Gateway is the upstream surface the orchestrator depends on.
// *gateway.Client implements it; tests substitute fakes.
type Gateway interface {
	CallStructured(ctx context.Context, inv domain.Invocation) (gateway.Output, error)
	Moderate(ctx context.Context, text string) bool
}

// Pusher receives deferred words-update messages for delivery to the
// UI. Pushes are best effort; a Pusher must never block.
type Pusher interface {
	Push(update domain.WordsUpdate)
}

// Response is the primary answer to one explain request.
type Response struct {
	RequestID    string               `json:"requestId"`
	Result       domain.ExplainResult `json:"result"`
	Cached       bool                 `json:"cached"`
	WordsPending bool                 `json:"wordsPending"`
}

// Orchestrator coordinates one extension instance's explain traffic.
// Construct exactly one per process; the cache and the in-flight
// registry live for the orchestrator's lifetime.
type Orchestrator struct {
	cfg      Config
	gw       Gateway
	cache    *cache.Cache
	analyzer *analyze.Analyzer
	pusher   Pusher

	mu       sync.Mutex
	inflight map[string]*flight
	current  map[string]string // origin -> latest request id

	deferredWG sync.WaitGroup
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator. pusher may be nil when no UI push
// channel exists (e.g. one-shot CLI use).
func New(cfg Config, gw Gateway, c *cache.Cache, analyzer *analyze.Analyzer, pusher Pusher) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg.normalized(),
		gw:       gw,
		cache:    c,
		analyzer: analyzer,
		pusher:   pusher,
		inflight: make(map[string]*flight),
		current:  make(map[string]string),
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// ClearCache drops every cached result.
func (o *Orchestrator) ClearCache() error { return o.cache.Clear() }

// WaitDeferred blocks until all in-progress deferred word passes have
// settled. Used on shutdown and in tests.
func (o *Orchestrator) WaitDeferred() { o.deferredWG.Wait() }

// Explain runs the full request lifecycle and returns the primary
// result. When WordsPending is true, a words-update push will follow
// on the Pusher once the deferred vocabulary pass settles.
func (o *Orchestrator) Explain(ctx context.Context, req domain.SelectionRequest) (Response, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		metrics.RequestsTotal.WithLabelValues("error").Inc()
		return Response{}, domain.ErrEmptySelection
	}
	length := utf8.RuneCountInString(req.Text)
	if length > o.cfg.MaxSelectionChars {
		metrics.RequestsTotal.WithLabelValues("error").Inc()
		return Response{}, &domain.SelectionTooLongError{Actual: length, Max: o.cfg.MaxSelectionChars}
	}
	req.Mode = domain.ParseExplanationMode(string(req.Mode))
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	model := o.cfg.FastModel
	if length > o.cfg.DeferThresholdChars {
		model = o.cfg.LongModel
	}
	fp := cache.Fingerprint(req.Origin, req.Text, model, req.Mode)

	// Mark this request as the current one for its origin so a stale
	// deferred push from an earlier request is discarded on delivery.
	o.mu.Lock()
	o.current[req.Origin] = req.RequestID
	o.mu.Unlock()

	if e, ok := o.cache.Get(fp); ok {
		metrics.RequestsTotal.WithLabelValues("cached").Inc()
		return Response{RequestID: req.RequestID, Result: e.Result, Cached: true}, nil
	}

	if o.cfg.ModerationEnabled && o.gw.Moderate(ctx, req.Text) {
		metrics.RequestsTotal.WithLabelValues("error").Inc()
		return Response{}, domain.ErrFlaggedContent
	}

	// Short path: coalesce identical concurrent requests. Long and
	// chunked requests are rarely duplicated and skip the registry.
	if length <= o.cfg.DeferThresholdChars {
		f, started := o.joinOrStart(fp)
		if !started {
			metrics.RequestsTotal.WithLabelValues("coalesced").Inc()
			return f.wait(ctx)
		}
		resp, err := o.computeShort(ctx, req, model, fp)
		o.settle(fp, f, resp, err)
		return resp, err
	}

	if length > o.cfg.ChunkThresholdChars {
		return o.computeChunked(ctx, req, fp)
	}
	return o.computeLong(ctx, req, fp)
}

// ─── Compute paths ──────────────────────────────────────────────────

// computeShort issues one combined call producing explanation and
// vocabulary together, with an optional supplemental word pass.
func (o *Orchestrator) computeShort(ctx context.Context, req domain.SelectionRequest, model, fp string) (Response, error) {
	inv := gateway.CombinedInvocation(model, req.Text, req.Mode, o.cfg.CombinedBudget)
	result, err := o.generate(ctx, inv, req.Text)
	if err != nil {
		if outputErr(err) {
			result = o.localFallback(req.Text)
			metrics.FallbacksTotal.Inc()
		} else {
			metrics.RequestsTotal.WithLabelValues("error").Inc()
			return Response{}, err
		}
	} else {
		result = o.ensureParaphrased(ctx, model, req, result)
		result = o.supplement(ctx, model, req.Text, result)
	}

	final := o.enforceEasyLanguage(result, req.Text)
	o.cache.Put(fp, req, final)
	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	return Response{RequestID: req.RequestID, Result: final}, nil
}

// computeLong issues an explanation-only call and defers vocabulary
// to an asynchronous pass pushed to the UI.
func (o *Orchestrator) computeLong(ctx context.Context, req domain.SelectionRequest, fp string) (Response, error) {
	inv := gateway.ExplanationInvocation(o.cfg.LongModel, req.Text, req.Mode, o.cfg.ExplanationBudget)
	result, err := o.generate(ctx, inv, req.Text)
	if err != nil {
		if !outputErr(err) {
			metrics.RequestsTotal.WithLabelValues("error").Inc()
			return Response{}, err
		}
		result = o.localFallback(req.Text)
		metrics.FallbacksTotal.Inc()
	} else {
		result = o.ensureParaphrased(ctx, o.cfg.LongModel, req, result)
	}

	result.Vocabulary = nil
	final := o.enforceEasyLanguage(result, req.Text)
	o.cache.Put(fp, req, final)

	o.startDeferred(req, fp, final, nil)
	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	return Response{RequestID: req.RequestID, Result: final, WordsPending: true}, nil
}

// computeChunked splits the selection into word-aligned chunks,
// processes them with bounded concurrency and merges the pieces.
// Vocabulary found in the chunks seeds the deferred pass.
func (o *Orchestrator) computeChunked(ctx context.Context, req domain.SelectionRequest, fp string) (Response, error) {
	chunks := splitChunks(req.Text, o.cfg.ChunkTargetChars, o.cfg.MaxChunks)
	results, err := o.processChunks(ctx, req.Mode, chunks)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("error").Inc()
		return Response{}, err
	}

	merged := mergeChunkResults(results, len(chunks))
	merged2 := o.ensureParaphrased(ctx, o.cfg.LongModel, req, merged)
	seedVocab := merged2.Vocabulary
	merged2.Vocabulary = nil
	final := o.enforceEasyLanguage(merged2, req.Text)
	o.cache.Put(fp, req, final)

	o.startDeferred(req, fp, final, seedVocab)
	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	return Response{RequestID: req.RequestID, Result: final, WordsPending: true}, nil
}

// processChunks runs the per-chunk combined calls. Workers pull the
// next unprocessed index, so at most ChunkConcurrency upstream calls
// are in flight at once.
func (o *Orchestrator) processChunks(ctx context.Context, mode domain.ExplanationMode, chunks []string) ([]domain.ExplainResult, error) {
	results := make([]domain.ExplainResult, len(chunks))
	grp, gctx := newChunkGroup(ctx, o.cfg.ChunkConcurrency)
	for i, chunk := range chunks {
		grp.Go(func() error {
			inv := gateway.CombinedInvocation(o.cfg.LongModel, chunk, mode, o.cfg.CombinedBudget)
			r, err := o.generate(gctx, inv, chunk)
			if err != nil {
				if !outputErr(err) {
					return err
				}
				r = o.localFallback(chunk)
				metrics.FallbacksTotal.Inc()
			}
			results[i] = r
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mergeChunkResults concatenates explanations with blank-line
// separators, unions vocabulary by normalized key, averages
// confidence and appends the standard multi-part note.
func mergeChunkResults(results []domain.ExplainResult, parts int) domain.ExplainResult {
	var explanations []string
	var vocab []domain.VocabularyEntry
	var confidence float64
	for _, r := range results {
		if e := strings.TrimSpace(r.Explanation); e != "" {
			explanations = append(explanations, e)
		}
		vocab = mergeVocabulary(vocab, r.Vocabulary)
		confidence += r.Confidence
	}
	if len(results) > 0 {
		confidence /= float64(len(results))
	}
	return domain.ExplainResult{
		Explanation: strings.Join(explanations, "\n\n"),
		Vocabulary:  vocab,
		Notes:       multiPartNote(parts),
		Confidence:  confidence,
	}
}

func multiPartNote(parts int) string {
	return "Long text: analyzed in " + strconv.Itoa(parts) + " parts."
}

// ─── Generation ladder ──────────────────────────────────────────────

// generate runs the retry/repair ladder for one logical model call:
//  1. direct parse of structured output
//  2. on truncated-empty output: one retry with a doubled budget and
//     the schema disabled
//  3. on persistent empty output from the fast model: one retry on
//     the larger model
//  4. on a parse failure: one dedicated repair call on the larger
//     model, feeding the malformed text back in
//
// The loop is bounded by MaxLadderSteps. Exhaustion surfaces as
// ErrEmptyOutput or ErrMalformedOutput; callers answer those with the
// deterministic local fallback rather than an error.
func (o *Orchestrator) generate(ctx context.Context, inv domain.Invocation, source string) (domain.ExplainResult, error) {
	enlarged, escalated, repaired := false, false, false
	lastErr := domain.ErrEmptyOutput

	for step := 0; step < o.cfg.MaxLadderSteps; step++ {
		out, err := o.callWithBackoff(ctx, inv)
		if err != nil {
			return domain.ExplainResult{}, err
		}

		switch v := out.(type) {
		case gateway.Refused:
			return domain.ExplainResult{}, &domain.CallError{
				Class:  domain.ClassProxyError,
				Detail: v.Message,
			}

		case gateway.Incomplete:
			lastErr = domain.ErrEmptyOutput
			if v.Reason == gateway.ReasonTruncated && !enlarged {
				enlarged = true
				inv.MaxOutputTokens *= 2
				inv.ResponseSchema = nil
				continue
			}
			if inv.Model == o.cfg.FastModel && !escalated {
				escalated = true
				inv.Model = o.cfg.LongModel
				continue
			}
			return domain.ExplainResult{}, lastErr

		case gateway.Completed:
			result, perr := modelout.Parse(v.Text)
			if perr == nil && result.Explanation != "" {
				return result, nil
			}
			lastErr = domain.ErrMalformedOutput
			if perr == nil {
				lastErr = domain.ErrEmptyOutput
			}
			if !repaired {
				repaired = true
				inv = gateway.RepairInvocation(o.cfg.LongModel, v.Text, o.cfg.RepairBudget)
				continue
			}
			return domain.ExplainResult{}, lastErr
		}
	}
	return domain.ExplainResult{}, lastErr
}

// callWithBackoff sends one invocation, retrying transient failures
// with exponential backoff and jitter up to MaxCallAttempts.
// Non-retriable errors abort immediately.
func (o *Orchestrator) callWithBackoff(ctx context.Context, inv domain.Invocation) (gateway.Output, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxCallAttempts; attempt++ {
		metrics.UpstreamAttemptsTotal.Inc()
		out, err := o.gw.CallStructured(ctx, inv)
		if err == nil {
			return out, nil
		}
		if !domain.Retriable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == o.cfg.MaxCallAttempts {
			break
		}

		delay := o.cfg.RetryBaseDelay << (attempt - 1)
		// Jitter: +-25% so synchronized clients do not retry in step.
		delay += time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
		if ce, ok := domain.AsCallError(err); ok && ce.RetryAfter > delay {
			delay = ce.RetryAfter
		}
		log.Printf("[orchestrator] upstream attempt %d/%d failed (%v), retrying in %s",
			attempt, o.cfg.MaxCallAttempts, err, delay)
		if serr := o.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
	return nil, lastErr
}

// outputErr reports whether err is a locally recoverable output error
// (as opposed to an upstream failure that must be surfaced).
func outputErr(err error) bool {
	return errors.Is(err, domain.ErrEmptyOutput) || errors.Is(err, domain.ErrMalformedOutput)
}

// ─── Copy detection, supplemental and deferred passes ───────────────

// ensureParaphrased rejects an explanation that repeats the source:
// one corrective retry asking for a paraphrase, then the keyword
// fallback. The vocabulary of the original result is kept either way.
func (o *Orchestrator) ensureParaphrased(ctx context.Context, model string, req domain.SelectionRequest, result domain.ExplainResult) domain.ExplainResult {
	if !o.isCopy(result.Explanation, req.Text) {
		return result
	}
	log.Printf("[orchestrator] request %s: explanation repeats the source, retrying once", req.RequestID)

	inv := gateway.ParaphraseRetryInvocation(model, req.Text, req.Mode, o.cfg.ExplanationBudget)
	retry, err := o.generate(ctx, inv, req.Text)
	if err == nil && !o.isCopy(retry.Explanation, req.Text) {
		result.Explanation = retry.Explanation
		return result
	}

	metrics.FallbacksTotal.Inc()
	result.Explanation = o.keywordSummary(req.Text)
	if result.Confidence > 0.2 {
		result.Confidence = 0.2
	}
	return result
}

// supplement issues the dedicated vocabulary-only pass when the
// primary pass clearly under-extracted: zero entries despite
// candidates, or a single entry despite ten or more candidates.
// The pass is best effort; on failure the primary result stands.
func (o *Orchestrator) supplement(ctx context.Context, model, text string, result domain.ExplainResult) domain.ExplainResult {
	candidates := o.analyzer.ExtractCandidates(text, o.cfg.MaxCandidates)
	trigger := (len(result.Vocabulary) == 0 && len(candidates) >= 1) ||
		(len(result.Vocabulary) == 1 && len(candidates) >= 10)
	if !trigger {
		return result
	}

	entries, err := o.vocabularyPass(ctx, model, text, candidates)
	if err != nil {
		log.Printf("[orchestrator] supplemental word pass failed: %v", err)
		return result
	}
	result.Vocabulary = mergeVocabulary(result.Vocabulary, entries)
	return result
}

// vocabularyPass runs one vocabulary-only model call.
func (o *Orchestrator) vocabularyPass(ctx context.Context, model, text string, hints []string) ([]domain.VocabularyEntry, error) {
	inv := gateway.VocabularyInvocation(model, text, hints, o.cfg.VocabularyBudget)
	out, err := o.callWithBackoff(ctx, inv)
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case gateway.Completed:
		return modelout.ParseVocabulary(v.Text)
	case gateway.Refused:
		return nil, &domain.CallError{Class: domain.ClassProxyError, Detail: v.Message}
	default:
		return nil, domain.ErrEmptyOutput
	}
}

// startDeferred launches the asynchronous vocabulary pass for the
// long and chunked paths. The primary response has already been
// returned; this task only updates the cache and pushes a
// words-update. It never fails the request.
func (o *Orchestrator) startDeferred(req domain.SelectionRequest, fp string, base domain.ExplainResult, seed []domain.VocabularyEntry) {
	o.deferredWG.Add(1)
	go func() {
		defer o.deferredWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		o.deferredWords(ctx, req, fp, base, seed)
	}()
}

func (o *Orchestrator) deferredWords(ctx context.Context, req domain.SelectionRequest, fp string, base domain.ExplainResult, seed []domain.VocabularyEntry) {
	candidates := o.analyzer.ExtractCandidates(req.Text, o.cfg.MaxCandidates)
	vocab := seed

	needsPass := (len(seed) == 0 && len(candidates) >= 1) ||
		(len(seed) == 1 && len(candidates) >= 10)
	if needsPass {
		entries, err := o.vocabularyPass(ctx, o.cfg.LongModel, req.Text, candidates)
		if err != nil {
			log.Printf("[orchestrator] deferred word pass for %s failed: %v", req.RequestID, err)
			o.push(req, domain.WordsUpdate{
				Type:      domain.WordsUpdateType,
				RequestID: req.RequestID,
				Error:     "Could not load the word list. Please try again.",
			})
			return
		}
		vocab = mergeVocabulary(seed, entries)
	}

	merged := base
	merged.Vocabulary = vocab
	final := o.enforceEasyLanguage(merged, req.Text)

	// Last write wins: the deferred update replaces the cached entry
	// wholesale with the merged content.
	o.cache.Put(fp, req, final)

	o.push(req, domain.WordsUpdate{
		Type:      domain.WordsUpdateType,
		RequestID: req.RequestID,
		Result:    &final,
	})
}

// push delivers a words-update if the request is still the current one
// for its origin. Superseded updates are counted and dropped; delivery
// is always best effort.
func (o *Orchestrator) push(req domain.SelectionRequest, update domain.WordsUpdate) {
	if o.pusher == nil {
		return
	}
	o.mu.Lock()
	current := o.current[req.Origin] == req.RequestID
	o.mu.Unlock()
	if !current {
		metrics.DeferredPushesTotal.WithLabelValues("stale").Inc()
		return
	}
	if update.Error != "" {
		metrics.DeferredPushesTotal.WithLabelValues("error").Inc()
	} else {
		metrics.DeferredPushesTotal.WithLabelValues("delivered").Inc()
	}
	o.pusher.Push(update)
}

// mergeVocabulary unions two vocabulary lists by normalized key.
// First occurrence wins, existing entries before supplemental ones,
// insertion order preserved.
func mergeVocabulary(existing, supplemental []domain.VocabularyEntry) []domain.VocabularyEntry {
	seen := make(map[string]struct{}, len(existing)+len(supplemental))
	var out []domain.VocabularyEntry
	for _, list := range [][]domain.VocabularyEntry{existing, supplemental} {
		for _, e := range list {
			key := e.Key()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
