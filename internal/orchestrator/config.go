package orchestrator

import "time"

// Config collects every tuning constant of the request lifecycle in
// one place, validated once at the orchestrator boundary.
type Config struct {
	// Models. Selections longer than DeferThresholdChars route to the
	// larger long-context model.
	FastModel string
	LongModel string

	// Input bounds. Lengths are measured in runes.
	MaxSelectionChars   int // hard ceiling; longer selections are rejected
	DeferThresholdChars int // above this: long path, vocabulary deferred
	ChunkThresholdChars int // above this: chunked path

	// Chunking.
	ChunkTargetChars int // greedy accumulation target per chunk
	MaxChunks        int // remainder folds into the final chunk
	ChunkConcurrency int // bounded chunk workers

	// Retry and backoff for transient upstream failures.
	MaxCallAttempts int           // per model call, incl. the first
	RetryBaseDelay  time.Duration // doubles per attempt, with jitter

	// Repair ladder.
	MaxLadderSteps int // total generation attempts per request

	// Token budgets per call kind.
	CombinedBudget    int
	ExplanationBudget int
	VocabularyBudget  int
	RepairBudget      int

	// Supplemental and deferred word passes.
	MaxCandidates int

	// Copy detection. Empirical tuning constants, deliberately
	// configurable rather than hard-coded.
	CopyOverlapThreshold float64 // 4-gram overlap ratio
	CopyMinTokens        int     // overlap check needs this many tokens
	CopySubstringMin     int     // substring check needs this many chars

	// Moderation pre-check; failures always degrade to not flagged.
	ModerationEnabled bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FastModel:            "gpt-4o-mini",
		LongModel:            "gpt-4o",
		MaxSelectionChars:    5000,
		DeferThresholdChars:  600,
		ChunkThresholdChars:  1400,
		ChunkTargetChars:     900,
		MaxChunks:            6,
		ChunkConcurrency:     2,
		MaxCallAttempts:      3,
		RetryBaseDelay:       400 * time.Millisecond,
		MaxLadderSteps:       4,
		CombinedBudget:       900,
		ExplanationBudget:    700,
		VocabularyBudget:     800,
		RepairBudget:         600,
		MaxCandidates:        12,
		CopyOverlapThreshold: 0.55,
		CopyMinTokens:        20,
		CopySubstringMin:     80,
		ModerationEnabled:    true,
	}
}

// normalized fills zero values with defaults so a partially populated
// config cannot disable bounds by accident.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.FastModel == "" {
		c.FastModel = d.FastModel
	}
	if c.LongModel == "" {
		c.LongModel = d.LongModel
	}
	if c.MaxSelectionChars <= 0 {
		c.MaxSelectionChars = d.MaxSelectionChars
	}
	if c.DeferThresholdChars <= 0 {
		c.DeferThresholdChars = d.DeferThresholdChars
	}
	if c.ChunkThresholdChars <= 0 {
		c.ChunkThresholdChars = d.ChunkThresholdChars
	}
	if c.ChunkTargetChars <= 0 {
		c.ChunkTargetChars = d.ChunkTargetChars
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = d.MaxChunks
	}
	if c.ChunkConcurrency <= 0 {
		c.ChunkConcurrency = d.ChunkConcurrency
	}
	if c.MaxCallAttempts <= 0 {
		c.MaxCallAttempts = d.MaxCallAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.MaxLadderSteps <= 0 {
		c.MaxLadderSteps = d.MaxLadderSteps
	}
	if c.CombinedBudget <= 0 {
		c.CombinedBudget = d.CombinedBudget
	}
	if c.ExplanationBudget <= 0 {
		c.ExplanationBudget = d.ExplanationBudget
	}
	if c.VocabularyBudget <= 0 {
		c.VocabularyBudget = d.VocabularyBudget
	}
	if c.RepairBudget <= 0 {
		c.RepairBudget = d.RepairBudget
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = d.MaxCandidates
	}
	if c.CopyOverlapThreshold <= 0 {
		c.CopyOverlapThreshold = d.CopyOverlapThreshold
	}
	if c.CopyMinTokens <= 0 {
		c.CopyMinTokens = d.CopyMinTokens
	}
	if c.CopySubstringMin <= 0 {
		c.CopySubstringMin = d.CopySubstringMin
	}
	return c
}
