package cache

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/plainread/plainread/internal/domain"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("https://example.com", "some text", "gpt-4o-mini", domain.ModeBalanced)
	b := Fingerprint("https://example.com", "some text", "gpt-4o-mini", domain.ModeBalanced)
	if a != b {
		t.Errorf("identical inputs produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestFingerprintDistinguishesComponents(t *testing.T) {
	base := Fingerprint("origin", "text", "model", domain.ModeBalanced)
	variants := []string{
		Fingerprint("origin2", "text", "model", domain.ModeBalanced),
		Fingerprint("origin", "text2", "model", domain.ModeBalanced),
		Fingerprint("origin", "text", "model2", domain.ModeBalanced),
		Fingerprint("origin", "text", "model", domain.ModeDetailed),
		// Concatenation boundary must matter.
		Fingerprint("originte", "xt", "model", domain.ModeBalanced),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base fingerprint", i)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := New(time.Hour)
	key := Fingerprint("o", "t", "m", domain.ModeBalanced)

	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache reported a hit")
	}

	req := domain.SelectionRequest{RequestID: "r1", Text: "t", Origin: "o", Mode: domain.ModeBalanced}
	result := domain.ExplainResult{
		Explanation: "short and clear",
		Vocabulary: []domain.VocabularyEntry{
			{Word: "opaque", Lemma: "opaque", PartOfSpeech: domain.POSAdjective,
				Level: domain.LevelC1, Definition: "d", Example: "e"},
		},
		Confidence: 0.7,
	}
	c.Put(key, req, result)

	e, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !reflect.DeepEqual(e.Result, result) {
		t.Errorf("cached result differs: got %+v want %+v", e.Result, result)
	}
	if !reflect.DeepEqual(e.RequestSnapshot, req) {
		t.Errorf("request snapshot differs: got %+v want %+v", e.RequestSnapshot, req)
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New(time.Minute, WithClock(func() time.Time { return clock() }))

	key := "k"
	c.Put(key, domain.SelectionRequest{}, domain.ExplainResult{Explanation: "x"})
	if _, ok := c.Get(key); !ok {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(key); ok {
		t.Fatal("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be deleted, len = %d", c.Len())
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := New(time.Hour)
	c.Put("k", domain.SelectionRequest{}, domain.ExplainResult{Explanation: "first"})
	c.Put("k", domain.SelectionRequest{}, domain.ExplainResult{Explanation: "second"})
	e, ok := c.Get("k")
	if !ok || e.Result.Explanation != "second" {
		t.Errorf("later write should win, got %+v ok=%v", e.Result, ok)
	}
}

func TestCacheClear(t *testing.T) {
	c := New(time.Hour)
	c.Put("k", domain.SelectionRequest{}, domain.ExplainResult{Explanation: "x"})
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("cleared cache reported a hit")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := Entry{
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Hour),
		RequestSnapshot: domain.SelectionRequest{RequestID: "r", Text: "t", Origin: "o"},
		Result:          domain.ExplainResult{Explanation: "cached", Confidence: 0.9},
	}

	if _, ok, err := store.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v", ok, err)
	}
	if err := store.Put("k", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok=%v err=%v", ok, err)
	}
	if got.Result.Explanation != "cached" || !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Purge removes only expired rows.
	stale := entry
	stale.ExpiresAt = now.Add(-time.Hour)
	if err := store.Put("old", stale); err != nil {
		t.Fatalf("Put(old): %v", err)
	}
	if err := store.Purge(now); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, ok, _ := store.Get("old"); ok {
		t.Error("expired row survived purge")
	}
	if _, ok, _ := store.Get("k"); !ok {
		t.Error("live row was purged")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Error("row survived clear")
	}
}

func TestCacheWithStoreFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	c := New(time.Hour, WithStore(store))
	c.Put("k", domain.SelectionRequest{}, domain.ExplainResult{Explanation: "durable"})

	// A fresh cache over the same store sees the entry.
	c2 := New(time.Hour, WithStore(store))
	e, ok := c2.Get("k")
	if !ok || e.Result.Explanation != "durable" {
		t.Errorf("store-backed miss: ok=%v result=%+v", ok, e.Result)
	}
}
