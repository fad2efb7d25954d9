// Package cache is the content-addressed result store. Entries are
// keyed by a deterministic fingerprint of everything that influences a
// result: page origin, selection text, model, schema version and
// explanation mode. Entries past their expiry are treated as absent
// and purged opportunistically.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/plainread/plainread/internal/domain"
)

// SchemaVersion is part of every fingerprint. Bump it whenever the
// result shape or the prompts change incompatibly, so stale cached
// results never leak into a new format.
const SchemaVersion = "v1"

// Fingerprint computes the deterministic cache key for a request.
// Components are joined with a separator that cannot appear in any of
// them, so distinct inputs never collide by concatenation.
func Fingerprint(origin, text, model string, mode domain.ExplanationMode) string {
	h := sha256.New()
	for _, part := range []string{origin, text, model, SchemaVersion, string(mode)} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is one cached result with its lifecycle metadata.
type Entry struct {
	CreatedAt       time.Time               `json:"createdAt"`
	ExpiresAt       time.Time               `json:"expiresAt"`
	RequestSnapshot domain.SelectionRequest `json:"requestSnapshot"`
	Result          domain.ExplainResult    `json:"result"`
}

// Store is the durable backing layer behind the in-memory map.
// Implementations must tolerate concurrent use.
type Store interface {
	Get(key string) (Entry, bool, error)
	Put(key string, e Entry) error
	Purge(now time.Time) error
	Clear() error
	Close() error
}

// Cache is the process-wide result cache: an in-memory map with an
// optional durable store behind it. Writes go through to both layers;
// reads fall back to the store on a memory miss.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	store   Store // nil for memory-only caches
	ttl     time.Duration
	now     func() time.Time

	gets int // opportunistic purge counter
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore attaches a durable backing store.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// purgeEvery is how many Gets pass between opportunistic sweeps of
// expired in-memory entries.
const purgeEvery = 64

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		if err := c.store.Purge(c.now()); err != nil {
			log.Printf("[cache] purge on open: %v", err)
		}
	}
	return c
}

// Get returns the live entry for key, if any. Expired entries are
// deleted and reported as absent.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.gets++
	if c.gets%purgeEvery == 0 {
		c.purgeLocked(now)
	}

	if e, ok := c.entries[key]; ok {
		if now.Before(e.ExpiresAt) {
			return e, true
		}
		delete(c.entries, key)
	}

	if c.store == nil {
		return Entry{}, false
	}
	e, ok, err := c.store.Get(key)
	if err != nil {
		log.Printf("[cache] store get: %v", err)
		return Entry{}, false
	}
	if !ok || !now.Before(e.ExpiresAt) {
		return Entry{}, false
	}
	c.entries[key] = e
	return e, true
}

// Put stores a result for key, replacing any previous entry wholesale.
func (c *Cache) Put(key string, req domain.SelectionRequest, result domain.ExplainResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e := Entry{
		CreatedAt:       now,
		ExpiresAt:       now.Add(c.ttl),
		RequestSnapshot: req,
		Result:          result,
	}
	c.entries[key] = e
	if c.store != nil {
		if err := c.store.Put(key, e); err != nil {
			log.Printf("[cache] store put: %v", err)
		}
	}
}

// Clear drops every entry from both layers.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	if c.store != nil {
		return c.store.Clear()
	}
	return nil
}

// Len returns the number of in-memory entries, live or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) purgeLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
		}
	}
	if c.store != nil {
		if err := c.store.Purge(now); err != nil {
			log.Printf("[cache] store purge: %v", err)
		}
	}
}
