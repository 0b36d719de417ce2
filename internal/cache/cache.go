// Package cache is the TTL-bound in-memory response cache guarding repeated
// identical supplier searches. Single-process only; persistence and shared
// caches are out of scope for the sandbox.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/prisma-build/procurement-api/internal/sim"
)

// Params is the canonicalized identity of a cacheable operation. Origin
// coordinates are rounded to 4 decimal places (~11 m) before keying so
// trivially different origins still share an entry.
type Params struct {
	Operation    string
	Material     string
	Latitude     float64
	Longitude    float64
	QuantityTons float64
}

// Key derives the deterministic 16-hex-character fingerprint for the params.
// sha256 is used for its distribution, not for security.
func (p Params) Key() string {
	canonical := fmt.Sprintf("op=%s|material=%s|lat=%.4f|lon=%.4f|qty=%g",
		p.Operation, p.Material, p.Latitude, p.Longitude, p.QuantityTons)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}

// Hit is a successful lookup: the stored payload plus how old it is.
type Hit struct {
	Payload    any
	AgeSeconds int
}

type entry struct {
	payload   any
	createdAt time.Time
	expiresAt time.Time
}

// Stats is a diagnostic snapshot of the cache. Expired counts entries that
// are past TTL but not yet lazily evicted.
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	ActiveEntries  int     `json:"active_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	TTLHours       float64 `json:"ttl_hours"`
}

// ResponseCache is a coarse-locked TTL map. The access pattern (one lookup
// and at most one store per search request) does not justify anything finer.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	clock      sim.Clock
}

// New creates a cache with the given default TTL. A non-positive TTL falls
// back to 24 hours.
func New(defaultTTL time.Duration, clock sim.Clock) *ResponseCache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &ResponseCache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		clock:      clock,
	}
}

// Get returns the entry for params if present and fresh. An expired entry is
// evicted on read, not merely skipped.
func (c *ResponseCache) Get(params Params) (Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := params.Key()
	e, ok := c.entries[key]
	if !ok {
		return Hit{}, false
	}

	now := c.clock.Now()
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		return Hit{}, false
	}

	return Hit{
		Payload:    e.payload,
		AgeSeconds: int(now.Sub(e.createdAt).Seconds()),
	}, true
}

// Set stores payload under the params key, overwriting any existing entry.
// A non-positive ttl uses the cache default.
func (c *ResponseCache) Set(params Params, payload any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.clock.Now()
	c.mu.Lock()
	c.entries[params.Key()] = entry{
		payload:   payload,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	c.mu.Unlock()
}

// Delete removes the entry for params, if any.
func (c *ResponseCache) Delete(params Params) {
	c.mu.Lock()
	delete(c.entries, params.Key())
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// GetStats scans the map and reports totals. The expired count is computed on
// demand rather than maintained incrementally.
func (c *ResponseCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	expired := 0
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			expired++
		}
	}

	total := len(c.entries)
	return Stats{
		TotalEntries:   total,
		ActiveEntries:  total - expired,
		ExpiredEntries: expired,
		TTLHours:       c.defaultTTL.Hours(),
	}
}
