// Package sim holds the injectable time and randomness sources used by the
// simulation core. Production code uses the real wall clock and a seeded
// math/rand generator; tests inject deterministic implementations.
package sim

import (
	"math/rand"
	"sync"
	"time"
)

// Clock returns the current time. Injectable for deterministic testing of
// cache aging, ETAs and quote validity windows.
type Clock interface {
	Now() time.Time
}

// Rand is the randomness contract for price jitter, ETA perturbation, latency
// simulation and overload injection.
type Rand interface {
	// Float64 returns a uniform value in [0,1).
	Float64() float64
	// Intn returns a uniform value in [0,n).
	Intn(n int) int
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// LockedRand wraps a math/rand source behind a mutex so concurrent request
// handlers can share one generator.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand creates a shared generator from the given seed.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// FixedClock always reports the same instant. Test helper.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a clock pinned at t.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{t: t} }

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the fixed clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
