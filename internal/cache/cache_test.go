package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-build/procurement-api/internal/sim"
)

func testParams() Params {
	return Params{
		Operation:    "search",
		Material:     "cement",
		Latitude:     17.3352,
		Longitude:    78.4537,
		QuantityTons: 50,
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := testParams().Key()
	b := testParams().Key()

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestKeyRoundsCoordinates(t *testing.T) {
	base := testParams()

	nearby := base
	nearby.Latitude = 17.33521
	nearby.Longitude = 78.45369
	assert.Equal(t, base.Key(), nearby.Key(), "sub-4dp coordinate noise should share a key")

	moved := base
	moved.Latitude = 17.3452
	assert.NotEqual(t, base.Key(), moved.Key())
}

func TestKeyVariesByField(t *testing.T) {
	base := testParams()

	otherOp := base
	otherOp.Operation = "quote"
	assert.NotEqual(t, base.Key(), otherOp.Key())

	otherMaterial := base
	otherMaterial.Material = "sand"
	assert.NotEqual(t, base.Key(), otherMaterial.Key())

	otherQty := base
	otherQty.QuantityTons = 51
	assert.NotEqual(t, base.Key(), otherQty.Key())
}

func TestSetGet(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(24*time.Hour, clock)

	c.Set(testParams(), "payload-1", 0)

	hit, ok := c.Get(testParams())
	require.True(t, ok)
	assert.Equal(t, "payload-1", hit.Payload)
	assert.Equal(t, 0, hit.AgeSeconds)
}

func TestGetReportsAge(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(24*time.Hour, clock)

	c.Set(testParams(), "payload-1", 0)
	clock.Advance(90 * time.Second)

	hit, ok := c.Get(testParams())
	require.True(t, ok)
	assert.Equal(t, 90, hit.AgeSeconds)
}

func TestExpiryEvictsOnRead(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(24*time.Hour, clock)

	c.Set(testParams(), "payload-1", time.Hour)
	clock.Advance(time.Hour + time.Second)

	_, ok := c.Get(testParams())
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, 0, stats.TotalEntries, "expired entry should be evicted, not skipped")
}

func TestSetOverwrites(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(24*time.Hour, clock)

	c.Set(testParams(), "old", 0)
	clock.Advance(time.Minute)
	c.Set(testParams(), "new", 0)

	hit, ok := c.Get(testParams())
	require.True(t, ok)
	assert.Equal(t, "new", hit.Payload)
	assert.Equal(t, 0, hit.AgeSeconds, "overwrite should reset entry age")
}

func TestDeleteAndClear(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(24*time.Hour, clock)

	other := testParams()
	other.Material = "sand"

	c.Set(testParams(), "a", 0)
	c.Set(other, "b", 0)

	c.Delete(testParams())
	_, ok := c.Get(testParams())
	assert.False(t, ok)
	_, ok = c.Get(other)
	assert.True(t, ok)

	c.Clear()
	_, ok = c.Get(other)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(12*time.Hour, clock)

	short := testParams()
	long := testParams()
	long.Material = "gravel"

	c.Set(short, "a", time.Hour)
	c.Set(long, "b", 48*time.Hour)
	clock.Advance(2 * time.Hour)

	stats := c.GetStats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.ActiveEntries)
	assert.Equal(t, 1, stats.ExpiredEntries)
	assert.Equal(t, 12.0, stats.TTLHours)
}

func TestDefaultTTLFallback(t *testing.T) {
	clock := sim.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(-1, clock)

	assert.Equal(t, 24.0, c.GetStats().TTLHours)
}
