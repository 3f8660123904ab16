package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStableForIdenticalParameters(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	start, end := int64(100), int64(200)
	k1 := c.Key("query", 5, &start, &end)
	k2 := c.Key("query", 5, &start, &end)
	assert.Equal(t, k1, k2)
}

func TestKeyDiffersOnTopKOrTimeBounds(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	k1 := c.Key("query", 5, nil, nil)
	k2 := c.Key("query", 6, nil, nil)
	assert.NotEqual(t, k1, k2)

	start := int64(1)
	k3 := c.Key("query", 5, &start, nil)
	assert.NotEqual(t, k1, k3)
}

func TestGetPutRoundTrip(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	key := c.Key("q", 1, nil, nil)
	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, []int{1, 2, 3})
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v)
}

func TestPutEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := NewRetrievalCache(2, 0)
	k1, k2, k3 := c.Key("a", 1, nil, nil), c.Key("b", 1, nil, nil), c.Key("c", 1, nil, nil)
	c.Put(k1, "a")
	c.Put(k2, "b")
	c.Get(k1) // k1 now most-recently-used, k2 becomes the eviction target
	c.Put(k3, "c")

	_, ok := c.Get(k2)
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
}

func TestClearEmptiesCache(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	key := c.Key("q", 1, nil, nil)
	c.Put(key, "v")
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestSetEnabledFalseClearsAndDisablesCache(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	key := c.Key("q", 1, nil, nil)
	c.Put(key, "v")
	c.SetEnabled(false)
	_, ok := c.Get(key)
	assert.False(t, ok)

	c.SetEnabled(true)
	c.Put(key, "v")
	_, ok = c.Get(key)
	assert.True(t, ok)
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	key := c.Key("q", 1, nil, nil)
	c.Get(key) // miss
	c.Put(key, "v")
	c.Get(key) // hit

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestExpiredEntryIsEvictedOnGet(t *testing.T) {
	c := NewRetrievalCache(10, time.Millisecond)
	key := c.Key("q", 1, nil, nil)
	c.Put(key, "v")
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}
