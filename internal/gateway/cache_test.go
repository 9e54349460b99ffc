package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_ExpiredEntriesArePrunedOnRead(t *testing.T) {
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	c := NewResponseCache(WithCacheClock(func() time.Time { return now }))

	c.Set("GET /a", CachedResponse{Status: 200, Body: []byte("a")}, time.Minute)
	c.Set("GET /b", CachedResponse{Status: 200, Body: []byte("b")}, time.Hour)
	c.Set("GET /zero", CachedResponse{Status: 200}, 0)
	require.Equal(t, 2, c.Len())

	now = now.Add(time.Minute)
	_, ok := c.Get("GET /a")
	assert.False(t, ok, "entry is expired exactly at its ttl")
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("GET /b")
	require.True(t, ok)
	assert.Equal(t, []byte("b"), got.Body)

	c.Delete("GET /b")
	assert.Equal(t, 0, c.Len())
}

func TestResponseCache_FillCoalescesErrors(t *testing.T) {
	c := NewResponseCache()
	calls := 0
	_, shared, err := c.fill("k", func() (CachedResponse, error) {
		calls++
		return CachedResponse{}, errTimeout
	})
	assert.ErrorIs(t, err, errTimeout)
	assert.False(t, shared)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, c.Len())
}
