package iptv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetMissBeforeSet(t *testing.T) {
	c := NewCache()
	_, ok := c.Get(3, 12, "http://host", time.Now())
	assert.False(t, ok)
}

func TestCacheHitWithinTTL(t *testing.T) {
	c := NewCache()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	c.Set(3, 12, "http://host", []byte("doc"), now)

	data, ok := c.Get(3, 12, "http://host", now.Add(CacheTTL-time.Second))
	assert.True(t, ok)
	assert.Equal(t, []byte("doc"), data)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c := NewCache()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	c.Set(3, 12, "http://host", []byte("doc"), now)

	_, ok := c.Get(3, 12, "http://host", now.Add(CacheTTL+time.Second))
	assert.False(t, ok)
}

func TestCacheKeyIncludesChannelCountHoursAndBaseURL(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.Set(3, 12, "http://host", []byte("doc"), now)

	_, ok := c.Get(4, 12, "http://host", now)
	assert.False(t, ok)
	_, ok = c.Get(3, 24, "http://host", now)
	assert.False(t, ok)
	_, ok = c.Get(3, 12, "http://other", now)
	assert.False(t, ok)
}
