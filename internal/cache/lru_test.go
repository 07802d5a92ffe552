package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUOverwrite(t *testing.T) {
	c := NewLRUCache[string](2, 0)
	c.Set("k", "one")
	c.Set("k", "two")
	v, _ := c.Get("k")
	assert.Equal(t, "two", v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(30 * time.Second)
	c.Set("c", 3)

	now = now.Add(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired(), "b expired, c still live")
	assert.Equal(t, 1, c.Size())
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](4, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Equal(t, 0, c.Size())
	c.Set("a", 1)
	assert.Equal(t, 1, c.Size())
}

func TestManagerStop(t *testing.T) {
	c := NewLRUCache[int](4, time.Nanosecond)
	c.Set("a", 1)
	m := NewManager()
	m.Register(c)
	m.StartCleanup(time.Millisecond)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, time.Millisecond)
	m.Stop()
}
