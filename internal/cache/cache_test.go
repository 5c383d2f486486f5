package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(4, time.Minute)

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set("a", 1)
	value, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, value)

	c.Set("a", 2)
	value, ok = c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, value)
	require.Equal(t, 1, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c := New(3, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)
	require.Equal(t, 3, c.Len())

	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("d")
	require.True(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := New(4, time.Minute)
	c.Clock = func() time.Time { return now }

	c.Set("a", 1)
	c.SetTTL("b", 2, 10*time.Minute)

	now = now.Add(2 * time.Minute)

	_, ok := c.Get("a")
	require.False(t, ok)

	value, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, value)
}

func TestCleanup(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := New(8, time.Minute)
	c.Clock = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	c.SetTTL("c", 3, time.Hour)

	now = now.Add(5 * time.Minute)

	removed := c.Cleanup()
	require.Equal(t, 2, removed)
	require.Equal(t, 1, c.Len())

	_, ok := c.Get("c")
	require.True(t, ok)
}

func TestDelete(t *testing.T) {
	c := New(4, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("never-set")

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}
