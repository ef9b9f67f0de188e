package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualNow struct{ t time.Time }

func (m *manualNow) now() time.Time { return m.t }

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](10, 0, nil)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_expires_after_ttl(t *testing.T) {
	clock := &manualNow{t: time.Unix(1000, 0)}
	c := New[string, string](10, time.Minute, clock.now)

	c.Set("k", "v")

	clock.t = clock.t.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestCache_evicts_oldest_first_over_cap(t *testing.T) {
	clock := &manualNow{t: time.Unix(1000, 0)}
	c := New[string, int](3, 0, clock.now)

	for i, k := range []string{"a", "b", "c", "d", "e"} {
		clock.t = clock.t.Add(time.Second)
		c.Set(k, i)
	}

	assert.Equal(t, 3, c.Len())
	for _, k := range []string{"a", "b"} {
		_, ok := c.Get(k)
		assert.False(t, ok, "%s should have been evicted", k)
	}
	for _, k := range []string{"c", "d", "e"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should remain", k)
	}
}

func TestCache_Set_refreshes_insertion_time(t *testing.T) {
	clock := &manualNow{t: time.Unix(1000, 0)}
	c := New[string, int](2, 0, clock.now)

	c.Set("a", 1)
	clock.t = clock.t.Add(time.Second)
	c.Set("b", 2)
	clock.t = clock.t.Add(time.Second)
	c.Set("a", 3)
	clock.t = clock.t.Add(time.Second)
	c.Set("c", 4)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCache_Prune(t *testing.T) {
	clock := &manualNow{t: time.Unix(1000, 0)}
	c := New[int, int](0, time.Second, clock.now)

	c.Set(1, 1)
	c.Set(2, 2)
	clock.t = clock.t.Add(2 * time.Second)

	c.Prune()
	assert.Equal(t, 0, c.Len())
}
