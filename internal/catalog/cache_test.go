package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetPut(t *testing.T) {
	c := NewCache(30 * time.Second)

	_, ok := c.Get("tables")
	assert.False(t, ok, "empty cache should miss")

	c.Put("tables", []string{"Mesa 1"})
	v, ok := c.Get("tables")
	assert.True(t, ok)
	assert.Equal(t, []string{"Mesa 1"}, v)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Now()
	c := NewCache(30 * time.Second)
	c.now = func() time.Time { return now }

	c.Put("products", 42)

	now = now.Add(29 * time.Second)
	_, ok := c.Get("products")
	assert.True(t, ok, "entry within TTL should hit")

	now = now.Add(2 * time.Second)
	_, ok = c.Get("products")
	assert.False(t, ok, "entry past TTL should miss")
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("tables", 1)
	c.Put("products", 2)

	c.Invalidate()

	_, ok := c.Get("tables")
	assert.False(t, ok)
	_, ok = c.Get("products")
	assert.False(t, ok)
}
