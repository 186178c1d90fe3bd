package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	if _, ok := c.Get("missing"); ok {
		t.Error("expected a miss on an empty cache")
	}
	c.Put("k1", "v1")
	c.Put("k2", "v2")
	c.Put("k1", "v3")

	if v, ok := c.Get("k1"); !ok || v != "v3" {
		t.Errorf("expected v3, got %q (%v)", v, ok)
	}
	if v, ok := c.Get("k2"); !ok || v != "v2" {
		t.Errorf("expected v2, got %q (%v)", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestRedisCache(t *testing.T) {
	s := miniredis.RunT(t)
	c := NewRedisCache(s.Addr())
	defer c.Close()

	if _, ok := c.Get("missing"); ok {
		t.Error("expected a miss on an empty cache")
	}
	c.Put("k1", `{"error":"","tactic_state":"no goals"}`)
	v, ok := c.Get("k1")
	if !ok || v != `{"error":"","tactic_state":"no goals"}` {
		t.Errorf("expected the stored reply, got %q (%v)", v, ok)
	}
	if !s.Exists("leangym:k1") {
		t.Error("keys must carry the leangym prefix")
	}

	// entries expire
	s.FastForward(25 * time.Hour)
	if _, ok := c.Get("k1"); ok {
		t.Error("expected the entry to expire after the ttl")
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	c := NewRedisCache("localhost:1")
	defer c.Close()
	// an unreachable server degrades to a miss
	if _, ok := c.Get("k1"); ok {
		t.Error("expected a miss when the server is unreachable")
	}
	c.Put("k1", "v1")
}
