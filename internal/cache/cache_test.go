package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestPutGet_Basic(t *testing.T) {
	c := New[string, int]("test", 10, time.Minute)
	c.Put("a", 1)

	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", got, ok)
	}
}

func TestGet_Miss(t *testing.T) {
	c := New[string, int]("test", 10, time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestPut_Overwrite(t *testing.T) {
	c := New[string, int]("test", 10, time.Minute)
	c.Put("k", 1)
	c.Put("k", 2)
	if got, _ := c.Get("k"); got != 2 {
		t.Errorf("expected overwritten value 2, got %d", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string, int]("test", 10, time.Minute)
	c.Put("k", 1)
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after Invalidate")
	}
}

func TestTTL_Expiration(t *testing.T) {
	c := New[string, int]("test", 10, 10*time.Millisecond)
	c.Put("k", 1)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	stats := c.Stats()
	if stats.Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", stats.Expirations)
	}
}

func TestPutTTL_NoExpiry(t *testing.T) {
	c := New[string, int]("test", 10, 10*time.Millisecond)
	c.PutTTL("k", 1, 0) // ttl <= 0 never expires
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry with ttl=0 must not expire")
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := New[string, int]("test", 3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	// Touch k0 so k1 becomes LRU.
	c.Get("k0")
	c.Put("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Error("expected LRU entry k1 to be evicted")
	}
	if _, ok := c.Get("k0"); !ok {
		t.Error("recently used k0 must survive eviction")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", c.Stats().Evictions)
	}
}

func TestCleanup_SweepsExpired(t *testing.T) {
	c := New[string, int]("test", 10, 5*time.Millisecond)
	c.Put("a", 1)
	c.Put("b", 2)
	c.PutTTL("keep", 3, time.Minute)
	time.Sleep(20 * time.Millisecond)

	removed := c.Cleanup()
	if removed != 2 {
		t.Errorf("expected 2 expired entries removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 surviving entry, got %d", c.Len())
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New[string, int]("test", 10, time.Minute)
	calls := 0
	compute := func() int { calls++; return 42 }

	if got := c.GetOrCompute("k", compute); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := c.GetOrCompute("k", compute); got != 42 {
		t.Fatalf("expected cached 42, got %d", got)
	}
	if calls != 1 {
		t.Errorf("expected compute called once, got %d", calls)
	}
}

func TestStats_HitRate(t *testing.T) {
	c := New[string, int]("test", 10, time.Minute)
	c.Put("k", 1)
	c.Get("k")
	c.Get("absent")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("expected 1 hit / 1 miss, got %d/%d", s.Hits, s.Misses)
	}
	if s.HitRate() != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", s.HitRate())
	}
}
