package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("terminal-1", "value1")
	val, ok := c.Get("terminal-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_GetOrCreate(t *testing.T) {
	c := cache.New[*int](5 * time.Minute)

	created := 0
	create := func() *int {
		created++
		v := created
		return &v
	}

	first := c.GetOrCreate("terminal-1", create)
	second := c.GetOrCreate("terminal-1", create)

	if first != second {
		t.Error("expected the same entry on second call")
	}
	if created != 1 {
		t.Errorf("expected create to run once, ran %d times", created)
	}
}

func TestCache_GetOrCreateReplacesExpired(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "stale")
	time.Sleep(100 * time.Millisecond)

	got := c.GetOrCreate("key1", func() string { return "fresh" })
	if got != "fresh" {
		t.Errorf("expected 'fresh', got '%s'", got)
	}
}
