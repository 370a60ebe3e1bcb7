package statecache

import (
	"net/url"
	"sync"
	"testing"
)

func u(t *testing.T, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

func TestFragmentIgnored(t *testing.T) {
	c := New()
	c.Set(u(t, "https://example.com/blog/1#intro"), map[string]any{"id": "1"})

	state, ok := c.Get(u(t, "https://example.com/blog/1"))
	if !ok {
		t.Fatal("expected hit for URL without fragment")
	}
	if state.(map[string]any)["id"] != "1" {
		t.Errorf("state = %v", state)
	}
	if !c.Has(u(t, "https://example.com/blog/1#other")) {
		t.Error("Has should ignore fragment")
	}
	if c.Has(u(t, "https://example.com/blog/1?x=1")) {
		t.Error("query must be part of the key")
	}
}

func TestNilStateIsCached(t *testing.T) {
	c := New()
	c.Set(u(t, "/a"), nil)
	if _, ok := c.Get(u(t, "/a")); !ok {
		t.Error("nil state should still be a hit")
	}
}

func TestClearAndStats(t *testing.T) {
	c := New()
	c.Set(u(t, "/a"), 1.0)
	c.Set(u(t, "/b"), 2.0)
	c.Get(u(t, "/a"))
	c.Get(u(t, "/missing"))

	s := c.Stats()
	if s.Entries != 2 || s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats = %+v", s)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	key := u(t, "/shared")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(key, float64(i))
			c.Get(key)
		}(i)
	}
	wg.Wait()
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
