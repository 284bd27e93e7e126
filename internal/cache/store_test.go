package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	s := New[string](10)
	if err := s.Set("quote:AAPL", "189.42", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := s.Get("quote:AAPL")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "189.42" {
		t.Errorf("expected 189.42, got %s", got)
	}
}

func TestMiss(t *testing.T) {
	s := New[string](10)
	if _, ok := s.Get("missing"); ok {
		t.Error("expected cache miss")
	}
}

func TestInvalidTTL(t *testing.T) {
	s := New[string](10)
	if err := s.Set("k", "v", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("expected ErrInvalidTTL for ttl=0, got %v", err)
	}
	if err := s.Set("k", "v", -time.Second); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("expected ErrInvalidTTL for negative ttl, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("rejected Set must not store, len=%d", s.Len())
	}
}

func TestTTLExpiration(t *testing.T) {
	s := New[string](10)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	_ = s.Set("k", "v", 30*time.Second)

	now = now.Add(29 * time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(time.Second) // exactly expiresAt: entry must be gone
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss at expiry boundary")
	}
	if s.Len() != 0 {
		t.Errorf("expired entry should be evicted on lookup, len=%d", s.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	s := New[string](2)
	_ = s.Set("a", "1", time.Minute)
	_ = s.Set("b", "2", time.Minute)
	_ = s.Set("c", "3", time.Minute) // evicts "a"

	if _, ok := s.Get("a"); ok {
		t.Error("expected 'a' to be evicted")
	}
	if _, ok := s.Get("b"); !ok {
		t.Error("expected 'b' to be present")
	}
	if _, ok := s.Get("c"); !ok {
		t.Error("expected 'c' to be present")
	}
	if s.Len() != 2 {
		t.Errorf("capacity exceeded: len=%d", s.Len())
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	s := New[string](2)
	_ = s.Set("a", "1", time.Minute)
	_ = s.Set("b", "2", time.Minute)
	s.Get("a")                       // "b" is now least recently used
	_ = s.Set("c", "3", time.Minute) // evicts "b"

	if _, ok := s.Get("b"); ok {
		t.Error("expected 'b' to be evicted after 'a' was read")
	}
	if _, ok := s.Get("a"); !ok {
		t.Error("expected 'a' to survive")
	}
}

func TestSetExistingUpdatesTTLAndRecency(t *testing.T) {
	s := New[string](2)
	_ = s.Set("a", "1", time.Minute)
	_ = s.Set("b", "2", time.Minute)
	_ = s.Set("a", "1b", time.Minute) // rewrite, "b" becomes LRU
	_ = s.Set("c", "3", time.Minute)

	if v, ok := s.Get("a"); !ok || v != "1b" {
		t.Errorf("expected updated 'a', got %q ok=%v", v, ok)
	}
	if _, ok := s.Get("b"); ok {
		t.Error("expected 'b' evicted")
	}
}

func TestInvalidate(t *testing.T) {
	s := New[string](10)
	_ = s.Set("k", "v", time.Minute)
	s.Invalidate("k")
	if _, ok := s.Get("k"); ok {
		t.Error("expected miss after Invalidate")
	}
	if s.Len() != 0 {
		t.Errorf("len=%d after Invalidate", s.Len())
	}
}

func TestAge(t *testing.T) {
	s := New[string](10)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	_ = s.Set("k", "v", time.Minute)
	now = now.Add(15 * time.Second)

	age, ttl, ok := s.Age("k")
	if !ok {
		t.Fatal("expected Age to find entry")
	}
	if age != 15*time.Second || ttl != time.Minute {
		t.Errorf("age=%v ttl=%v", age, ttl)
	}

	now = now.Add(time.Minute)
	if _, _, ok := s.Age("k"); ok {
		t.Error("expected Age miss after expiry")
	}
}

func TestThrough(t *testing.T) {
	s := New[int](10)
	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, hit, err := Through(context.Background(), s, "k", time.Minute, fetch)
	if err != nil || hit || v != 42 {
		t.Fatalf("first call: v=%d hit=%v err=%v", v, hit, err)
	}
	v, hit, err = Through(context.Background(), s, "k", time.Minute, fetch)
	if err != nil || !hit || v != 42 {
		t.Fatalf("second call: v=%d hit=%v err=%v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestThroughFetchError(t *testing.T) {
	s := New[int](10)
	boom := errors.New("upstream down")
	_, _, err := Through(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("failed fetch must not populate the store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New[int](50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (n+j)%26))
				_ = s.Set(key, j, time.Minute)
				s.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if s.Len() > 50 {
		t.Errorf("capacity invariant broken: len=%d", s.Len())
	}
}
