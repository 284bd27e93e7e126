// Package cache provides a bounded, thread-safe LRU store with per-entry
// TTL expiry. Freshness policy belongs to the caller: different key classes
// (live quotes vs. statement data) pass different TTLs, the store only
// enforces whatever it is given.
package cache

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrInvalidTTL is returned by Set when the supplied TTL is not positive.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// DefaultCapacity is used when a Store is created with capacity <= 0.
const DefaultCapacity = 100

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// Store is a thread-safe in-memory LRU cache with per-entry TTL expiration.
// Recency is tracked on both reads and writes; inserting past capacity
// evicts the least-recently-accessed entry regardless of its remaining TTL.
type Store[V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
	now       func() time.Time
}

// New creates a Store holding at most capacity entries.
func New[V any](capacity int) *Store[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store[V]{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

// Get returns the cached value for key, or false if missing or expired.
// An expired entry is evicted as a side effect of the lookup.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	elem, ok := s.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[V])
	if !s.now().Before(e.expiresAt) {
		s.removeElement(elem)
		return zero, false
	}

	s.evictList.MoveToFront(elem)
	return e.value, true
}

// Age returns how long ago the entry for key was stored, along with its
// total TTL. Used by callers deriving freshness signals; does not touch
// recency. Returns false for missing or expired entries.
func (s *Store[V]) Age(key string) (age, ttl time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, found := s.items[key]
	if !found {
		return 0, 0, false
	}
	e := elem.Value.(*entry[V])
	now := s.now()
	if !now.Before(e.expiresAt) {
		s.removeElement(elem)
		return 0, 0, false
	}
	return now.Sub(e.createdAt), e.expiresAt.Sub(e.createdAt), true
}

// Set stores value under key for the given TTL. A TTL <= 0 is a caller
// error and returns ErrInvalidTTL without modifying the store.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if elem, ok := s.items[key]; ok {
		s.evictList.MoveToFront(elem)
		e := elem.Value.(*entry[V])
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(ttl)
		return nil
	}

	for s.evictList.Len() >= s.capacity {
		s.removeOldest()
	}

	elem := s.evictList.PushFront(&entry[V]{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	})
	s.items[key] = elem
	return nil
}

// Invalidate removes an entry from the store.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		s.removeElement(elem)
	}
}

// Len returns the number of entries currently stored, including entries
// whose TTL has lapsed but which have not been touched since.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictList.Len()
}

// Clear removes all entries from the store.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*list.Element)
	s.evictList.Init()
}

func (s *Store[V]) removeOldest() {
	if elem := s.evictList.Back(); elem != nil {
		s.removeElement(elem)
	}
}

func (s *Store[V]) removeElement(elem *list.Element) {
	s.evictList.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(s.items, e.key)
}
