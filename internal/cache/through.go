package cache

import (
	"context"
	"time"
)

// FetchFunc produces a fresh value for a cache key.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Through is the cache-lookup-then-fetch composition: return the cached
// value on a hit, otherwise run fetch and store its result under key for
// ttl. The bool reports whether the value came from the cache. A fetch
// error is returned as-is and nothing is stored.
func Through[V any](ctx context.Context, s *Store[V], key string, ttl time.Duration, fetch FetchFunc[V]) (V, bool, error) {
	if v, ok := s.Get(key); ok {
		return v, true, nil
	}

	var zero V
	v, err := fetch(ctx)
	if err != nil {
		return zero, false, err
	}
	if err := s.Set(key, v, ttl); err != nil {
		return zero, false, err
	}
	return v, false, nil
}
