package circuitbreaker

import "sync"

// Registry owns the breakers for a set of resources, creating each one
// lazily on first use. It is an explicit handle passed into call sites, not
// ambient state, so tests and independent engines get isolated breakers.
type Registry struct {
	mu       sync.Mutex
	settings Settings
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a Registry whose breakers share the given settings.
func NewRegistry(settings Settings) *Registry {
	return &Registry{
		settings: settings.withDefaults(),
		breakers: make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker for resource, creating it on first use. Exactly
// one breaker exists per resource identifier for the registry's lifetime.
func (r *Registry) For(resource string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[resource]
	if !ok {
		cb = New(resource, r.settings)
		r.breakers[resource] = cb
	}
	return cb
}

// Reset forces the named resource's breaker back to Closed. Returns false
// if no breaker exists for that resource yet.
func (r *Registry) Reset(resource string) bool {
	r.mu.Lock()
	cb, ok := r.breakers[resource]
	r.mu.Unlock()

	if ok {
		cb.Reset()
	}
	return ok
}

// ResetAll forces every known breaker back to Closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}

// Snapshot returns a point-in-time view of every breaker, keyed by resource.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	out := make(map[string]Snapshot, len(breakers))
	for _, cb := range breakers {
		out[cb.Resource()] = cb.Snapshot()
	}
	return out
}
