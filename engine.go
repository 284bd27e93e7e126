// Package researchgw provides a resilience and provider-arbitration layer
// for research workloads built on unreliable external services: a TTL+LRU
// result cache, retry with exponential backoff, per-resource circuit
// breakers, priority-ordered provider fallback, and weighted confidence
// scoring for every result.
//
// The Engine type is the main entry point: create one with New from a
// Config and a provider registry, fetch cached data with Fetch, and run
// computation-backend requests with Complete. Each result carries a typed
// envelope with its source and a confidence assessment.
package researchgw

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight-labs/research-gateway/confidence"
	"github.com/finsight-labs/research-gateway/internal/cache"
	"github.com/finsight-labs/research-gateway/internal/chain"
	"github.com/finsight-labs/research-gateway/internal/circuitbreaker"
	"github.com/finsight-labs/research-gateway/internal/history"
	"github.com/finsight-labs/research-gateway/internal/logging"
	"github.com/finsight-labs/research-gateway/internal/metrics"
	"github.com/finsight-labs/research-gateway/internal/retry"
	"github.com/finsight-labs/research-gateway/providers"
)

// Result is the typed envelope returned by every engine operation. Value
// holds the raw payload; Source says where it came from ("cache" or the
// resource/provider that produced it).
type Result struct {
	Value      any                `json:"value"`
	Source     string             `json:"source"`
	Provider   string             `json:"provider,omitempty"`
	Cached     bool               `json:"cached"`
	Attempts   int                `json:"attempts"`
	Confidence *confidence.Result `json:"confidence,omitempty"`
	// Age and TTL describe a cache hit's position in its freshness window;
	// zero on a fresh fetch.
	Age time.Duration `json:"age,omitempty"`
	TTL time.Duration `json:"ttl,omitempty"`
}

// Signals derives the confidence signals a cached or fetched value
// contributes when it feeds a later Complete call.
func (r *Result) Signals() confidence.Signals {
	return confidence.Signals{CacheHit: r.Cached, Age: r.Age, TTL: r.TTL}
}

// Engine owns the shared resilience state: one cache store, one breaker
// registry, and one provider chain, all safe for concurrent use. It never
// renders or persists results itself; history recording happens through the
// History() collaborator when configured.
type Engine struct {
	cfg      Config
	cache    *cache.Store[any]
	breakers *circuitbreaker.Registry
	chain    *chain.Chain
	history  *history.Store
	policy   retry.Policy
}

// New builds an Engine from cfg, resolving each configured provider target
// from the registry. Providers are resolved once here; availability
// afterwards is governed only by their circuit breakers.
func New(cfg Config, registry *providers.Registry) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	breakers := circuitbreaker.NewRegistry(circuitbreaker.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		Timeout:          time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
	})
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.Attempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		Jitter:      true,
	}

	targets := make([]chain.Target, 0, len(cfg.Providers))
	for _, t := range cfg.Providers {
		p, ok := registry.Get(t.ID)
		if !ok {
			return nil, fmt.Errorf("provider %q is configured but not registered", t.ID)
		}
		targets = append(targets, chain.Target{Provider: p, Priority: t.Priority})
	}
	c, err := chain.New(targets, breakers, policy)
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		cfg:      cfg,
		cache:    cache.New[any](cfg.Cache.Capacity),
		breakers: breakers,
		chain:    c,
		policy:   policy,
	}

	if cfg.History.DSN != "" {
		switch cfg.History.Driver {
		case "postgres":
			eng.history, err = history.NewPostgres(cfg.History.DSN)
		default:
			eng.history, err = history.NewSQLite(cfg.History.DSN)
		}
		if err != nil {
			return nil, fmt.Errorf("opening history store: %w", err)
		}
	}

	return eng, nil
}

// Breakers exposes the shared breaker registry for health reporting and
// operator tooling.
func (e *Engine) Breakers() *circuitbreaker.Registry { return e.breakers }

// Chain exposes the provider chain for health reporting.
func (e *Engine) Chain() *chain.Chain { return e.chain }

// History returns the configured history store, or nil when history
// recording is disabled.
func (e *Engine) History() *history.Store { return e.history }

// CacheLen reports the current number of cached entries.
func (e *Engine) CacheLen() int { return e.cache.Len() }

// Invalidate drops one cached key.
func (e *Engine) Invalidate(key string) { e.cache.Invalidate(key) }

// Close releases engine-owned resources.
func (e *Engine) Close() error {
	if e.history != nil {
		return e.history.Close()
	}
	return nil
}

// Fetch returns the cached value for key, or runs fn to produce it. Misses
// go through the retry policy with every attempt guarded by the breaker for
// resource; the fresh value is cached under ttl. fn's errors should be
// classified with the faults package so transient failures are retried.
func (e *Engine) Fetch(ctx context.Context, resource, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (*Result, error) {
	log := logging.FromContext(ctx)
	breaker := e.breakers.For(resource)
	attempts := 0

	v, hit, err := cache.Through(ctx, e.cache, key, ttl, func(ctx context.Context) (any, error) {
		return retry.Do(ctx, e.policy, func(ctx context.Context) (any, error) {
			if !breaker.Allow() {
				return nil, circuitbreaker.ErrCircuitOpen
			}
			attempts++
			if attempts > 1 {
				metrics.FetchRetries.WithLabelValues(resource).Inc()
			}
			v, err := fn(ctx)
			if err != nil {
				breaker.RecordFailure()
				return nil, err
			}
			breaker.RecordSuccess()
			return v, nil
		})
	})
	if hit {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		log.Debug("cache hit", "key", key)
		age, entryTTL, _ := e.cache.Age(key)
		return &Result{Value: v, Source: "cache", Cached: true, Age: age, TTL: entryTTL}, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()
	metrics.CircuitBreakerState.WithLabelValues(resource).Set(float64(breaker.State()))
	if err != nil {
		log.Warn("fetch failed", "resource", resource, "key", key, "error", err)
		return nil, err
	}
	return &Result{Value: v, Source: resource, Attempts: attempts}, nil
}

// Complete routes req through the provider chain and scores the result.
// sig carries cache-derived evidence about the request's input data (use
// Result.Signals from a prior Fetch, or the zero value when the input is
// fresh); the chain fills in the provider and retry signals itself.
// domainFactors carry the caller's domain evidence and must weigh
// confidence.DomainWeight in total.
func (e *Engine) Complete(ctx context.Context, req providers.Request, sig confidence.Signals, domainFactors ...confidence.Factor) (*Result, error) {
	out, err := e.chain.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	sig.ProviderRank = out.Rank
	sig.ProviderCount = e.chain.Len()
	sig.Attempts = out.Attempts
	sig.MaxAttempts = e.policy.MaxAttempts
	factors := confidence.TransportFactors(sig)
	factors = append(factors, domainFactors...)
	conf, err := confidence.Score(factors)
	if err != nil {
		return nil, fmt.Errorf("scoring result from %s: %w", out.ProviderID, err)
	}
	metrics.ConfidenceLevels.WithLabelValues(string(conf.Level)).Inc()

	return &Result{
		Value:      out.Response,
		Source:     out.ProviderID,
		Provider:   out.ProviderID,
		Attempts:   out.Attempts,
		Confidence: conf,
	}, nil
}
