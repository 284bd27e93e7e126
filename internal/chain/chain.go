// Package chain implements ordered failover across interchangeable
// computation backends. Providers are tried strictly in ascending priority
// order; each is guarded by its own circuit breaker and retried on
// transient errors before the chain moves on. Priority encodes a stable
// cost/quality preference, while the breaker provides short-term adaptation
// to outages: when its timeout lapses the provider is tried again at its
// original rank.
package chain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finsight-labs/research-gateway/internal/circuitbreaker"
	"github.com/finsight-labs/research-gateway/internal/logging"
	"github.com/finsight-labs/research-gateway/internal/metrics"
	"github.com/finsight-labs/research-gateway/internal/retry"
	"github.com/finsight-labs/research-gateway/providers"
)

// Target binds a provider to its chain priority. Lower priority is tried
// first.
type Target struct {
	Provider providers.Provider
	Priority int
}

// Record tracks one provider's slot in the chain together with its usage
// statistics. Stats are best-effort bookkeeping guarded by the record's own
// mutex, independent of breaker state.
type Record struct {
	id       string
	priority int
	provider providers.Provider
	breaker  *circuitbreaker.CircuitBreaker

	mu           sync.Mutex
	attempts     int64
	successes    int64
	failures     int64
	totalLatency time.Duration
}

func (r *Record) recordAttempt(latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	r.totalLatency += latency
	if err != nil {
		r.failures++
	} else {
		r.successes++
	}
}

// Stats is a point-in-time view of one provider's usage.
type Stats struct {
	ID           string        `json:"id"`
	Priority     int           `json:"priority"`
	Attempts     int64         `json:"attempts"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	SuccessRate  float64       `json:"success_rate"`
	AvgLatency   time.Duration `json:"avg_latency"`
	BreakerState string        `json:"breaker_state"`
}

func (r *Record) stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		ID:           r.id,
		Priority:     r.priority,
		Attempts:     r.attempts,
		Successes:    r.successes,
		Failures:     r.failures,
		BreakerState: r.breaker.State().String(),
	}
	if r.attempts > 0 {
		s.SuccessRate = float64(r.successes) / float64(r.attempts)
		s.AvgLatency = r.totalLatency / time.Duration(r.attempts)
	}
	return s
}

// Outcome reports a successful chain invocation.
type Outcome struct {
	Response *providers.Response
	// ProviderID identifies the backend that served the request.
	ProviderID string
	// Rank is the 1-based chain position of the serving provider.
	Rank int
	// Attempts is the number of invocations made against the serving
	// provider (1 when it succeeded first try).
	Attempts int
}

// Failure records why one provider could not serve a request.
type Failure struct {
	ProviderID string
	Err        error
}

// ExhaustedError aggregates every provider's failure reason when the whole
// chain is exhausted. Partial failures are never surfaced as errors; this
// is only returned when no provider succeeded.
type ExhaustedError struct {
	Failures []Failure
}

// Error implements the error interface, enumerating per-provider reasons.
func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("all providers exhausted:")
	for _, f := range e.Failures {
		fmt.Fprintf(&b, " %s: %v;", f.ProviderID, f.Err)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// Chain is an ordered sequence of provider records. Order is fixed at
// construction and never changes at runtime; selection adapts only through
// breaker state.
type Chain struct {
	records []*Record
	policy  retry.Policy
}

// New builds a Chain from targets, sorted once by ascending priority.
// Breakers come from the shared registry, keyed by provider name; policy
// governs per-provider retries on transient errors.
func New(targets []Target, breakers *circuitbreaker.Registry, policy retry.Policy) (*Chain, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("chain: at least one provider is required")
	}

	records := make([]*Record, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		id := t.Provider.Name()
		if seen[id] {
			return nil, fmt.Errorf("chain: duplicate provider %q", id)
		}
		seen[id] = true
		records = append(records, &Record{
			id:       id,
			priority: t.Priority,
			provider: t.Provider,
			breaker:  breakers.For(id),
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].priority < records[j].priority
	})

	return &Chain{records: records, policy: policy}, nil
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int { return len(c.records) }

// Invoke attempts each provider in priority order until one succeeds.
// Providers with an open breaker are skipped as instant failures. When
// every provider fails, the aggregate *ExhaustedError enumerates each
// provider's reason.
func (c *Chain) Invoke(ctx context.Context, req providers.Request) (*Outcome, error) {
	log := logging.FromContext(ctx)

	var failures []Failure
	for rank, rec := range c.records {
		if !rec.breaker.Allow() {
			rec.recordAttempt(0, circuitbreaker.ErrCircuitOpen)
			metrics.ProviderRequests.WithLabelValues(rec.id, "circuit_open").Inc()
			updateBreakerGauge(rec)
			log.Warn("provider skipped, circuit open", "provider", rec.id)
			failures = append(failures, Failure{ProviderID: rec.id, Err: circuitbreaker.ErrCircuitOpen})
			continue
		}

		attempts := 0
		resp, err := retry.Do(ctx, c.policy, func(ctx context.Context) (*providers.Response, error) {
			if !rec.breaker.Allow() {
				return nil, circuitbreaker.ErrCircuitOpen
			}
			attempts++
			if attempts > 1 {
				metrics.FetchRetries.WithLabelValues(rec.id).Inc()
			}

			start := time.Now()
			resp, err := rec.provider.Complete(ctx, req)
			latency := time.Since(start)

			rec.recordAttempt(latency, err)
			metrics.ProviderLatency.WithLabelValues(rec.id).Observe(latency.Seconds())
			if err != nil {
				rec.breaker.RecordFailure()
				metrics.ProviderRequests.WithLabelValues(rec.id, "error").Inc()
			} else {
				rec.breaker.RecordSuccess()
				metrics.ProviderRequests.WithLabelValues(rec.id, "success").Inc()
			}
			updateBreakerGauge(rec)
			return resp, err
		})
		if err == nil {
			log.Info("provider served request", "provider", rec.id, "rank", rank+1, "attempts", attempts)
			return &Outcome{
				Response:   resp,
				ProviderID: rec.id,
				Rank:       rank + 1,
				Attempts:   attempts,
			}, nil
		}

		log.Warn("provider failed, falling back", "provider", rec.id, "error", err)
		failures = append(failures, Failure{ProviderID: rec.id, Err: err})

		// A dead context will fail every remaining provider the same way.
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &ExhaustedError{Failures: failures}
}

// Stats returns a snapshot of every provider record in chain order.
func (c *Chain) Stats() []Stats {
	out := make([]Stats, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.stats()
	}
	return out
}

func updateBreakerGauge(rec *Record) {
	metrics.CircuitBreakerState.WithLabelValues(rec.id).Set(float64(rec.breaker.State()))
}
