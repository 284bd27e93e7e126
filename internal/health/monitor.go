// Package health aggregates breaker states, provider statistics, and cache
// occupancy into a system health report, and serves it over HTTP for
// operators alongside the Prometheus metrics endpoint.
package health

import (
	"time"

	"github.com/finsight-labs/research-gateway/internal/chain"
	"github.com/finsight-labs/research-gateway/internal/circuitbreaker"
)

// Status is the coarse system state derived from component checks.
type Status string

// A single open breaker degrades the system; losing every computation
// backend makes it unhealthy.
const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Report is one health check result.
type Report struct {
	Status       Status                             `json:"status"`
	Timestamp    time.Time                          `json:"timestamp"`
	UptimeSecs   float64                            `json:"uptime_seconds"`
	OpenCircuits []string                           `json:"open_circuits,omitempty"`
	Providers    []chain.Stats                      `json:"providers"`
	Breakers     map[string]circuitbreaker.Snapshot `json:"breakers"`
	CacheEntries int                                `json:"cache_entries"`
}

// Monitor produces health reports for one engine's shared components.
type Monitor struct {
	start    time.Time
	chain    *chain.Chain
	breakers *circuitbreaker.Registry
	cacheLen func() int
}

// NewMonitor wires a Monitor to the engine's provider chain, breaker
// registry, and a cache-size probe.
func NewMonitor(c *chain.Chain, breakers *circuitbreaker.Registry, cacheLen func() int) *Monitor {
	if cacheLen == nil {
		cacheLen = func() int { return 0 }
	}
	return &Monitor{
		start:    time.Now(),
		chain:    c,
		breakers: breakers,
		cacheLen: cacheLen,
	}
}

// Check performs one health check.
func (m *Monitor) Check() Report {
	now := time.Now()
	providerStats := m.chain.Stats()
	breakers := m.breakers.Snapshot()

	var open []string
	openProviders := 0
	for _, snap := range breakers {
		if snap.State == circuitbreaker.StateOpen.String() {
			open = append(open, snap.Resource)
		}
	}
	for _, ps := range providerStats {
		if ps.BreakerState == circuitbreaker.StateOpen.String() {
			openProviders++
		}
	}

	status := StatusHealthy
	switch {
	case openProviders == len(providerStats) && len(providerStats) > 0:
		status = StatusUnhealthy
	case len(open) > 0:
		status = StatusDegraded
	}

	return Report{
		Status:       status,
		Timestamp:    now,
		UptimeSecs:   now.Sub(m.start).Seconds(),
		OpenCircuits: open,
		Providers:    providerStats,
		Breakers:     breakers,
		CacheEntries: m.cacheLen(),
	}
}
