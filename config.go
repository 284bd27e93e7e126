package researchgw

import "time"

// Config holds the configuration for the research gateway.
type Config struct {
	// Listen is the address for the health/status server (e.g. ":8080").
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
	// Cache configures the shared result cache.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Breaker configures the per-resource circuit breakers.
	Breaker BreakerConfig `json:"breaker,omitempty" yaml:"breaker,omitempty"`
	// Retry configures the transient-failure retry policy.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// Providers is the ordered list of computation backends. Lower priority
	// is tried first.
	Providers []ProviderTarget `json:"providers" yaml:"providers"`
	// History configures the optional analysis-history store.
	History HistoryConfig `json:"history,omitempty" yaml:"history,omitempty"`
}

// CacheConfig bounds the result cache.
type CacheConfig struct {
	// Capacity is the maximum number of entries before LRU eviction.
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// BreakerConfig tunes the circuit breakers shared by every resource.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens a
	// circuit.
	FailureThreshold int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	// SuccessThreshold is the number of consecutive half-open successes
	// that closes it again.
	SuccessThreshold int `json:"success_threshold,omitempty" yaml:"success_threshold,omitempty"`
	// TimeoutSeconds is how long a circuit stays open before probing.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// RetryConfig tunes the retry policy applied to transient failures.
type RetryConfig struct {
	// Attempts is the total number of invocations, including the first.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	// BaseDelayMS seeds the exponential backoff schedule.
	BaseDelayMS int `json:"base_delay_ms,omitempty" yaml:"base_delay_ms,omitempty"`
	// MaxDelayMS caps the backoff between attempts.
	MaxDelayMS int `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
}

// ProviderTarget names one computation backend and its chain priority.
type ProviderTarget struct {
	// ID is the registered provider name (openai, anthropic, ollama, bedrock).
	ID string `json:"id" yaml:"id"`
	// Model overrides the provider's default model when set.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Priority orders the fallback chain; lower is tried first.
	Priority int `json:"priority" yaml:"priority"`
}

// HistoryConfig selects the analysis-history backend. An empty DSN disables
// history recording.
type HistoryConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// Defaults mirror the long-standing operational settings: a 100-entry
// cache, 3 attempts with 2s..10s backoff, and a 5/2/60s breaker.
const (
	DefaultListen           = ":8080"
	DefaultCacheCapacity    = 100
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultBreakerTimeout   = 60 * time.Second
	DefaultRetryAttempts    = 3
	DefaultRetryBaseDelay   = 2 * time.Second
	DefaultRetryMaxDelay    = 10 * time.Second
)

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = DefaultCacheCapacity
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if c.Breaker.SuccessThreshold <= 0 {
		c.Breaker.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Breaker.TimeoutSeconds <= 0 {
		c.Breaker.TimeoutSeconds = int(DefaultBreakerTimeout / time.Second)
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = int(DefaultRetryBaseDelay / time.Millisecond)
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = int(DefaultRetryMaxDelay / time.Millisecond)
	}
	if c.History.Driver == "" {
		c.History.Driver = "sqlite"
	}
	return c
}
