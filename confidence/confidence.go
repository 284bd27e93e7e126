// Package confidence aggregates heterogeneous evidence signals into a
// single weighted trust score. Scoring is a pure function: identical
// factors always produce an identical Result.
package confidence

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Level buckets an overall score into a coarse trust band.
type Level string

// Band boundaries are inclusive on the lower bound.
const (
	LevelHigh     Level = "HIGH"     // overall >= 0.80
	LevelModerate Level = "MODERATE" // 0.60 <= overall < 0.80
	LevelLow      Level = "LOW"      // overall < 0.60
)

// ErrInvalidWeights is returned when factor weights do not sum to 1.0.
var ErrInvalidWeights = errors.New("confidence: factor weights must sum to 1.0")

// weightTolerance absorbs float accumulation error when validating weights.
const weightTolerance = 1e-6

// caveatThreshold: any factor scoring below this contributes a caveat.
const caveatThreshold = 0.5

// Factor is one piece of evidence: a named score in [0,1] and the weight
// it carries in the overall aggregate.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"`
}

// Result is the trust assessment attached to a result envelope.
type Result struct {
	Overall float64  `json:"overall"`
	Level   Level    `json:"level"`
	Factors []Factor `json:"factors"`
	Caveats []string `json:"caveats,omitempty"`
}

// Score validates the factors and computes the weighted overall score,
// its level, and the caveat set. Factor order is preserved in the result;
// caveats are deduplicated and sorted. Weak factors always surface as
// caveats, even when the overall confidence is high.
func Score(factors []Factor) (*Result, error) {
	var sum float64
	for _, f := range factors {
		if f.Weight < 0 || f.Weight > 1 {
			return nil, fmt.Errorf("%w: factor %q has weight %v", ErrInvalidWeights, f.Name, f.Weight)
		}
		sum += f.Weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidWeights, sum)
	}

	var overall float64
	caveatSet := make(map[string]struct{})
	for _, f := range factors {
		overall += f.Weight * clamp01(f.Score)
		if f.Score < caveatThreshold {
			caveatSet[f.Name] = struct{}{}
		}
	}
	overall = clamp01(overall)

	caveats := make([]string, 0, len(caveatSet))
	for name := range caveatSet {
		caveats = append(caveats, name)
	}
	slices.Sort(caveats)

	return &Result{
		Overall: overall,
		Level:   levelFor(overall),
		Factors: slices.Clone(factors),
		Caveats: caveats,
	}, nil
}

func levelFor(overall float64) Level {
	switch {
	case overall >= 0.80:
		return LevelHigh
	case overall >= 0.60:
		return LevelModerate
	default:
		return LevelLow
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// Standard transport factor names and the weight each carries. Callers
// supply domain factors for the remaining DomainWeight.
const (
	FactorFreshness    = "data_freshness"
	FactorProviderRank = "provider_rank"
	FactorRetries      = "retry_stability"

	freshnessWeight = 0.15
	providerWeight  = 0.15
	retryWeight     = 0.10

	// DomainWeight is the total weight left for caller-supplied factors.
	DomainWeight = 1.0 - freshnessWeight - providerWeight - retryWeight
)

// Signals carries the call-path evidence collected by the engine: where the
// value came from, how fresh it is, which backend served it, and how many
// attempts it took.
type Signals struct {
	CacheHit bool
	// Age and TTL describe a cache hit's position in its freshness window.
	Age time.Duration
	TTL time.Duration
	// ProviderRank is the 1-based position of the serving provider in the
	// chain; ProviderCount is the chain length. Zero values mean the call
	// did not go through the chain.
	ProviderRank  int
	ProviderCount int
	// Attempts of MaxAttempts were used to obtain the value.
	Attempts    int
	MaxAttempts int
}

// TransportFactors derives the standard factors from call-path signals.
// The returned factors carry 1-DomainWeight of total weight.
func TransportFactors(s Signals) []Factor {
	return []Factor{
		{Name: FactorFreshness, Weight: freshnessWeight, Score: freshnessScore(s)},
		{Name: FactorProviderRank, Weight: providerWeight, Score: providerScore(s)},
		{Name: FactorRetries, Weight: retryWeight, Score: retryScore(s)},
	}
}

// freshnessScore: a fresh fetch scores 1.0; a cache hit decays linearly
// from 1.0 to 0.5 across its TTL window.
func freshnessScore(s Signals) float64 {
	if !s.CacheHit {
		return 1.0
	}
	if s.TTL <= 0 {
		return 0.5
	}
	frac := float64(s.Age) / float64(s.TTL)
	return clamp01(1.0 - 0.5*frac)
}

// providerScore: the first-choice backend scores 1.0, decaying linearly to
// 0.4 for the last backend in the chain. Cache hits bypass the chain and
// score neutral.
func providerScore(s Signals) float64 {
	if s.ProviderRank <= 0 || s.ProviderCount <= 0 {
		return 0.7
	}
	if s.ProviderCount == 1 {
		return 1.0
	}
	frac := float64(s.ProviderRank-1) / float64(s.ProviderCount-1)
	return clamp01(1.0 - 0.6*frac)
}

// retryScore: succeeding on the first attempt scores 1.0, decaying to 0.3
// when every allowed attempt was needed.
func retryScore(s Signals) float64 {
	if s.Attempts <= 1 || s.MaxAttempts <= 1 {
		return 1.0
	}
	frac := float64(s.Attempts-1) / float64(s.MaxAttempts-1)
	return clamp01(1.0 - 0.7*frac)
}
