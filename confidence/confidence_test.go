package confidence

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestScoreDeterministic(t *testing.T) {
	factors := []Factor{
		{Name: "x", Weight: 0.6, Score: 0.9},
		{Name: "y", Weight: 0.4, Score: 0.3},
	}
	res, err := Score(factors)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(res.Overall-0.66) > 1e-9 {
		t.Errorf("overall=%v, want 0.66", res.Overall)
	}
	if res.Level != LevelModerate {
		t.Errorf("level=%s, want MODERATE", res.Level)
	}
	if len(res.Caveats) != 1 || res.Caveats[0] != "y" {
		t.Errorf("caveats=%v, want [y]", res.Caveats)
	}

	// Pure function: identical input, identical output.
	again, err := Score(factors)
	if err != nil {
		t.Fatalf("Score again: %v", err)
	}
	if again.Overall != res.Overall || again.Level != res.Level {
		t.Error("Score is not deterministic")
	}
}

func TestScoreInvalidWeights(t *testing.T) {
	_, err := Score([]Factor{
		{Name: "a", Weight: 0.5, Score: 1},
		{Name: "b", Weight: 0.4, Score: 1},
	})
	if !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights for sum 0.9, got %v", err)
	}
}

func TestScoreWeightTolerance(t *testing.T) {
	// Three thirds do not sum to exactly 1.0 in floating point.
	third := 1.0 / 3.0
	_, err := Score([]Factor{
		{Name: "a", Weight: third, Score: 1},
		{Name: "b", Weight: third, Score: 1},
		{Name: "c", Weight: third, Score: 1},
	})
	if err != nil {
		t.Fatalf("tolerance should absorb float error: %v", err)
	}
}

func TestScoreLevelBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Level
	}{
		{0.80, LevelHigh},
		{0.79, LevelModerate},
		{0.60, LevelModerate},
		{0.59, LevelLow},
		{0.0, LevelLow},
	}
	for _, tc := range cases {
		res, err := Score([]Factor{{Name: "only", Weight: 1.0, Score: tc.score}})
		if err != nil {
			t.Fatalf("Score(%v): %v", tc.score, err)
		}
		if res.Level != tc.want {
			t.Errorf("score %v: level=%s, want %s", tc.score, res.Level, tc.want)
		}
	}
}

func TestCaveatsSurviveHighConfidence(t *testing.T) {
	res, err := Score([]Factor{
		{Name: "strong", Weight: 0.9, Score: 1.0},
		{Name: "weak", Weight: 0.1, Score: 0.2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Level != LevelHigh {
		t.Fatalf("level=%s", res.Level)
	}
	if len(res.Caveats) != 1 || res.Caveats[0] != "weak" {
		t.Errorf("weak factor must surface as caveat even at high confidence: %v", res.Caveats)
	}
}

func TestCaveatsDeduplicated(t *testing.T) {
	res, err := Score([]Factor{
		{Name: "dup", Weight: 0.5, Score: 0.1},
		{Name: "dup", Weight: 0.5, Score: 0.2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Caveats) != 1 {
		t.Errorf("caveats=%v, want single entry", res.Caveats)
	}
}

func TestScoreClamped(t *testing.T) {
	res, err := Score([]Factor{{Name: "hot", Weight: 1.0, Score: 1.7}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Overall > 1.0 {
		t.Errorf("overall=%v not clamped", res.Overall)
	}
}

func TestTransportFactorsWeights(t *testing.T) {
	factors := TransportFactors(Signals{})
	var sum float64
	for _, f := range factors {
		sum += f.Weight
	}
	if math.Abs(sum-(1.0-DomainWeight)) > 1e-9 {
		t.Errorf("transport weights sum to %v", sum)
	}
}

func TestFreshnessScore(t *testing.T) {
	if got := freshnessScore(Signals{CacheHit: false}); got != 1.0 {
		t.Errorf("fresh fetch = %v", got)
	}
	half := freshnessScore(Signals{CacheHit: true, Age: 30 * time.Second, TTL: time.Minute})
	if math.Abs(half-0.75) > 1e-9 {
		t.Errorf("mid-window hit = %v, want 0.75", half)
	}
	end := freshnessScore(Signals{CacheHit: true, Age: time.Minute, TTL: time.Minute})
	if math.Abs(end-0.5) > 1e-9 {
		t.Errorf("end-of-window hit = %v, want 0.5", end)
	}
}

func TestProviderScore(t *testing.T) {
	if got := providerScore(Signals{ProviderRank: 1, ProviderCount: 3}); got != 1.0 {
		t.Errorf("first provider = %v", got)
	}
	last := providerScore(Signals{ProviderRank: 3, ProviderCount: 3})
	if math.Abs(last-0.4) > 1e-9 {
		t.Errorf("last provider = %v, want 0.4", last)
	}
	if got := providerScore(Signals{}); got != 0.7 {
		t.Errorf("no chain = %v, want neutral 0.7", got)
	}
}

func TestRetryScore(t *testing.T) {
	if got := retryScore(Signals{Attempts: 1, MaxAttempts: 3}); got != 1.0 {
		t.Errorf("first-attempt success = %v", got)
	}
	worst := retryScore(Signals{Attempts: 3, MaxAttempts: 3})
	if math.Abs(worst-0.3) > 1e-9 {
		t.Errorf("all attempts used = %v, want 0.3", worst)
	}
}
