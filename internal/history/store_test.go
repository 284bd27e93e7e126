package history

import (
	"context"
	"math"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Record(ctx, "AAPL", "openai", "HIGH", 0.85, map[string]string{"summary": "bullish"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}
	if _, err := s.Record(ctx, "AAPL", "anthropic", "LOW", 0.4, map[string]string{"summary": "mixed"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(ctx, "MSFT", "openai", "MODERATE", 0.7, nil); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Recent(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Symbol != "AAPL" {
			t.Errorf("leaked symbol %s", e.Symbol)
		}
		if e.Correct != nil {
			t.Error("outcome should be unset initially")
		}
	}
}

func TestRecordOutcomeAndAccuracy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// No history yet: moderate prior.
	acc, err := s.Accuracy(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Accuracy: %v", err)
	}
	if acc != DefaultAccuracy {
		t.Errorf("empty accuracy = %v, want %v", acc, DefaultAccuracy)
	}

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		id, err := s.Record(ctx, "AAPL", "openai", "HIGH", 0.9, nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	for i, id := range ids[:3] {
		if err := s.RecordOutcome(ctx, id, i < 2); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}

	// 2 of 3 scored analyses correct; the unscored one is excluded.
	acc, err = s.Accuracy(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(acc-2.0/3.0) > 1e-9 {
		t.Errorf("accuracy = %v, want 2/3", acc)
	}
}

func TestRecordOutcomeUnknownID(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordOutcome(context.Background(), "no-such-id", true); err == nil {
		t.Fatal("expected error for unknown analysis id")
	}
}
