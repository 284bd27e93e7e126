package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTransientClassification(t *testing.T) {
	err := Transient(errors.New("rate limited"))
	if !IsTransient(err) {
		t.Fatal("expected transient")
	}
	if IsPermanent(err) {
		t.Fatal("did not expect permanent")
	}
}

func TestPermanentClassification(t *testing.T) {
	err := Permanent(errors.New("invalid api key"))
	if IsTransient(err) {
		t.Fatal("did not expect transient")
	}
	if !IsPermanent(err) {
		t.Fatal("expected permanent")
	}
}

func TestNilPassthrough(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestUnclassifiedNotRetried(t *testing.T) {
	if IsTransient(errors.New("something odd")) {
		t.Error("unclassified errors must not be retried")
	}
}

func TestDeadlineExceededIsTransient(t *testing.T) {
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("deadline expiry should classify as transient")
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	cause := errors.New("503 from upstream")
	err := fmt.Errorf("fetching quote: %w", Transient(cause))
	if !IsTransient(err) {
		t.Fatal("expected transient through fmt.Errorf wrapping")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
}
