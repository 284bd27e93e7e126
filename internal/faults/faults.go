// Package faults classifies resource failures into transient and permanent
// kinds. Fetchers and providers wrap their errors here so the retry executor
// and the provider chain can decide whether another attempt is worthwhile.
package faults

import (
	"context"
	"errors"
	"net"
)

// Kind labels the retry classification of a resource error.
type Kind int

const (
	// KindTransient — timeouts, rate limits, flaky network; retrying may help.
	KindTransient Kind = iota
	// KindPermanent — bad input, auth failures; retrying never helps.
	KindPermanent
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ResourceError wraps a failure from an external resource with its
// retry classification.
type ResourceError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ResourceError) Unwrap() error { return e.Err }

// Transient marks err as retryable. Returns nil when err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Kind: KindTransient, Err: err}
}

// Permanent marks err as non-retryable. Returns nil when err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err should be retried. Explicitly classified
// errors use their kind; network timeouts and deadline expiry count as
// transient even when unwrapped. Everything else is not retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var re *ResourceError
	if errors.As(err, &re) {
		return re.Kind == KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsPermanent reports whether err was explicitly classified non-retryable.
func IsPermanent(err error) bool {
	var re *ResourceError
	return errors.As(err, &re) && re.Kind == KindPermanent
}
