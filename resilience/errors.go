package resilience

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure for retry decisions and metrics.
type Kind int

const (
	// KindTransient covers connection failures, timeouts, and upstream 5xx
	// responses. Eligible for retry.
	KindTransient Kind = iota

	// KindRateLimited covers 429-class responses and explicit rate-limit
	// signals. Eligible for retry, distinguished from generic transient
	// failures in metrics.
	KindRateLimited

	// KindFatal covers failures retrying cannot fix: bad credentials,
	// malformed requests, not-found. Never retried.
	KindFatal
)

// String returns the metrics label for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// TransientError marks a failure worth retrying: network blip, timeout,
// upstream overload.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("resilience: transient upstream failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitedError marks an upstream rate-limit rejection.
type RateLimitedError struct {
	Err error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("resilience: upstream rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// FatalUpstreamError marks a failure that retrying cannot fix.
type FatalUpstreamError struct {
	Err error
}

func (e *FatalUpstreamError) Error() string {
	return fmt.Sprintf("resilience: fatal upstream failure: %v", e.Err)
}

func (e *FatalUpstreamError) Unwrap() error { return e.Err }

// ExhaustedError wraps the last observed error after all retry attempts
// have been spent.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resilience: %d retry attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is one of the classified variants that a
// retry loop may attempt again. Exhausted results are final even though they
// wrap a retryable error; unclassified errors are not retryable.
func IsRetryable(err error) bool {
	var ee *ExhaustedError
	if errors.As(err, &ee) {
		return false
	}
	var te *TransientError
	var rl *RateLimitedError
	return errors.As(err, &te) || errors.As(err, &rl)
}

// KindOf extracts the failure kind from a classified error. The second
// return is false when err carries no classification.
func KindOf(err error) (Kind, bool) {
	var te *TransientError
	if errors.As(err, &te) {
		return KindTransient, true
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return KindRateLimited, true
	}
	var fe *FatalUpstreamError
	if errors.As(err, &fe) {
		return KindFatal, true
	}
	return 0, false
}
