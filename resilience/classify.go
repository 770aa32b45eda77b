package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// transientStatuses are the upstream HTTP statuses worth retrying.
// 429 is classified separately as rate limiting.
var transientStatuses = map[int]bool{
	502: true,
	503: true,
	504: true,
}

// statusCoder is implemented by upstream errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Classify maps an upstream failure onto the closed set of error variants.
// It is the single place vendor error shapes are inspected; everything
// downstream (the retry loop, metrics, callers) sees only the variants.
//
// Already-classified errors and context cancellation pass through unchanged.
// Unrecognized errors are treated as fatal, matching the rule that only
// failures positively identified as transient are retried.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		switch {
		case status == 429:
			return &RateLimitedError{Err: err}
		case transientStatuses[status]:
			return &TransientError{Err: err}
		default:
			return &FatalUpstreamError{Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return &TransientError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransientError{Err: err}
	}

	return &FatalUpstreamError{Err: err}
}
