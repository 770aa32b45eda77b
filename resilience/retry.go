package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Policy configures the retry loop. A Policy is stateless and may be shared
// across concurrent calls.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// 1 means no retries.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff: the delay before retry n is
	// min(MaxDelay, BaseDelay * 2^(n-1)) plus jitter.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay before jitter is added.
	MaxDelay time.Duration

	// JitterFraction adds uniform random jitter in [0, delay*JitterFraction].
	// Must be in [0, 1].
	JitterFraction float64
}

// DefaultPolicy returns the retry policy used for upstream calls when the
// caller does not override it.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       60 * time.Second,
		JitterFraction: 0.25,
	}
}

// Validate rejects misconfigured policies. Construction is the fail-fast
// point; Do assumes a valid policy.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("resilience: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("resilience: base delay must be positive, got %v", p.BaseDelay)
	}
	if p.MaxDelay <= 0 {
		return fmt.Errorf("resilience: max delay must be positive, got %v", p.MaxDelay)
	}
	if p.JitterFraction < 0 || p.JitterFraction > 1 {
		return fmt.Errorf("resilience: jitter fraction must be in [0,1], got %v", p.JitterFraction)
	}
	return nil
}

// Attempt describes one completed attempt inside a retry loop. Err is nil on
// success and carries the classified failure otherwise.
type Attempt struct {
	Index   int
	Elapsed time.Duration
	Err     error
}

// RetryerOption configures a Retryer.
type RetryerOption func(*Retryer)

// WithOnAttempt registers an observer called after every attempt, success
// or failure, with its latency. Used to feed per-attempt metrics.
func WithOnAttempt(fn func(Attempt)) RetryerOption {
	return func(r *Retryer) {
		r.onAttempt = fn
	}
}

// WithClassifier replaces the default error classifier. Tests use this to
// inject pre-classified failures.
func WithClassifier(fn func(error) error) RetryerOption {
	return func(r *Retryer) {
		r.classify = fn
	}
}

// Retryer runs operations under a Policy, retrying transient and
// rate-limited failures with exponential backoff and jitter.
type Retryer struct {
	policy    Policy
	classify  func(error) error
	onAttempt func(Attempt)
}

// NewRetryer validates the policy and returns a Retryer.
func NewRetryer(policy Policy, opts ...RetryerOption) (*Retryer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	r := &Retryer{
		policy:   policy,
		classify: Classify,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the retry policy.
func (r *Retryer) Policy() Policy {
	return r.policy
}

// Do runs op, classifying each failure and retrying while the failure is
// retryable and attempts remain. The inter-attempt sleep suspends only the
// calling goroutine and aborts early on context cancellation.
//
// Fatal failures return after exactly one attempt with no delay. When all
// attempts are spent the last error is returned wrapped in ExhaustedError.
// A policy with MaxAttempts of 1 never retries and returns the first
// failure as-is, unwrapped.
func (r *Retryer) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		start := time.Now()
		err := r.classify(op(ctx))
		r.observe(Attempt{Index: attempt, Elapsed: time.Since(start), Err: err})

		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt >= r.policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	if r.policy.MaxAttempts == 1 {
		return lastErr
	}
	return &ExhaustedError{Attempts: r.policy.MaxAttempts, Err: lastErr}
}

func (r *Retryer) observe(a Attempt) {
	if r.onAttempt != nil {
		r.onAttempt(a)
	}
}

// backoff computes the delay after the given attempt number (1-based).
func (r *Retryer) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(r.policy.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if delay <= 0 || delay > r.policy.MaxDelay {
		delay = r.policy.MaxDelay
	}

	if span := time.Duration(float64(delay) * r.policy.JitterFraction); span > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(span)))
	}
	return delay
}

// Exhausted reports whether err marks a retry loop that spent all attempts.
func Exhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
