// Package resilience provides bounded retry with classified errors for
// upstream market-data calls.
//
// Failures are mapped onto a closed set of variants by [Classify]:
// [TransientError] (connection failures, timeouts, upstream 5xx),
// [RateLimitedError] (429-class rejections), and [FatalUpstreamError]
// (auth failures, malformed requests, not-found). Only the first two are
// retried; classification happens once, so the retry loop never inspects
// vendor error shapes.
//
// # Usage
//
//	r, err := resilience.NewRetryer(resilience.Policy{
//	    MaxAttempts:    3,
//	    BaseDelay:      time.Second,
//	    MaxDelay:       60 * time.Second,
//	    JitterFraction: 0.25,
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = r.Do(ctx, func(ctx context.Context) error {
//	    return callUpstream(ctx)
//	})
//
// The delay before retry n is min(MaxDelay, BaseDelay*2^(n-1)) plus uniform
// jitter in [0, delay*JitterFraction]. The sleep is context-aware and
// suspends only the calling goroutine. After the last attempt the final
// error is returned wrapped in [ExhaustedError].
package resilience
