package health

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/marketops/cache"
	"github.com/jonwraymond/marketops/validation"
)

// NewCacheChecker verifies the response cache by writing a short-lived
// probe entry and reading it back. A backend that stores but cannot read
// back reports degraded; a failed write reports unhealthy.
func NewCacheChecker(store cache.Cache) Checker {
	return NewCheckerFunc("cache", func(ctx context.Context) Result {
		key := fmt.Sprintf("health-probe-%d", time.Now().UnixNano())
		probe := []byte("ok")

		if err := store.Set(ctx, key, probe, 10*time.Second); err != nil {
			return Unhealthy("cache write failed", err)
		}
		defer func() { _ = store.Delete(ctx, key) }()

		value, ok := store.Get(ctx, key)
		if !ok {
			return Degraded("cache wrote but missed on read-back")
		}
		if !bytes.Equal(value, probe) {
			return Degraded("cache read back a different value")
		}
		return Healthy("cache round-trip ok")
	})
}

// NewUpstreamChecker verifies the upstream API answers. ping is typically
// the historical client's Ping method.
func NewUpstreamChecker(ping func(ctx context.Context) error) Checker {
	return NewCheckerFunc("upstream", func(ctx context.Context) Result {
		start := time.Now()
		if err := ping(ctx); err != nil {
			return Unhealthy("upstream unreachable", err)
		}
		return Healthy("upstream reachable").WithDetails(map[string]any{
			"latency": time.Since(start).String(),
		})
	})
}

// NewKeyFormatChecker verifies the configured API key has the expected
// shape. It catches truncated or misplaced keys without spending an
// upstream request.
func NewKeyFormatChecker(apiKey string) Checker {
	return NewCheckerFunc("api_key", func(_ context.Context) Result {
		if err := validation.APIKey(apiKey); err != nil {
			return Unhealthy("api key malformed", err)
		}
		return Healthy("api key format ok")
	})
}
