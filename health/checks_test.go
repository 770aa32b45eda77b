package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/marketops/cache"
)

func TestCacheChecker_RoundTrip(t *testing.T) {
	checker := NewCacheChecker(cache.NewMemoryCache())

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status = %v (%s), want healthy", result.Status, result.Message)
	}
}

// brokenCache errors on every write.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("disk full")
}
func (brokenCache) Delete(context.Context, string) error        { return nil }
func (brokenCache) Clear(context.Context, bool) (int, error)    { return 0, nil }

func TestCacheChecker_WriteFailure(t *testing.T) {
	checker := NewCacheChecker(brokenCache{})

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Fatalf("status = %v, want unhealthy", result.Status)
	}
}

func TestUpstreamChecker(t *testing.T) {
	healthy := NewUpstreamChecker(func(context.Context) error { return nil })
	if result := healthy.Check(context.Background()); result.Status != StatusHealthy {
		t.Errorf("reachable upstream: status = %v, want healthy", result.Status)
	}

	down := NewUpstreamChecker(func(context.Context) error { return errors.New("connection refused") })
	if result := down.Check(context.Background()); result.Status != StatusUnhealthy {
		t.Errorf("unreachable upstream: status = %v, want unhealthy", result.Status)
	}
}

func TestKeyFormatChecker(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want Status
	}{
		{"valid key", "db-test-key-000000000000000000000", StatusHealthy},
		{"empty key", "", StatusUnhealthy},
		{"wrong prefix", "sk-0000000000000000", StatusUnhealthy},
		{"too short", "db-short", StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewKeyFormatChecker(tt.key).Check(context.Background())
			if result.Status != tt.want {
				t.Errorf("status = %v, want %v", result.Status, tt.want)
			}
		})
	}
}
