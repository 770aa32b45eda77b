package invoke

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/marketops/cache"
	"github.com/jonwraymond/marketops/observe"
	"github.com/jonwraymond/marketops/pool"
	"github.com/jonwraymond/marketops/resilience"
	"github.com/jonwraymond/marketops/validation"
)

type fakeClient struct {
	id int
}

func fastRetry() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		JitterFraction: 0,
	}
}

func newTestExecutor(t *testing.T, opts ...Option) *Executor {
	t.Helper()
	base := []Option{
		WithCache(cache.NewMemoryCache()),
		WithRetryPolicy(fastRetry()),
		WithCachePolicy(cache.Policy{DefaultTTL: time.Minute}),
	}
	ex, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return ex
}

func staticSource(c *fakeClient) pool.Source[*fakeClient] {
	return pool.NewSingleton(func(ctx context.Context) (*fakeClient, error) {
		return c, nil
	})
}

func TestRun_RequestValidation(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})
	call := func(ctx context.Context, c *fakeClient) ([]byte, error) { return []byte("ok"), nil }

	tests := []struct {
		name string
		req  Request[*fakeClient]
		want error
	}{
		{"missing operation", Request[*fakeClient]{Source: src, Call: call}, ErrNoOperation},
		{"nil call", Request[*fakeClient]{Operation: "op", Source: src}, ErrNilCall},
		{"nil source", Request[*fakeClient]{Operation: "op", Call: call}, ErrNilSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(context.Background(), ex, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRun_CacheHitSkipsPoolAndRetry(t *testing.T) {
	ex := newTestExecutor(t)

	key, err := cache.NewDefaultKeyer().Key("list_things", map[string]any{"q": "x"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if err := ex.Cache().Set(context.Background(), key, []byte("cached"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// A source that cannot construct proves a hit never acquires.
	src := pool.NewSingleton(func(ctx context.Context) (*fakeClient, error) {
		return nil, errors.New("should not be called")
	})

	res, err := Run(context.Background(), ex, Request[*fakeClient]{
		Operation: "list_things",
		Args:      map[string]any{"q": "x"},
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			t.Fatal("upstream call should not run on a cache hit")
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.CacheHit {
		t.Error("CacheHit = false, want true")
	}
	if string(res.Value) != "cached" {
		t.Errorf("Value = %q, want %q", res.Value, "cached")
	}
	if res.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", res.Attempts)
	}

	stats := ex.Stats(false)
	if stats.Cache.Hits != 1 || stats.Cache.Misses != 0 {
		t.Errorf("cache stats = %d hits / %d misses, want 1/0", stats.Cache.Hits, stats.Cache.Misses)
	}
	if stats.Operations["list_things"].Outcomes[observe.OutcomeSuccess] != 1 {
		t.Error("cache hit should still record one success outcome")
	}
}

func TestRun_MissThenHit(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{id: 1})

	calls := 0
	req := Request[*fakeClient]{
		Operation: "get_cost",
		Args:      map[string]any{"dataset": "GLBX.MDP3"},
		TTL:       time.Minute,
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			calls++
			return []byte("42.50"), nil
		},
	}

	res1, err := Run(context.Background(), ex, req)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	res2, err := Run(context.Background(), ex, req)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
	if res1.CacheHit || !res2.CacheHit {
		t.Errorf("cache hits = (%v, %v), want (false, true)", res1.CacheHit, res2.CacheHit)
	}
	if string(res2.Value) != "42.50" {
		t.Errorf("cached value = %q, want %q", res2.Value, "42.50")
	}
	if res1.Key != res2.Key {
		t.Errorf("keys differ across identical requests: %q vs %q", res1.Key, res2.Key)
	}
}

func TestRun_FailTwiceThenSucceed(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})

	sets := 0
	counting := &countingCache{Cache: cache.NewMemoryCache(), sets: &sets}
	ex.store = counting

	attempts := 0
	res, err := Run(context.Background(), ex, Request[*fakeClient]{
		Operation: "get_historical_data",
		Args:      map[string]any{"symbols": "ES.FUT"},
		TTL:       time.Minute,
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			attempts++
			if attempts < 3 {
				return nil, &resilience.TransientError{Err: errors.New("connection dropped")}
			}
			return []byte("rows"), nil
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if sets != 1 {
		t.Errorf("cache writes = %d, want exactly 1", sets)
	}

	stats := ex.Stats(false)
	op := stats.Operations["get_historical_data"]
	if op.Calls != 3 || op.Successes != 1 || op.Errors != 2 {
		t.Errorf("op stats = %d calls / %d successes / %d errors, want 3/1/2", op.Calls, op.Successes, op.Errors)
	}
	if op.Outcomes[observe.OutcomeSuccess] != 1 {
		t.Errorf("success outcomes = %d, want 1", op.Outcomes[observe.OutcomeSuccess])
	}
}

type countingCache struct {
	cache.Cache
	sets *int
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	*c.sets++
	return c.Cache.Set(ctx, key, value, ttl)
}

func TestRun_NoCacheOnFailure(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})

	req := Request[*fakeClient]{
		Operation: "get_dataset_range",
		Args:      map[string]any{"dataset": "XNAS.ITCH"},
		TTL:       time.Minute,
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			return nil, &resilience.TransientError{Err: errors.New("gateway unavailable")}
		},
	}

	res, err := Run(context.Background(), ex, req)
	if !resilience.Exhausted(err) {
		t.Fatalf("Run() error = %v, want retry exhaustion", err)
	}

	if _, ok := ex.Cache().Get(context.Background(), res.Key); ok {
		t.Error("failed run left an entry in the cache")
	}

	stats := ex.Stats(false)
	op := stats.Operations["get_dataset_range"]
	if op.Outcomes[observe.OutcomeExhausted] != 1 {
		t.Errorf("exhausted outcomes = %d, want 1", op.Outcomes[observe.OutcomeExhausted])
	}
}

func TestRun_ValidationErrorNotRetriedNotCached(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})

	attempts := 0
	verr := validation.Errorf("dataset", "must follow VENUE.FORMAT pattern")
	res, err := Run(context.Background(), ex, Request[*fakeClient]{
		Operation: "get_historical_data",
		Args:      map[string]any{"dataset": "bogus"},
		TTL:       time.Minute,
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			attempts++
			return nil, verr
		},
	})

	var got *validation.Error
	if !errors.As(err, &got) {
		t.Fatalf("Run() error = %v, want *validation.Error", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if _, ok := ex.Cache().Get(context.Background(), res.Key); ok {
		t.Error("validation failure left an entry in the cache")
	}
	stats := ex.Stats(false)
	if stats.Operations["get_historical_data"].Outcomes[observe.OutcomeValidation] != 1 {
		t.Error("validation outcome not recorded")
	}
}

func TestRun_ConstructionErrorPropagates(t *testing.T) {
	ex := newTestExecutor(t)
	cause := errors.New("bad credentials")
	src := pool.NewSingleton(func(ctx context.Context) (*fakeClient, error) {
		return nil, cause
	})

	_, err := Run(context.Background(), ex, Request[*fakeClient]{
		Operation: "list_datasets",
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			t.Fatal("call should not run when construction fails")
			return nil, nil
		},
	})

	if !pool.IsConstruction(err) {
		t.Fatalf("Run() error = %v, want ConstructionError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("construction cause not preserved")
	}
	stats := ex.Stats(false)
	if stats.Operations["list_datasets"].Outcomes[observe.OutcomeConstruction] != 1 {
		t.Error("construction outcome not recorded")
	}
}

func TestRun_NegativeTTLBypassesCache(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})

	calls := 0
	req := Request[*fakeClient]{
		Operation: "get_live_data",
		Args:      map[string]any{"symbols": "ES.c.0"},
		TTL:       -1,
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			calls++
			return []byte("tick"), nil
		},
	}

	for i := 0; i < 2; i++ {
		if _, err := Run(context.Background(), ex, req); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (no caching)", calls)
	}
	stats := ex.Stats(false)
	if stats.Cache.Hits != 0 || stats.Cache.Misses != 0 {
		t.Errorf("bypassed runs recorded cache lookups: %d hits / %d misses", stats.Cache.Hits, stats.Cache.Misses)
	}
}

func TestRun_FailureStreakResetsSource(t *testing.T) {
	built := 0
	src := pool.NewSingleton(func(ctx context.Context) (*fakeClient, error) {
		built++
		return &fakeClient{id: built}, nil
	})
	ex := newTestExecutor(t, WithResetThreshold(2))

	req := Request[*fakeClient]{
		Operation: "get_historical_data",
		TTL:       -1,
		Source:    src,
		Retry:     &resilience.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			return nil, &resilience.FatalUpstreamError{Err: errors.New("auth revoked")}
		},
	}

	for i := 0; i < 2; i++ {
		if _, err := Run(context.Background(), ex, req); err == nil {
			t.Fatal("Run() should fail")
		}
	}

	// The second terminal failure crossed the threshold; the next acquire
	// must construct a fresh client.
	c, err := src.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if built != 2 || c.id != 2 {
		t.Errorf("built = %d, client id = %d; want a reconstructed client", built, c.id)
	}
}

func TestRun_SuccessClearsFailureStreak(t *testing.T) {
	built := 0
	fail := true
	src := pool.NewSingleton(func(ctx context.Context) (*fakeClient, error) {
		built++
		return &fakeClient{id: built}, nil
	})
	ex := newTestExecutor(t, WithResetThreshold(2))

	req := Request[*fakeClient]{
		Operation: "resolve_symbols",
		TTL:       -1,
		Source:    src,
		Retry:     &resilience.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			if fail {
				return nil, &resilience.FatalUpstreamError{Err: errors.New("blip")}
			}
			return []byte("ok"), nil
		},
	}

	// fail, succeed, fail: the streak never reaches 2.
	Run(context.Background(), ex, req)
	fail = false
	if _, err := Run(context.Background(), ex, req); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	fail = true
	Run(context.Background(), ex, req)

	if built != 1 {
		t.Errorf("client rebuilt %d times, want construction exactly once", built)
	}
}

func TestRun_MetricsConservation(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})

	i := 0
	req := Request[*fakeClient]{
		Operation: "get_cost",
		TTL:       -1,
		Source:    src,
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			i++
			if i%3 == 0 {
				return nil, &resilience.TransientError{Err: errors.New("blip")}
			}
			return []byte("ok"), nil
		},
	}

	for n := 0; n < 10; n++ {
		Run(context.Background(), ex, req)
	}

	op := ex.Stats(false).Operations["get_cost"]
	if op.Successes+op.Errors != op.Calls {
		t.Errorf("successes(%d) + errors(%d) != calls(%d)", op.Successes, op.Errors, op.Calls)
	}
}

func TestRun_InvalidRetryOverride(t *testing.T) {
	ex := newTestExecutor(t)
	src := staticSource(&fakeClient{})

	_, err := Run(context.Background(), ex, Request[*fakeClient]{
		Operation: "list_schemas",
		TTL:       -1,
		Source:    src,
		Retry:     &resilience.Policy{MaxAttempts: 0},
		Call: func(ctx context.Context, c *fakeClient) ([]byte, error) {
			return []byte("ok"), nil
		},
	})
	if err == nil {
		t.Error("Run() with an invalid retry override should fail")
	}
}
