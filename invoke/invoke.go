package invoke

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/marketops/cache"
	"github.com/jonwraymond/marketops/observe"
	"github.com/jonwraymond/marketops/pool"
	"github.com/jonwraymond/marketops/resilience"
)

// DefaultResetThreshold is how many consecutive terminal upstream failures
// a reusable source tolerates before its client is discarded.
const DefaultResetThreshold = 3

var (
	ErrNilCall      = errors.New("invoke: call is nil")
	ErrNilSource    = errors.New("invoke: source is nil")
	ErrNoOperation  = errors.New("invoke: operation name is empty")
	ErrNilAggregate = errors.New("invoke: aggregator is nil")
)

// Executor owns the collaborators a Run needs. It holds no global state:
// tests construct a fresh Executor and get fully isolated counters and
// cache contents.
type Executor struct {
	store   cache.Cache
	keyer   cache.Keyer
	policy  cache.Policy
	agg     *observe.Aggregator
	metrics observe.Metrics
	tracer  observe.Tracer
	logger  observe.Logger
	retry   resilience.Policy

	resetThreshold int
	mu             sync.Mutex
	failStreak     map[pool.Resetter]int
}

// Option configures an Executor.
type Option func(*Executor)

// WithCache sets the backing cache store. Defaults to an in-memory store.
func WithCache(c cache.Cache) Option {
	return func(ex *Executor) { ex.store = c }
}

// WithKeyer sets the cache key derivation. Defaults to the SHA-256 keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(ex *Executor) { ex.keyer = k }
}

// WithCachePolicy sets the per-operation TTL policy.
func WithCachePolicy(p cache.Policy) Option {
	return func(ex *Executor) { ex.policy = p }
}

// WithAggregator sets the metrics aggregator runs are recorded to.
func WithAggregator(a *observe.Aggregator) Option {
	return func(ex *Executor) { ex.agg = a }
}

// WithMetrics sets the exported (otel) metrics sink.
func WithMetrics(m observe.Metrics) Option {
	return func(ex *Executor) { ex.metrics = m }
}

// WithTracer sets the tracer that spans each run.
func WithTracer(t observe.Tracer) Option {
	return func(ex *Executor) { ex.tracer = t }
}

// WithLogger sets the structured logger.
func WithLogger(l observe.Logger) Option {
	return func(ex *Executor) { ex.logger = l }
}

// WithRetryPolicy sets the default retry policy used when a request does
// not carry its own. Invalid policies fail construction.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(ex *Executor) { ex.retry = p }
}

// WithResetThreshold sets how many consecutive terminal upstream failures
// trigger a reset of the request's reusable source. Zero disables
// failure-triggered resets.
func WithResetThreshold(n int) Option {
	return func(ex *Executor) { ex.resetThreshold = n }
}

// New builds an Executor. Retry policy validation happens here, not at
// call time.
func New(opts ...Option) (*Executor, error) {
	ex := &Executor{
		store:          cache.NewMemoryCache(),
		keyer:          cache.NewDefaultKeyer(),
		policy:         cache.DefaultPolicy(),
		agg:            observe.NewAggregator(),
		metrics:        observe.NewNoopMetrics(),
		tracer:         observe.NewNoopTracer(),
		logger:         observe.NewNoopLogger(),
		retry:          resilience.DefaultPolicy(),
		resetThreshold: DefaultResetThreshold,
		failStreak:     make(map[pool.Resetter]int),
	}
	for _, opt := range opts {
		opt(ex)
	}
	if ex.store == nil {
		return nil, cache.ErrNilCache
	}
	if ex.agg == nil {
		return nil, ErrNilAggregate
	}
	if err := ex.retry.Validate(); err != nil {
		return nil, err
	}
	if ex.resetThreshold < 0 {
		ex.resetThreshold = 0
	}
	return ex, nil
}

// Cache returns the backing store, for maintenance operations.
func (ex *Executor) Cache() cache.Cache { return ex.store }

// Keyer returns the key derivation, so callers can fingerprint a request
// without running it.
func (ex *Executor) Keyer() cache.Keyer { return ex.keyer }

// ClearCache removes cached entries in bulk and returns how many went.
func (ex *Executor) ClearCache(ctx context.Context, expiredOnly bool) (int, error) {
	return ex.store.Clear(ctx, expiredOnly)
}

// Stats snapshots the aggregator, optionally resetting it.
func (ex *Executor) Stats(reset bool) observe.Stats {
	return ex.agg.Snapshot(reset)
}

// noteOutcome tracks consecutive terminal failures per resettable source
// and discards the source's client once the streak reaches the threshold.
// Caller-fault and construction failures do not count against the client.
func (ex *Executor) noteOutcome(src pool.Resetter, err error) {
	if src == nil || ex.resetThreshold == 0 {
		return
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()

	if err == nil {
		delete(ex.failStreak, src)
		return
	}
	if !countsAgainstClient(err) {
		return
	}

	ex.failStreak[src]++
	if ex.failStreak[src] >= ex.resetThreshold {
		delete(ex.failStreak, src)
		src.Reset()
	}
}

// countsAgainstClient reports whether a terminal failure suggests the
// reusable client itself has gone bad.
func countsAgainstClient(err error) bool {
	kind, ok := resilience.KindOf(err)
	if !ok {
		return false
	}
	return kind == resilience.KindTransient || kind == resilience.KindFatal
}

// effectiveTTL resolves the TTL for one request: an explicit positive TTL
// wins, zero falls back to the policy table, and anything non-positive
// after that disables caching for the run.
func (ex *Executor) effectiveTTL(operation string, override time.Duration) time.Duration {
	if override > 0 {
		return ex.policy.EffectiveTTL(override)
	}
	if override < 0 {
		return 0
	}
	return ex.policy.TTLFor(operation)
}
