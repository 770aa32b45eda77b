package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/marketops/observe"
	"github.com/jonwraymond/marketops/pool"
	"github.com/jonwraymond/marketops/resilience"
	"github.com/jonwraymond/marketops/validation"
)

// Request describes one upstream call to execute. C is the client type the
// call needs; the Source decides whether that client is the shared
// long-lived one or a fresh disposable one.
type Request[C any] struct {
	// Operation names the request for caching, metrics, and logs.
	Operation string

	// Dataset and Schema are optional telemetry labels.
	Dataset string
	Schema  string

	// Args are the request arguments the cache key is derived from. Used
	// only when Key is empty; equal args always derive equal keys.
	Args any

	// Key overrides key derivation with a precomputed fingerprint.
	Key string

	// TTL controls caching: positive caches for that duration (clamped by
	// the policy), zero uses the policy's per-operation TTL, and negative
	// bypasses the cache for this run.
	TTL time.Duration

	// Source hands out the upstream client.
	Source pool.Source[C]

	// Retry overrides the executor's default retry policy.
	Retry *resilience.Policy

	// Call performs the upstream operation against an acquired client.
	Call func(ctx context.Context, client C) ([]byte, error)
}

// Result is the outcome of a successful Run.
type Result struct {
	// Value is the opaque serialized payload.
	Value []byte

	// Key is the fingerprint derived (or supplied) for this request.
	Key string

	// CacheHit reports whether the value came from the cache. A hit never
	// touches the pool or the retry loop.
	CacheHit bool

	// Attempts is how many upstream attempts the run made. Zero on a hit.
	Attempts int
}

// Run executes one request through the full path: cache lookup, client
// acquisition, classified retries, metrics, and the cache write-back.
//
// Guarantees: a cache entry is never written for a failed call; a
// successful call always overwrites any prior entry under its key; the
// terminal outcome is recorded exactly once no matter how many attempts
// were made.
func Run[C any](ctx context.Context, ex *Executor, req Request[C]) (Result, error) {
	if req.Operation == "" {
		return Result{}, ErrNoOperation
	}
	if req.Call == nil {
		return Result{}, ErrNilCall
	}
	if req.Source == nil {
		return Result{}, ErrNilSource
	}

	meta := observe.OpMeta{
		Operation:  req.Operation,
		Invocation: uuid.NewString(),
		Dataset:    req.Dataset,
		Schema:     req.Schema,
	}

	ctx, span := ex.tracer.StartSpan(ctx, meta)
	start := time.Now()

	res, err := run(ctx, ex, req)

	elapsed := time.Since(start)
	ex.agg.RecordOutcome(req.Operation, outcomeOf(err))
	ex.metrics.RecordRun(ctx, meta, elapsed, err)
	ex.tracer.EndSpan(span, err)

	log := ex.logger.WithOp(meta)
	if err != nil {
		log.Error(ctx, "run failed",
			observe.Field{Key: "outcome", Value: string(outcomeOf(err))},
			observe.Field{Key: "attempts", Value: res.Attempts},
			observe.Field{Key: "elapsed_ms", Value: elapsed.Milliseconds()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return res, err
	}
	log.Info(ctx, "run complete",
		observe.Field{Key: "cache_hit", Value: res.CacheHit},
		observe.Field{Key: "attempts", Value: res.Attempts},
		observe.Field{Key: "elapsed_ms", Value: elapsed.Milliseconds()},
	)
	return res, nil
}

func run[C any](ctx context.Context, ex *Executor, req Request[C]) (Result, error) {
	key := req.Key
	if key == "" {
		derived, err := ex.keyer.Key(req.Operation, req.Args)
		if err != nil {
			return Result{}, fmt.Errorf("invoke: derive cache key: %w", err)
		}
		key = derived
	}

	ttl := ex.effectiveTTL(req.Operation, req.TTL)
	cached := ttl > 0

	if cached {
		if value, ok := ex.store.Get(ctx, key); ok {
			ex.agg.RecordCache(true)
			ex.metrics.RecordCacheLookup(ctx, req.Operation, true)
			return Result{Value: value, Key: key, CacheHit: true}, nil
		}
		ex.agg.RecordCache(false)
		ex.metrics.RecordCacheLookup(ctx, req.Operation, false)
	}

	client, err := req.Source.Acquire(ctx)
	if err != nil {
		return Result{Key: key}, err
	}

	policy := ex.retry
	if req.Retry != nil {
		policy = *req.Retry
	}

	attempts := 0
	retryer, err := resilience.NewRetryer(policy,
		resilience.WithClassifier(classify),
		resilience.WithOnAttempt(func(a resilience.Attempt) {
			attempts = a.Index
			ex.agg.Record(req.Operation, a.Err == nil, a.Elapsed)
		}),
	)
	if err != nil {
		return Result{Key: key}, err
	}

	var value []byte
	err = retryer.Do(ctx, func(ctx context.Context) error {
		v, callErr := req.Call(ctx, client)
		if callErr != nil {
			return callErr
		}
		value = v
		return nil
	})

	resetter, _ := any(req.Source).(pool.Resetter)
	ex.noteOutcome(resetter, err)

	if err != nil {
		return Result{Key: key, Attempts: attempts}, err
	}

	if cached {
		if serr := ex.store.Set(ctx, key, value, ttl); serr != nil {
			// A failed write-back degrades the cache, not the response.
			ex.logger.Warn(ctx, "cache write failed",
				observe.Field{Key: "op.name", Value: req.Operation},
				observe.Field{Key: "error", Value: serr.Error()},
			)
		}
	}
	return Result{Value: value, Key: key, Attempts: attempts}, nil
}

// classify preserves caller-fault validation errors and hands everything
// else to the shared classifier. Validation failures are never retried and
// reach the caller unwrapped.
func classify(err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return err
	}
	return resilience.Classify(err)
}

// outcomeOf maps a terminal run error onto its metrics outcome. Exhaustion
// is checked before the kind because an ExhaustedError wraps the retryable
// error that spent the attempts.
func outcomeOf(err error) observe.Outcome {
	if err == nil {
		return observe.OutcomeSuccess
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return observe.OutcomeValidation
	}
	if pool.IsConstruction(err) {
		return observe.OutcomeConstruction
	}
	if resilience.Exhausted(err) {
		return observe.OutcomeExhausted
	}
	if kind, ok := resilience.KindOf(err); ok {
		switch kind {
		case resilience.KindRateLimited:
			return observe.OutcomeRateLimited
		case resilience.KindFatal:
			return observe.OutcomeFatal
		default:
			return observe.OutcomeTransient
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return observe.OutcomeCanceled
	}
	return observe.OutcomeFatal
}
