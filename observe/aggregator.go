package observe

import (
	"sort"
	"sync"
	"time"
)

// DefaultSampleCap is the per-operation latency sample capacity.
const DefaultSampleCap = 1000

// Outcome names the terminal result of one request run. Exactly one outcome
// is recorded per run, no matter how many attempts it took.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeValidation   Outcome = "validation"
	OutcomeTransient    Outcome = "transient"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeFatal        Outcome = "fatal"
	OutcomeExhausted    Outcome = "retry_exhausted"
	OutcomeConstruction Outcome = "pool_construction"
	OutcomeCanceled     Outcome = "canceled"
)

// sampleRing is a fixed-capacity FIFO of latency samples in milliseconds.
// Once full, each new sample evicts the oldest one. FIFO keeps the retained
// window a plain sliding window over recent calls with no bias within it.
type sampleRing struct {
	buf  []float64
	next int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]float64, 0, capacity)}
}

func (r *sampleRing) add(v float64) {
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, v)
		return
	}
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
}

func (r *sampleRing) samples() []float64 {
	out := make([]float64, len(r.buf))
	copy(out, r.buf)
	return out
}

// opStat aggregates one operation name.
type opStat struct {
	calls     int64
	successes int64
	errors    int64
	outcomes  map[Outcome]int64
	latency   *sampleRing
}

// LatencyStats summarizes the retained latency samples for one operation.
// All values are milliseconds. With a single sample, avg, min, max, p95 and
// p99 all equal that sample; with zero samples all values are zero.
type LatencyStats struct {
	Samples int     `json:"samples"`
	AvgMs   float64 `json:"avg_ms"`
	MinMs   float64 `json:"min_ms"`
	MaxMs   float64 `json:"max_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
}

// OperationStats is the per-operation aggregate returned by Snapshot.
// Calls counts completed attempts; Successes + Errors == Calls. Outcomes
// counts terminal results, one per run.
type OperationStats struct {
	Calls     int64             `json:"calls"`
	Successes int64             `json:"successes"`
	Errors    int64             `json:"errors"`
	Outcomes  map[Outcome]int64 `json:"outcomes,omitempty"`
	Latency   LatencyStats      `json:"latency"`
}

// CacheStats counts cache lookups since start or last reset.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats is a point-in-time view of the aggregator.
type Stats struct {
	StartTime  time.Time                 `json:"start_time"`
	Uptime     time.Duration             `json:"uptime"`
	TotalCalls int64                     `json:"total_calls"`
	Operations map[string]OperationStats `json:"operations"`
	Cache      CacheStats                `json:"cache"`
}

// Aggregator accumulates per-operation call counts and latency samples plus
// global cache hit/miss counters. It is safe for concurrent use and is meant
// to be constructed once and injected wherever runs are recorded.
//
// Latency samples per operation are bounded by a FIFO ring (see sampleRing),
// so memory stays flat regardless of uptime.
type Aggregator struct {
	sampleCap int

	mu          sync.Mutex
	start       time.Time
	ops         map[string]*opStat
	cacheHits   int64
	cacheMisses int64
}

// NewAggregator creates an empty aggregator with the default sample capacity.
func NewAggregator() *Aggregator {
	return NewAggregatorWithCap(DefaultSampleCap)
}

// NewAggregatorWithCap creates an empty aggregator retaining at most
// sampleCap latency samples per operation. Capacities below 1 fall back to
// the default.
func NewAggregatorWithCap(sampleCap int) *Aggregator {
	if sampleCap < 1 {
		sampleCap = DefaultSampleCap
	}
	return &Aggregator{
		sampleCap: sampleCap,
		start:     time.Now(),
		ops:       make(map[string]*opStat),
	}
}

func (a *Aggregator) stat(operation string) *opStat {
	s, ok := a.ops[operation]
	if !ok {
		s = &opStat{
			outcomes: make(map[Outcome]int64),
			latency:  newSampleRing(a.sampleCap),
		}
		a.ops[operation] = s
	}
	return s
}

// Record adds one completed attempt for the operation: the call counter,
// the success or error counter, and the latency sample. Called once per
// attempt, so a run that retried twice before succeeding contributes three
// records.
func (a *Aggregator) Record(operation string, success bool, latency time.Duration) {
	ms := float64(latency.Microseconds()) / 1000.0

	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stat(operation)
	s.calls++
	if success {
		s.successes++
	} else {
		s.errors++
	}
	s.latency.add(ms)
}

// RecordOutcome adds the terminal outcome of one run. Called exactly once
// per run regardless of how many attempts it took.
func (a *Aggregator) RecordOutcome(operation string, kind Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stat(operation).outcomes[kind]++
}

// RecordCache adds one cache lookup result.
func (a *Aggregator) RecordCache(hit bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if hit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
}

// Snapshot returns a copy of the current state. When reset is true the
// counters and samples are atomically zeroed with the snapshot taken; the
// start time, and therefore uptime, is unaffected by reset.
func (a *Aggregator) Snapshot(reset bool) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Stats{
		StartTime:  a.start,
		Uptime:     time.Since(a.start),
		Operations: make(map[string]OperationStats, len(a.ops)),
	}

	for name, s := range a.ops {
		outcomes := make(map[Outcome]int64, len(s.outcomes))
		for k, v := range s.outcomes {
			outcomes[k] = v
		}
		snap.Operations[name] = OperationStats{
			Calls:     s.calls,
			Successes: s.successes,
			Errors:    s.errors,
			Outcomes:  outcomes,
			Latency:   summarize(s.latency.samples()),
		}
		snap.TotalCalls += s.calls
	}

	lookups := a.cacheHits + a.cacheMisses
	snap.Cache = CacheStats{Hits: a.cacheHits, Misses: a.cacheMisses}
	if lookups > 0 {
		snap.Cache.HitRate = float64(a.cacheHits) / float64(lookups)
	}

	if reset {
		a.ops = make(map[string]*opStat)
		a.cacheHits = 0
		a.cacheMisses = 0
	}

	return snap
}

// summarize computes latency statistics over the retained samples.
func summarize(samples []float64) LatencyStats {
	n := len(samples)
	if n == 0 {
		return LatencyStats{}
	}

	sort.Float64s(samples)

	var sum float64
	for _, v := range samples {
		sum += v
	}

	return LatencyStats{
		Samples: n,
		AvgMs:   sum / float64(n),
		MinMs:   samples[0],
		MaxMs:   samples[n-1],
		P95Ms:   percentile(samples, 0.95),
		P99Ms:   percentile(samples, 0.99),
	}
}

// percentile selects the nearest-rank percentile from ascending sorted
// samples: index floor(n*q) clamped to the last element. Nearest-rank is
// deliberate; no caller depends on sub-sample interpolation.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * q)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
