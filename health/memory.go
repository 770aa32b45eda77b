package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap-usage fraction that reports degraded.
	// Must be in (0, 1). Default: 0.8.
	WarningThreshold float64

	// CriticalThreshold is the heap-usage fraction that reports unhealthy.
	// Must be in (0, 1). Default: 0.95.
	CriticalThreshold float64

	// MaxAlloc is the allocation budget in bytes the thresholds apply to.
	// Zero means the runtime's Sys figure.
	MaxAlloc uint64
}

// MemoryChecker reports on process heap usage.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold
	}
	return &MemoryChecker{config: config}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string { return "memory" }

// Check reads runtime memory stats and compares heap usage against the
// configured thresholds.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	usageRatio := float64(stats.Alloc) / float64(maxAlloc)

	details := map[string]any{
		"alloc_bytes":  stats.Alloc,
		"sys_bytes":    stats.Sys,
		"heap_objects": stats.HeapObjects,
		"num_gc":       stats.NumGC,
		"goroutines":   runtime.NumGoroutine(),
	}

	switch {
	case usageRatio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", usageRatio*100), ErrCheckFailed).
			WithDetails(details)
	case usageRatio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", usageRatio*100)).
			WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", usageRatio*100)).
			WithDetails(details)
	}
}
