package health

import (
	"context"
	"testing"
)

func TestMemoryChecker_Defaults(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{})

	result := m.Check(context.Background())
	if result.Status == StatusUnhealthy && result.Error == nil {
		t.Error("unhealthy result should carry an error")
	}
	if result.Details["goroutines"] == nil {
		t.Error("details should include goroutine count")
	}
}

func TestMemoryChecker_HugeBudgetIsHealthy(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{MaxAlloc: 1 << 50})

	if result := m.Check(context.Background()); result.Status != StatusHealthy {
		t.Fatalf("status = %v (%s), want healthy", result.Status, result.Message)
	}
}

func TestMemoryChecker_TinyBudgetIsUnhealthy(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{MaxAlloc: 1})

	if result := m.Check(context.Background()); result.Status != StatusUnhealthy {
		t.Fatalf("status = %v, want unhealthy", result.Status)
	}
}

func TestMemoryChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemoryChecker(MemoryCheckerConfig{})
	if result := m.Check(ctx); result.Status != StatusUnhealthy {
		t.Fatalf("status = %v, want unhealthy", result.Status)
	}
}
