package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func staticChecker(name string, result Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return result })
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register("a", staticChecker("a", Healthy("fine")))
	agg.Register("b", staticChecker("b", Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["a"].Status != StatusHealthy || results["b"].Status != StatusDegraded {
		t.Errorf("unexpected results: %+v", results)
	}
	if results["a"].Duration < 0 {
		t.Error("duration should be recorded")
	}
}

func TestAggregator_CheckUnknownName(t *testing.T) {
	agg := NewAggregator(0)
	if _, err := agg.Check(context.Background(), "nope"); !errors.Is(err, ErrCheckerNotFound) {
		t.Fatalf("Check() error = %v, want %v", err, ErrCheckerNotFound)
	}
}

func TestAggregator_SlowCheckTimesOut(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	agg.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		select {
		case <-time.After(5 * time.Second):
			return Healthy("too late")
		case <-ctx.Done():
			return Unhealthy("cancelled", ctx.Err())
		}
	}))

	results := agg.CheckAll(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Fatalf("slow check status = %v, want unhealthy", results["slow"].Status)
	}
}

func TestAggregator_RegistrationOrderStable(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register("first", staticChecker("first", Healthy("")))
	agg.Register("second", staticChecker("second", Healthy("")))
	agg.Register("first", staticChecker("first", Healthy(""))) // replace, not reorder

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Fatalf("CheckerNames() = %v", names)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{
			"a": Degraded(""), "b": Unhealthy("", nil),
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	if StatusHealthy.String() != "healthy" || StatusUnhealthy.String() != "unhealthy" {
		t.Error("unexpected status strings")
	}
	if Status(42).String() != "unknown" {
		t.Error("out-of-range status should print unknown")
	}
}
