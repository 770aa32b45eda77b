package cache

import (
	"testing"
	"time"
)

func TestPolicy_TTLFor(t *testing.T) {
	p := Policy{
		DefaultTTL: 0,
		MaxTTL:     24 * time.Hour,
		PerOperation: map[string]time.Duration{
			"get_historical_data": time.Hour,
			"list_datasets":       48 * time.Hour, // clamped
		},
	}

	tests := []struct {
		op   string
		want time.Duration
	}{
		{"get_historical_data", time.Hour},
		{"list_datasets", 24 * time.Hour},
		{"get_live_data", 0},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			if got := p.TTLFor(tt.op); got != tt.want {
				t.Errorf("TTLFor(%q) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     time.Hour,
	}

	tests := []struct {
		name     string
		override time.Duration
		want     time.Duration
	}{
		{"no override uses default", 0, 5 * time.Minute},
		{"negative override uses default", -1 * time.Second, 5 * time.Minute},
		{"override within max", 30 * time.Minute, 30 * time.Minute},
		{"override clamped to max", 2 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestNoCachePolicy(t *testing.T) {
	p := NoCachePolicy()
	if got := p.TTLFor("get_historical_data"); got != 0 {
		t.Errorf("TTLFor() = %v, want 0", got)
	}
	if got := p.EffectiveTTL(time.Hour); got != time.Hour {
		// With no MaxTTL the override passes through unclamped.
		t.Errorf("EffectiveTTL(1h) = %v, want 1h", got)
	}
}

func TestDefaultPolicy_CachedOperations(t *testing.T) {
	p := DefaultPolicy()

	if p.TTLFor("list_datasets") != 24*time.Hour {
		t.Error("dataset catalogue should cache for a day")
	}
	if p.TTLFor("get_cost") != 30*time.Minute {
		t.Error("cost estimates should cache for 30 minutes")
	}
	if p.TTLFor("get_live_data") != 0 {
		t.Error("live data must not be cached")
	}
}
