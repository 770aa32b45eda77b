package cache

import "time"

// Policy configures caching behavior per operation.
type Policy struct {
	// DefaultTTL is the TTL for operations not listed in PerOperation.
	// If zero, unlisted operations are not cached.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Higher TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// PerOperation overrides the TTL for specific operation names.
	PerOperation map[string]time.Duration
}

// DefaultPolicy returns the caching policy used for upstream operations.
// Slow-moving catalogue data keeps for a day, historical pulls for an
// hour, and cost estimates for half an hour.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 0,
		MaxTTL:     24 * time.Hour,
		PerOperation: map[string]time.Duration{
			"get_historical_data": time.Hour,
			"get_dataset_range":   time.Hour,
			"resolve_symbols":     2 * time.Hour,
			"get_cost":            30 * time.Minute,
			"list_datasets":       24 * time.Hour,
			"list_schemas":        24 * time.Hour,
			"list_publishers":     24 * time.Hour,
			"list_fields":         24 * time.Hour,
		},
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// TTLFor returns the TTL for an operation, applying overrides and clamping.
// Zero means the operation's results are not cached.
func (p Policy) TTLFor(operation string) time.Duration {
	ttl := p.DefaultTTL
	if v, ok := p.PerOperation[operation]; ok {
		ttl = v
	}
	return p.clamp(ttl)
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
// A non-positive override falls back to DefaultTTL.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	return p.clamp(ttl)
}

func (p Policy) clamp(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}
