// Package pool manages upstream client lifetimes for tool execution.
//
// A Source hands out clients of one kind. Singleton keeps a single shared
// client, constructed lazily on first acquire and deduplicated under
// concurrency, for request/response upstreams where reconnecting per call
// would waste handshakes. Fresh constructs a throwaway client per acquire
// for streaming upstreams whose sessions cannot be reused once stopped.
//
// Reset on a Singleton swaps the reference rather than tearing the old
// client down: operations already holding it finish normally, and the next
// acquire reconstructs. Factory failures surface as *ConstructionError
// wrapping the original cause.
//
// Usage:
//
//	hist := pool.NewSingleton(func(ctx context.Context) (*upstream.HistoricalClient, error) {
//		return upstream.NewHistoricalClient(cfg)
//	})
//
//	client, err := hist.Acquire(ctx)
//	if err != nil {
//		return err
//	}
package pool
