// Package invoke is the execution path every upstream request takes.
//
// An Executor composes the cache, the connection sources, the retry loop,
// and the metrics aggregator. Run checks the cache first; on a miss it
// acquires a client, executes the call under the retry policy while timing
// every attempt, records the terminal outcome exactly once, and stores a
// successful result back in the cache. Failed calls are never cached.
package invoke
