// Package observe provides observability primitives for market-data request
// execution: structured logging with credential redaction, OpenTelemetry
// tracing and metrics export, and an in-process aggregator that keeps
// per-operation latency statistics for the get_metrics surface.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer and aggregator into the
// request executor.
package observe
