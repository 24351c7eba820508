// Package progress provides the event primitives, non-blocking hub, and emitter
// interface that source workers use to report ingestion progress. Events are
// batched on a background goroutine and fanned out to pluggable sinks such as
// Prometheus metrics or structured logs.
package progress
