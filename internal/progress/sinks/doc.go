// Package sinks implements concrete progress consumers such as Prometheus
// metrics and structured logging. Each sink satisfies progress.Sink.
package sinks
