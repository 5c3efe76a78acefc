// Package telemetry exports rope pool statistics and stress-run timings as
// Prometheus metrics.
//
// A Collector reads a pool's Stats on every scrape, so it adds no cost to
// rope operations. StressMetrics records per-round durations for the
// stress command. Serve exposes a registry over HTTP for the lifetime of a
// context.
package telemetry
