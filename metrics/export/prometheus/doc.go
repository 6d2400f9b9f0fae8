// Package prometheus exposes goGuard engine counters through
// client_golang.
//
// [Collector] converts each [goGuard.MetricsSnapshot] into constant
// metrics at scrape time. Counters are named goguard_*_total and token
// verification latency is the goguard_validate_latency_seconds histogram.
// [Handler] registers a collector in its own registry, so mounting it never
// touches the global default registry.
package prometheus
