// Package otel publishes goGuard engine counters as OpenTelemetry
// observable instruments.
//
// [NewExporter] creates one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket, then reads
// [goGuard.Engine.MetricsSnapshot] from a single callback on each
// collection. The caller owns the MeterProvider; [Exporter.Close]
// unregisters the callback.
package otel
