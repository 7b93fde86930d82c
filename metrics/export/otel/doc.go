// Package otel publishes router counters through an OpenTelemetry Meter.
//
// [NewOTelExporter] folds the per-outcome call counters into one
// rpcgate_calls_total counter carrying an "outcome" attribute (bypass,
// session, unauthorized and so on). Other router counters keep their own
// Int64ObservableCounter. Latency buckets are one Int64ObservableGauge keyed
// by an "le" attribute. A single callback reads
// [rpcgate.Server.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate router state.
package otel
