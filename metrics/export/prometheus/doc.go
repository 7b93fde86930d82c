// Package prometheus exposes router counters to Prometheus.
//
// [NewCollector] wraps an [rpcgate.Server] in a prometheus.Collector that
// reads [rpcgate.Server.MetricsSnapshot] on each scrape. Counter names are
// prefixed rpcgate_ and suffixed _total; the single histogram is
// rpcgate_call_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry. Callers register the
//     Collector themselves or mount [Collector.Handler].
//   - Mutate router state.
package prometheus
