package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/rpcgate"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot rpcgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() rpcgate.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := rpcgate.MetricsSnapshot{
		Counters:   make(map[rpcgate.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[rpcgate.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

// collectInt64 keys every int64 data point by metric name, followed by its
// encoded attributes in braces when it has any.
func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := map[string]int64{}
	record := func(name string, attrs attribute.Set, v int64) {
		if attrs.Len() > 0 {
			name += "{" + attrs.Encoded(attribute.DefaultEncoder()) + "}"
		}
		out[name] = v
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					record(m.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					record(m.Name, dp.Attributes, dp.Value)
				}
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("rpcgate-test")

	src := &fakeSource{
		snapshot: rpcgate.MetricsSnapshot{
			Counters: map[rpcgate.MetricID]uint64{
				rpcgate.MetricSessionIssued: 3,
			},
			Histograms: map[rpcgate.MetricID][]uint64{
				rpcgate.MetricCallLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectInt64(t, reader)
	checks := map[string]int64{
		"rpcgate_session_issued_total":                  3,
		"rpcgate_calls_received_total":                  0,
		"rpcgate_calls_total{outcome=session}":          0,
		"rpcgate_call_latency_seconds_bucket{le=0.005}": 1,
		"rpcgate_call_latency_seconds_bucket{le=0.1}":   5,
		"rpcgate_call_latency_seconds_bucket{le=+Inf}":  8,
		"rpcgate_call_latency_seconds_count":            8,
		"rpcgate_events_dropped_total":                  1,
	}
	for name, want := range checks {
		if v, ok := got[name]; !ok || v != want {
			t.Errorf("%s: expected %d, got %d (present=%v)", name, want, v, ok)
		}
	}
}

func TestExporterLabelsCallsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	src := &fakeSource{
		snapshot: rpcgate.MetricsSnapshot{
			Counters: map[rpcgate.MetricID]uint64{
				rpcgate.MetricCallReceived:     9,
				rpcgate.MetricCallBypass:       2,
				rpcgate.MetricCallSession:      4,
				rpcgate.MetricCallUnauthorized: 3,
			},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("rpcgate-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	got := collectInt64(t, reader)
	checks := map[string]int64{
		"rpcgate_calls_received_total":              9,
		"rpcgate_calls_total{outcome=bypass}":       2,
		"rpcgate_calls_total{outcome=session}":      4,
		"rpcgate_calls_total{outcome=unauthorized}": 3,
		"rpcgate_calls_total{outcome=developer}":    0,
	}
	for name, want := range checks {
		if v, ok := got[name]; !ok || v != want {
			t.Errorf("%s: expected %d, got %d (present=%v)", name, want, v, ok)
		}
	}
	for _, name := range []string{"rpcgate_calls_bypass_total", "rpcgate_calls_session_total"} {
		if _, ok := got[name]; ok {
			t.Errorf("%s must be folded into rpcgate_calls_total", name)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("rpcgate-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterObservesLiveServer(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	srv, err := rpcgate.New().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer srv.Close()

	exp, err := NewOTelExporter(provider.Meter("rpcgate-test"), srv)
	if err != nil {
		t.Fatalf("NewOTelExporter: %v", err)
	}
	defer exp.Close()

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/RPC2", nil))

	got := collectInt64(t, reader)
	if got["rpcgate_calls_total{outcome=method_not_allowed}"] != 1 {
		t.Fatalf("expected method_not_allowed=1, got %v", got)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("rpcgate-test")

	src := &fakeSource{
		snapshot: rpcgate.MetricsSnapshot{
			Counters: map[rpcgate.MetricID]uint64{
				rpcgate.MetricCallSession: 1,
			},
			Histograms: map[rpcgate.MetricID][]uint64{
				rpcgate.MetricCallLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[rpcgate.MetricCallSession] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
