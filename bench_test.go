package rpcgate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/rpcgate/xmlrpc"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricCallSession)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricCallSession)
	}
}

var mixedHotMetricIDs = [...]MetricID{
	MetricCallReceived,
	MetricCallSession,
	MetricCallBypass,
	MetricCallUnauthorized,
	MetricSessionRefreshed,
}

func BenchmarkMetricsIncMixedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(mixedHotMetricIDs[idx])
			idx++
			if idx == len(mixedHotMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricCallLatency, d)
		}
	})
}

func newBenchServer(b *testing.B) (*Server, string) {
	b.Helper()
	cfg := DefaultConfig()
	srv, err := New().
		WithConfig(cfg).
		HandleFunc("echo", echoHandler).
		HandleFunc(cfg.Methods.Login, okHandler).
		Build()
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	b.Cleanup(srv.Close)

	token := "bench-session-token"
	if err := srv.Store().Set(context.Background(), token); err != nil {
		b.Fatalf("Set: %v", err)
	}
	return srv, testCookie + "=" + token
}

func benchCall(b *testing.B, srv *Server, method, cookieHeader string, want int) {
	body, err := xmlrpc.EncodeCall(method, "x", 1)
	if err != nil {
		b.Fatalf("EncodeCall: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest(http.MethodPost, "/RPC2", bytes.NewReader(body))
			if cookieHeader != "" {
				req.Header.Set("Cookie", cookieHeader)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != want {
				b.Errorf("expected %d, got %d", want, rec.Code)
				return
			}
		}
	})
}

func BenchmarkServeSession(b *testing.B) {
	srv, cookieHeader := newBenchServer(b)
	benchCall(b, srv, "echo", cookieHeader, http.StatusOK)
}

func BenchmarkServeBypass(b *testing.B) {
	srv, _ := newBenchServer(b)
	benchCall(b, srv, ListMethodsName, "", http.StatusOK)
}

func BenchmarkServeUnauthorized(b *testing.B) {
	srv, _ := newBenchServer(b)
	benchCall(b, srv, "echo", "", http.StatusUnauthorized)
}
