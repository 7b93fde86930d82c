package main

import (
	"strings"
	"testing"
)

const baselineOutput = `goos: linux
BenchmarkServeSession-8        100000   10000 ns/op   2048 B/op   30 allocs/op
BenchmarkServeSession-8        100000   12000 ns/op   2048 B/op   30 allocs/op
BenchmarkServeSession-8        100000   11000 ns/op   2048 B/op   30 allocs/op
BenchmarkServeBypass-8         100000    8000 ns/op   1024 B/op   20 allocs/op
BenchmarkServeUnauthorized-8   200000    3000 ns/op
BenchmarkMetricsInc-8        50000000       2.0 ns/op   0 B/op    0 allocs/op
BenchmarkUntracked-8             1000       1.0 ns/op
PASS
`

func TestParseBenchmarks(t *testing.T) {
	got, err := parseBenchmarks(strings.NewReader(baselineOutput))
	if err != nil {
		t.Fatalf("parseBenchmarks: %v", err)
	}
	if n := len(got["BenchmarkServeSession"]["ns/op"]); n != 3 {
		t.Fatalf("expected 3 session samples, got %d", n)
	}
	if _, ok := got["BenchmarkUntracked"]; ok {
		t.Fatal("untracked benchmark must be skipped")
	}
	if v := got["BenchmarkMetricsInc"]["ns/op"]; len(v) != 1 || v[0] != 2.0 {
		t.Fatalf("unexpected MetricsInc samples %v", v)
	}
}

func TestCompareFlagsRegression(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput))
	slower := strings.ReplaceAll(baselineOutput, "8000 ns/op", "16000 ns/op")
	cand, _ := parseBenchmarks(strings.NewReader(slower))

	_, failures := compare(base, cand, defaultThreshold)
	if len(failures) != 1 || !strings.Contains(failures[0], "BenchmarkServeBypass ns/op") {
		t.Fatalf("expected one bypass regression, got %v", failures)
	}

	results, failures := compare(base, base, defaultThreshold)
	if len(failures) != 0 {
		t.Fatalf("identical runs must not fail: %v", failures)
	}
	if len(results) == 0 || results[0].benchmark != "BenchmarkMetricsInc" {
		t.Fatalf("expected sorted results, got %+v", results)
	}
}

func TestCompareMissingSamples(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput))
	_, failures := compare(base, sampleSet{}, defaultThreshold)
	if len(failures) == 0 {
		t.Fatal("expected missing sample failures")
	}
}

func TestNormalizeBenchmarkNameAndMedian(t *testing.T) {
	if got := normalizeBenchmarkName("BenchmarkServeSession-16"); got != "BenchmarkServeSession" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeBenchmarkName("BenchmarkServe-Session"); got != "BenchmarkServe-Session" {
		t.Fatalf("got %q", got)
	}
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median: %v", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median: %v", got)
	}
}
