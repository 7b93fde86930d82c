package rpcgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one router counter or histogram.
type MetricID uint16

const (
	// MetricCallReceived counts every request that reached the router.
	MetricCallReceived MetricID = iota
	// MetricCallBypass counts calls admitted by the bypass list.
	MetricCallBypass
	// MetricCallDeveloper counts calls admitted by developer mode.
	MetricCallDeveloper
	// MetricCallLogin counts calls to the login method.
	MetricCallLogin
	// MetricCallSession counts calls admitted by a live session.
	MetricCallSession
	// MetricCallUnauthorized counts 401 responses.
	MetricCallUnauthorized
	// MetricCallNotFound counts 404 responses.
	MetricCallNotFound
	// MetricCallParseError counts request bodies the codec rejected.
	MetricCallParseError
	// MetricCallMethodNotAllowed counts non-POST requests.
	MetricCallMethodNotAllowed
	// MetricHandlerFault counts handler completions carrying an error.
	MetricHandlerFault
	// MetricHandlerPanic counts recovered handler panics.
	MetricHandlerPanic
	// MetricCallTimeout counts calls answered with ErrCallTimeout.
	MetricCallTimeout
	// MetricCompletionDiscarded counts handler completions that arrived after
	// the call was already answered.
	MetricCompletionDiscarded
	// MetricValidationFailure counts responses replaced by the 500 fault.
	MetricValidationFailure
	// MetricSessionIssued counts fresh tokens minted on login.
	MetricSessionIssued
	// MetricSessionRenewed counts logins that reused the request's token.
	MetricSessionRenewed
	// MetricSessionRevoked counts logouts that deleted a token.
	MetricSessionRevoked
	// MetricSessionRefreshed counts keep-alive refreshes.
	MetricSessionRefreshed
	// MetricSessionStoreError counts failed session store operations.
	MetricSessionStoreError
	// MetricLoginThrottled counts login calls answered 429.
	MetricLoginThrottled
	// MetricCallLatency is the end-to-end call latency histogram.
	MetricCallLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free router counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricCallLatency carries a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricCallLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, plus the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricCallLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCallLatency].buckets[i])
		}
		s.Histograms[MetricCallLatency] = buckets
	}

	return s
}

// verdictMetric maps an admitting verdict to its counter.
func verdictMetric(v Verdict) (MetricID, bool) {
	switch v {
	case VerdictBypass:
		return MetricCallBypass, true
	case VerdictDeveloper:
		return MetricCallDeveloper, true
	case VerdictLogin:
		return MetricCallLogin, true
	case VerdictSession:
		return MetricCallSession, true
	}
	return 0, false
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
