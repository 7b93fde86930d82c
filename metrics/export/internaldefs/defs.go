package internaldefs

import (
	"github.com/MrEthical07/rpcgate"
)

// CounterDef binds a router counter to its exported name.
type CounterDef struct {
	ID   rpcgate.MetricID
	Name string
	Help string
}

// HistogramDef binds a router histogram to its exported name.
type HistogramDef struct {
	ID   rpcgate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "rpcgate_events_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Diagnostic events dropped due to dispatcher backpressure."

// CounterDefs lists every exported router counter.
var CounterDefs = []CounterDef{
	{ID: rpcgate.MetricCallReceived, Name: "rpcgate_calls_received_total", Help: "Requests that reached the router."},
	{ID: rpcgate.MetricCallBypass, Name: "rpcgate_calls_bypass_total", Help: "Calls admitted by the bypass list."},
	{ID: rpcgate.MetricCallDeveloper, Name: "rpcgate_calls_developer_total", Help: "Calls admitted by developer mode."},
	{ID: rpcgate.MetricCallLogin, Name: "rpcgate_calls_login_total", Help: "Calls to the login method."},
	{ID: rpcgate.MetricCallSession, Name: "rpcgate_calls_session_total", Help: "Calls admitted by a live session."},
	{ID: rpcgate.MetricCallUnauthorized, Name: "rpcgate_calls_unauthorized_total", Help: "Calls answered 401."},
	{ID: rpcgate.MetricCallNotFound, Name: "rpcgate_calls_not_found_total", Help: "Calls answered 404."},
	{ID: rpcgate.MetricCallParseError, Name: "rpcgate_calls_parse_error_total", Help: "Request bodies the codec rejected."},
	{ID: rpcgate.MetricCallMethodNotAllowed, Name: "rpcgate_calls_method_not_allowed_total", Help: "Non-POST requests."},
	{ID: rpcgate.MetricHandlerFault, Name: "rpcgate_handler_fault_total", Help: "Calls answered with a fault."},
	{ID: rpcgate.MetricHandlerPanic, Name: "rpcgate_handler_panic_total", Help: "Recovered handler panics."},
	{ID: rpcgate.MetricCallTimeout, Name: "rpcgate_call_timeout_total", Help: "Calls answered with a timeout fault."},
	{ID: rpcgate.MetricCompletionDiscarded, Name: "rpcgate_completion_discarded_total", Help: "Handler completions that arrived after the call was answered."},
	{ID: rpcgate.MetricValidationFailure, Name: "rpcgate_validation_failure_total", Help: "Responses replaced by the invalid response fault."},
	{ID: rpcgate.MetricSessionIssued, Name: "rpcgate_session_issued_total", Help: "Session tokens minted on login."},
	{ID: rpcgate.MetricSessionRenewed, Name: "rpcgate_session_renewed_total", Help: "Logins that reused the request token."},
	{ID: rpcgate.MetricSessionRevoked, Name: "rpcgate_session_revoked_total", Help: "Sessions deleted on logout."},
	{ID: rpcgate.MetricSessionRefreshed, Name: "rpcgate_session_refreshed_total", Help: "Sessions refreshed by keep-alive."},
	{ID: rpcgate.MetricSessionStoreError, Name: "rpcgate_session_store_error_total", Help: "Failed session store operations."},
	{ID: rpcgate.MetricLoginThrottled, Name: "rpcgate_login_throttled_total", Help: "Login calls refused by the failed-login throttle."},
}

// HistogramDefs lists every exported router histogram.
var HistogramDefs = []HistogramDef{
	{ID: rpcgate.MetricCallLatency, Name: "rpcgate_call_latency_seconds", Help: "End-to-end call latency."},
}

// HistogramBounds are the upper bounds of the eight latency buckets, in
// seconds, as Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without the final +Inf bucket.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// CallOutcomeDef names the routing outcome a per-outcome call counter
// records.
type CallOutcomeDef struct {
	ID      rpcgate.MetricID
	Outcome string
}

// CallOutcomeName is the single labelled counter that exporters supporting
// attributes publish in place of the per-outcome call counters.
const (
	CallOutcomeName = "rpcgate_calls_total"
	CallOutcomeHelp = "Calls by routing outcome."
)

// CallOutcomeDefs lists the outcome label of every per-outcome call counter.
var CallOutcomeDefs = []CallOutcomeDef{
	{ID: rpcgate.MetricCallBypass, Outcome: "bypass"},
	{ID: rpcgate.MetricCallDeveloper, Outcome: "developer"},
	{ID: rpcgate.MetricCallLogin, Outcome: "login"},
	{ID: rpcgate.MetricCallSession, Outcome: "session"},
	{ID: rpcgate.MetricCallUnauthorized, Outcome: "unauthorized"},
	{ID: rpcgate.MetricCallNotFound, Outcome: "not_found"},
	{ID: rpcgate.MetricCallParseError, Outcome: "parse_error"},
	{ID: rpcgate.MetricCallMethodNotAllowed, Outcome: "method_not_allowed"},
	{ID: rpcgate.MetricLoginThrottled, Outcome: "throttled"},
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
