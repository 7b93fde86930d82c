package rpcgate

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrEthical07/rpcgate/internal/audit"
	"github.com/MrEthical07/rpcgate/internal/cookie"
	"github.com/MrEthical07/rpcgate/internal/rate"
	"github.com/MrEthical07/rpcgate/session"
)

// Server is the session-authenticated call router. It implements
// http.Handler and is safe for concurrent use once built.
type Server struct {
	cfg       Config
	policy    *Policy
	registry  *Registry
	store     session.Store
	codec     Codec
	validator Validator
	events    *audit.Dispatcher
	throttle  rate.Limiter
	metrics   *Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	invalidBody []byte
}

// ServeHTTP runs one call through the router:
//
//	Received -> CookiesParsed -> Authorized|Rejected -> Dispatched -> ResponseBuilt -> Sent
//
// Every path writes exactly one status line and body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.metrics.Inc(MetricCallReceived)
	defer func() {
		s.metrics.Observe(MetricCallLatency, time.Since(start))
	}()

	ctx := r.Context()
	call := Call{RemoteAddr: r.RemoteAddr}

	if r.Method != http.MethodPost {
		s.metrics.Inc(MetricCallMethodNotAllowed)
		w.Header().Set("Allow", http.MethodPost)
		s.reject(ctx, w, EventMethodNotAllowed, call, http.StatusMethodNotAllowed, nil)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.Dispatch.MaxRequestBytes)
	method, params, err := s.codec.DecodeCall(body)
	if err != nil {
		s.metrics.Inc(MetricCallParseError)
		s.reject(ctx, w, EventParseError, call, http.StatusBadRequest, errors.Join(ErrMalformedRequest, err))
		return
	}
	call.Method = method
	call.Params = params

	ctx, span := s.startSpan(ctx, call)
	defer span.End()

	jar := cookie.FromRequest(r)

	if !s.registry.Has(call.Method) {
		// The session lookup still runs so a live cookie keeps sliding.
		if _, err := s.policy.Authorize(ctx, call.Method, jar); err != nil {
			s.metrics.Inc(MetricSessionStoreError)
		}
		s.metrics.Inc(MetricCallNotFound)
		endSpan(span, http.StatusNotFound, VerdictUnauthorized, ErrMethodNotFound)
		s.reject(ctx, w, EventNotFound, call, http.StatusNotFound, nil)
		return
	}

	verdict, err := s.policy.Authorize(ctx, call.Method, jar)
	if err != nil {
		s.metrics.Inc(MetricSessionStoreError)
		s.logger.WarnContext(ctx, "session lookup failed",
			slog.String("method", call.Method),
			slog.String("remote", call.RemoteAddr),
			slog.Any("err", err),
		)
	}
	if !verdict.Authorized() {
		s.metrics.Inc(MetricCallUnauthorized)
		endSpan(span, http.StatusUnauthorized, verdict, ErrUnauthorized)
		s.reject(ctx, w, EventNotLogin, call, http.StatusUnauthorized, err)
		return
	}
	if id, ok := verdictMetric(verdict); ok {
		s.metrics.Inc(id)
	}

	throttled := verdict == VerdictLogin && s.throttle != nil
	if throttled && !s.allowLogin(ctx, w, span, call) {
		return
	}

	token, hasToken := jar.Get(s.cfg.Session.CookieName)
	ctx = withCallInfo(ctx, CallInfo{
		Method:       call.Method,
		RemoteAddr:   call.RemoteAddr,
		SessionToken: token,
		Verdict:      verdict,
	})

	result, callErr := s.dispatch(ctx, call)

	status := s.respond(ctx, w, responseState{
		call:     call,
		token:    token,
		hasToken: hasToken,
		result:   result,
		err:      callErr,
	})
	endSpan(span, status, verdict, callErr)

	if throttled {
		s.recordLogin(ctx, call, loginSucceeded(result, callErr))
	}
}

// allowLogin consults the failed-login throttle. It writes the 429 and
// returns false when the client is over budget. Limiter failures let the
// call through.
func (s *Server) allowLogin(ctx context.Context, w http.ResponseWriter, span trace.Span, call Call) bool {
	err := s.throttle.Check(ctx, clientKey(call.RemoteAddr))
	if err == nil {
		return true
	}
	if !errors.Is(err, rate.ErrRateLimited) {
		s.logger.WarnContext(ctx, "login throttle check failed",
			slog.String("remote", call.RemoteAddr),
			slog.Any("err", err),
		)
		return true
	}

	s.metrics.Inc(MetricLoginThrottled)
	endSpan(span, http.StatusTooManyRequests, VerdictLogin, ErrLoginThrottled)
	w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.Throttle.Window.Seconds())))
	s.reject(ctx, w, EventLoginThrottled, call, http.StatusTooManyRequests, ErrLoginThrottled)
	return false
}

func (s *Server) recordLogin(ctx context.Context, call Call, ok bool) {
	ctx = context.WithoutCancel(ctx)
	key := clientKey(call.RemoteAddr)

	var err error
	if ok {
		err = s.throttle.Reset(ctx, key)
	} else {
		err = s.throttle.Fail(ctx, key)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "login throttle update failed",
			slog.String("remote", call.RemoteAddr),
			slog.Bool("success", ok),
			slog.Any("err", err),
		)
	}
}

// clientKey strips the port from a remote address.
func clientKey(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

// reject ends the request with an empty body.
func (s *Server) reject(ctx context.Context, w http.ResponseWriter, event string, call Call, status int, err error) {
	s.emit(ctx, event, call, status, err)

	attrs := []any{
		slog.String("event", event),
		slog.String("method", call.Method),
		slog.String("remote", call.RemoteAddr),
		slog.Int("status", status),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("err", err))
	}
	s.logger.DebugContext(ctx, "call rejected", attrs...)

	w.WriteHeader(status)
}

func (s *Server) startSpan(ctx context.Context, call Call) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "rpcgate.call "+call.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "xmlrpc"),
			attribute.String("rpc.method", call.Method),
			attribute.Int("rpc.param_count", len(call.Params)),
			attribute.String("client.address", call.RemoteAddr),
		),
	)
}

func endSpan(span trace.Span, status int, verdict Verdict, err error) {
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.String("rpcgate.verdict", verdict.String()),
	)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusBadRequest:
		span.SetStatus(codes.Error, http.StatusText(status))
	default:
		span.SetStatus(codes.Ok, "")
	}
}

// Authenticate checks the session cookie on a plain HTTP request against the
// session store and returns its token. Bypass rules and developer mode do not
// apply. A successful lookup slides the session's age.
func (s *Server) Authenticate(r *http.Request) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrServerNotReady
	}
	token, ok := cookie.FromRequest(r).Get(s.cfg.Session.CookieName)
	if !ok || token == "" {
		return "", ErrUnauthorized
	}
	live, err := s.store.Get(r.Context(), token)
	if err != nil {
		s.metrics.Inc(MetricSessionStoreError)
		return "", errors.Join(ErrUnauthorized, ErrSessionStoreUnavailable, err)
	}
	if !live {
		return "", ErrUnauthorized
	}
	return token, nil
}

/*
====================================
INTROSPECTION
====================================
*/

// Logger returns the structured logger the server was built with. A nil
// server returns slog.Default().
func (s *Server) Logger() *slog.Logger {
	if s == nil || s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// HealthStatus reports session backend availability.
type HealthStatus struct {
	Available bool
	Latency   time.Duration
	Sessions  int
}

// Health pings the session store.
func (s *Server) Health(ctx context.Context) HealthStatus {
	if s == nil || s.store == nil {
		return HealthStatus{}
	}
	latency, err := s.store.Ping(ctx)
	if err != nil {
		return HealthStatus{Available: false, Latency: latency}
	}
	n, err := s.store.Len(ctx)
	if err != nil {
		return HealthStatus{Available: false, Latency: latency}
	}
	return HealthStatus{Available: true, Latency: latency, Sessions: n}
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount(ctx context.Context) (int, error) {
	if s == nil || s.store == nil {
		return 0, ErrServerNotReady
	}
	return s.store.Len(ctx)
}

// Store returns the session store the router consults.
func (s *Server) Store() session.Store {
	if s == nil {
		return nil
	}
	return s.store
}

// Methods returns the registered method names.
func (s *Server) Methods() []string {
	if s == nil || s.registry == nil {
		return nil
	}
	return s.registry.Names()
}

// Config returns a copy of the configuration the server was built with.
func (s *Server) Config() Config {
	if s == nil {
		return Config{}
	}
	return cloneConfig(s.cfg)
}

// MetricsSnapshot returns a copy of the router counters.
func (s *Server) MetricsSnapshot() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

// AuditDropped returns the number of diagnostic events dropped by
// dispatcher backpressure.
func (s *Server) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.events.Dropped()
}

// Close flushes pending diagnostic events. It does not close the session
// store, which the caller owns.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.events.Close()
}
