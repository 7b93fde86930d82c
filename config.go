package rpcgate

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/rpcgate/session"
)

// Environment variables read by [Config.LoadEnv].
const (
	EnvDeveloperMode = "RPCGATE_DEV_MODE"
	EnvDeveloperIPs  = "RPCGATE_DEV_IPS"
	EnvSessionTTL    = "RPCGATE_SESSION_TTL_MINUTES"
)

// Config is the complete router configuration. It is read once at Build and
// treated as immutable afterwards.
type Config struct {
	Methods    MethodsConfig
	Session    SessionConfig
	Cookie     CookieConfig
	Bypass     BypassConfig
	Developer  DeveloperConfig
	Dispatch   DispatchConfig
	Throttle   ThrottleConfig
	Validation ValidationConfig
	Events     EventsConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
}

/*
====================================
METHOD NAMES
====================================
*/

// MethodsConfig names the calls that manage session state.
type MethodsConfig struct {
	Login     string
	Logout    string
	KeepAlive string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session token cache and the cookie carrying it.
type SessionConfig struct {
	CookieName string
	// TTL is the idle lifetime; every authorized lookup resets it.
	TTL time.Duration
	// MaxEntries bounds the in-memory store; zero selects
	// session.DefaultMaxEntries. Ignored by the Redis store.
	MaxEntries  int
	RedisPrefix string
}

// CookieConfig sets optional attributes on issued session cookies. The zero
// value emits a bare name=value cookie.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// BypassConfig lists methods that never require a session.
type BypassConfig struct {
	Methods []string
}

// DeveloperConfig controls the developer override. When Enabled, every
// registered method is authorized without a session.
//
// AllowedIPs is parsed and validated but not consulted by the authorization
// decision.
type DeveloperConfig struct {
	Enabled    bool
	AllowedIPs []string
}

/*
====================================
DISPATCH CONFIG
====================================
*/

// DispatchConfig bounds per-call resource use.
type DispatchConfig struct {
	// CallTimeout is how long the router waits for a handler to complete
	// before answering with an ErrCallTimeout fault. Zero waits indefinitely.
	CallTimeout     time.Duration
	MaxRequestBytes int64
}

// ThrottleConfig limits failed logins per client address. A login fails
// when its handler returns a fault or a non-zero ErrorCode. Once a client
// reaches MaxFailures within Window, further login calls are answered 429
// until the window expires or a login succeeds.
type ThrottleConfig struct {
	Enabled     bool
	MaxFailures int
	Window      time.Duration
	RedisPrefix string
}

// ValidationConfig enables the built-in response validator when no custom
// validator is supplied to the Builder.
type ValidationConfig struct {
	Enabled          bool
	MaxResponseBytes int
}

// EventsConfig controls the diagnostic event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// TracingConfig controls OpenTelemetry spans around each call.
type TracingConfig struct {
	Enabled    bool
	TracerName string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultBypassMethods are exempt from session checks unless overridden.
var DefaultBypassMethods = []string{
	"system.listMethods",
	"system.methodHelp",
	"system.methodSignature",
	"provisioning.register",
	"provisioning.getConfig",
	"provisioning.heartbeat",
}

func defaultConfig() Config {
	return Config{
		Methods: MethodsConfig{
			Login:     "authorization.login",
			Logout:    "authorization.logout",
			KeepAlive: "opKeepSessionAlive",
		},
		Session: SessionConfig{
			CookieName:  "ASP.NET_sessionID",
			TTL:         session.DefaultTTL,
			MaxEntries:  session.DefaultMaxEntries,
			RedisPrefix: "rs",
		},
		Bypass: BypassConfig{
			Methods: append([]string(nil), DefaultBypassMethods...),
		},
		Dispatch: DispatchConfig{
			CallTimeout:     30 * time.Second,
			MaxRequestBytes: 1 << 20,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxFailures: 5,
			Window:      15 * time.Minute,
			RedisPrefix: "rl",
		},
		Validation: ValidationConfig{
			Enabled: false,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			TracerName: "rpcgate",
		},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Bypass.Methods = append([]string(nil), cfg.Bypass.Methods...)
	out.Developer.AllowedIPs = append([]string(nil), cfg.Developer.AllowedIPs...)
	return out
}

/*
====================================
ENVIRONMENT
====================================
*/

// LoadEnv overlays developer and session settings from the process
// environment. Unset variables leave the current values untouched.
func (c *Config) LoadEnv() error {
	return c.loadEnv(os.LookupEnv)
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDeveloperMode); ok && strings.TrimSpace(v) != "" {
		enabled, err := parseToggle(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDeveloperMode, err)
		}
		c.Developer.Enabled = enabled
	}

	if v, ok := lookup(EnvDeveloperIPs); ok {
		c.Developer.AllowedIPs = splitList(v)
	}

	if v, ok := lookup(EnvSessionTTL); ok && strings.TrimSpace(v) != "" {
		minutes, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || minutes <= 0 {
			return fmt.Errorf("%s: expected positive minutes, got %q", EnvSessionTTL, v)
		}
		c.Session.TTL = time.Duration(minutes) * time.Minute
	}

	return nil
}

func parseToggle(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid toggle %q", v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, if any.
func (c *Config) Validate() error {
	// Methods
	names := []struct {
		field string
		name  string
	}{
		{"Login", c.Methods.Login},
		{"Logout", c.Methods.Logout},
		{"KeepAlive", c.Methods.KeepAlive},
	}
	for _, n := range names {
		if err := validateMethodName(n.name); err != nil {
			return fmt.Errorf("Methods %s: %w", n.field, err)
		}
	}
	if c.Methods.Login == c.Methods.Logout ||
		c.Methods.Login == c.Methods.KeepAlive ||
		c.Methods.Logout == c.Methods.KeepAlive {
		return errors.New("Methods Login, Logout and KeepAlive must be distinct")
	}

	// Session
	if !validCookieName(c.Session.CookieName) {
		return fmt.Errorf("Session CookieName %q is not a valid cookie name", c.Session.CookieName)
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.MaxEntries < 0 {
		return errors.New("Session MaxEntries must be >= 0")
	}

	// Cookie
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Bypass
	for _, m := range c.Bypass.Methods {
		if err := validateMethodName(m); err != nil {
			return fmt.Errorf("Bypass method %q: %w", m, err)
		}
	}

	// Developer
	for _, ip := range c.Developer.AllowedIPs {
		if _, err := parseIPOrPrefix(ip); err != nil {
			return fmt.Errorf("Developer AllowedIPs: %w", err)
		}
	}

	// Dispatch
	if c.Dispatch.CallTimeout < 0 {
		return errors.New("Dispatch CallTimeout must be >= 0")
	}
	if c.Dispatch.MaxRequestBytes <= 0 {
		return errors.New("Dispatch MaxRequestBytes must be > 0")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxFailures <= 0 {
			return errors.New("Throttle MaxFailures must be > 0 when enabled")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0 when enabled")
		}
	}

	if c.Validation.MaxResponseBytes < 0 {
		return errors.New("Validation MaxResponseBytes must be >= 0")
	}

	if c.Events.BufferSize < 0 {
		return errors.New("Events BufferSize must be >= 0")
	}

	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.TracerName) == "" {
		return errors.New("Tracing TracerName must be set when tracing is enabled")
	}

	return nil
}

func validateMethodName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return ErrInvalidMethodName
	}
	return nil
}

// validCookieName reports whether name is an RFC 6265 token.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch <= ' ' || ch >= 0x7f {
			return false
		}
		if strings.IndexByte(`()<>@,;:\"/[]?={}`, ch) >= 0 {
			return false
		}
	}
	return true
}

func parseIPOrPrefix(v string) (netip.Prefix, error) {
	if strings.Contains(v, "/") {
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid prefix %q: %w", v, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid ip %q: %w", v, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a configuration that is valid but likely unintended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error.
func (r LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range r.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}

// Lint reports valid but risky settings.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Developer.Enabled {
		add("developer_mode_enabled", LintHigh, "developer mode authorizes every call without a session")
	}
	if len(c.Developer.AllowedIPs) > 0 {
		add("developer_ips_unused", LintInfo, "developer IP allow-list is parsed but does not affect authorization")
	}

	for _, m := range c.Bypass.Methods {
		switch m {
		case c.Methods.Login, c.Methods.Logout, c.Methods.KeepAlive:
			add("bypass_session_method", LintWarn, fmt.Sprintf("bypassed method %q never issues or revokes session cookies", m))
		}
	}

	if c.Dispatch.CallTimeout == 0 {
		add("call_timeout_disabled", LintWarn, "a handler that never completes holds its request open forever")
	}
	if c.Session.TTL > 24*time.Hour {
		add("session_ttl_long", LintWarn, "session idle lifetime exceeds 24h")
	}
	if !c.Cookie.Secure {
		add("cookie_insecure", LintInfo, "session cookie is sent over plain HTTP")
	}
	if !c.Throttle.Enabled {
		add("login_throttle_disabled", LintInfo, "failed logins are not rate limited")
	}
	if !c.Events.Enabled {
		add("events_disabled", LintInfo, "rejected calls are not reported to an event sink")
	}

	return ws
}
