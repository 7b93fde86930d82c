package rpcgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/MrEthical07/rpcgate/internal/audit"
	"github.com/MrEthical07/rpcgate/internal/rate"
	"github.com/MrEthical07/rpcgate/session"
	"github.com/MrEthical07/rpcgate/xmlrpc"
)

// Builder assembles a [Server]. A Builder is single-use: Build fails on the
// second call.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	registry       *Registry
	registerErrors []error

	codec          Codec
	validator      Validator
	sink           EventSink
	logger         *slog.Logger
	tracerProvider trace.TracerProvider

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config:   defaultConfig(),
		registry: NewRegistry(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores sessions in Redis instead of process memory. The caller
// keeps ownership of client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore uses store for sessions. It takes precedence over WithRedis.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// Handle registers h for method. Registration errors surface from Build.
func (b *Builder) Handle(method string, h Handler) *Builder {
	if err := b.registry.Register(method, h); err != nil {
		b.registerErrors = append(b.registerErrors, fmt.Errorf("register %q: %w", method, err))
	}
	return b
}

// HandleFunc registers fn for method.
func (b *Builder) HandleFunc(method string, fn func(ctx context.Context, params []any) (any, error)) *Builder {
	if fn == nil {
		return b.Handle(method, nil)
	}
	return b.Handle(method, HandlerFunc(fn))
}

// WithCodec replaces the default XML-RPC codec.
func (b *Builder) WithCodec(c Codec) *Builder {
	b.codec = c
	return b
}

// WithValidator checks every serialized response with v. It overrides
// Config.Validation.
func (b *Builder) WithValidator(v Validator) *Builder {
	b.validator = v
	return b
}

// WithEventSink receives diagnostic events. Events.Enabled must be set for
// the sink to be used.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider sets the provider used when Tracing.Enabled is true.
// Defaults to the global provider.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithDeveloperMode toggles the developer override.
func (b *Builder) WithDeveloperMode(enabled bool) *Builder {
	b.config.Developer.Enabled = enabled
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the call latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithLoginThrottle enables the failed-login throttle.
func (b *Builder) WithLoginThrottle(maxFailures int, window time.Duration) *Builder {
	b.config.Throttle.Enabled = true
	b.config.Throttle.MaxFailures = maxFailures
	b.config.Throttle.Window = window
	return b
}

// Build validates the configuration, creates the session store when none
// was supplied, freezes the registry, and returns the Server.
func (b *Builder) Build() (*Server, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if len(b.registerErrors) > 0 {
		return nil, errors.Join(b.registerErrors...)
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := b.buildStore(cfg)
	if err != nil {
		return nil, err
	}

	if !b.registry.Has(ListMethodsName) {
		if err := b.registry.Register(ListMethodsName, listMethodsHandler{registry: b.registry}); err != nil {
			return nil, err
		}
	}
	b.registry.Freeze()

	codec := b.codec
	if codec == nil {
		codec = xmlrpc.Codec{}
	}

	validator := b.validator
	if validator == nil && cfg.Validation.Enabled {
		validator = xmlrpc.ResponseValidator{MaxBytes: cfg.Validation.MaxResponseBytes}
	}

	invalidBody, err := xmlrpc.EncodeFault(xmlrpc.NewFault(xmlrpc.FaultInternal, InvalidResponseMessage))
	if err != nil {
		return nil, fmt.Errorf("encode invalid response fault: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	var tp trace.TracerProvider = noop.NewTracerProvider()
	if cfg.Tracing.Enabled {
		tp = b.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
	}

	sink := b.sink
	if sink == nil {
		sink = audit.SlogSink{Logger: logger, Level: slog.LevelInfo}
	}

	srv := &Server{
		cfg:       cfg,
		policy:    NewPolicy(cfg, store),
		registry:  b.registry,
		store:     store,
		codec:     codec,
		validator: validator,
		events: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Events.Enabled,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, sink),
		throttle:    b.buildThrottle(cfg),
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger,
		tracer:      tp.Tracer(cfg.Tracing.TracerName),
		invalidBody: invalidBody,
	}

	b.built = true
	return srv, nil
}

func (b *Builder) buildStore(cfg Config) (session.Store, error) {
	switch {
	case b.store != nil:
		return b.store, nil
	case b.redis != nil:
		return session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL)
	default:
		var opts []session.MemoryOption
		if cfg.Session.MaxEntries > 0 {
			opts = append(opts, session.WithMaxEntries(cfg.Session.MaxEntries))
		}
		return session.NewMemoryStore(cfg.Session.TTL, opts...)
	}
}

// buildThrottle shares counters through Redis when the session store does.
func (b *Builder) buildThrottle(cfg Config) rate.Limiter {
	if !cfg.Throttle.Enabled {
		return nil
	}
	rc := rate.Config{
		MaxFailures: cfg.Throttle.MaxFailures,
		Window:      cfg.Throttle.Window,
		Prefix:      cfg.Throttle.RedisPrefix,
	}
	if b.redis != nil {
		return rate.NewRedis(b.redis, rc)
	}
	return rate.NewMemory(rc, nil)
}
