package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/rpcgate"
	"github.com/MrEthical07/rpcgate/metrics/export/prometheus"
	guard "github.com/MrEthical07/rpcgate/middleware"
)

type serveOptions struct {
	addr           string
	path           string
	redisAddr      string
	ttl            time.Duration
	devMode        bool
	metrics        bool
	protectMetrics bool
	validate       bool
	events         bool
	logLevel       string
	demoPassword   string
	throttleMax    int
	throttleWindow time.Duration
}

func serveCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the XML-RPC endpoint",
		Long: `Serve the XML-RPC endpoint with demo handlers.

Developer mode and the developer IP list are read from RPCGATE_DEV_MODE
and RPCGATE_DEV_IPS; flags given on the command line take precedence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", ":9090", "listen address")
	flags.StringVar(&opts.path, "path", "/RPC2", "XML-RPC endpoint path")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "store sessions in Redis at this address instead of memory")
	flags.DurationVar(&opts.ttl, "ttl", rpcgate.DefaultConfig().Session.TTL, "session idle lifetime")
	flags.BoolVar(&opts.devMode, "dev-mode", false, "authorize every call without a session")
	flags.BoolVar(&opts.metrics, "metrics", true, "serve Prometheus metrics at /metrics")
	flags.BoolVar(&opts.protectMetrics, "protect-metrics", false, "require a session cookie for /metrics")
	flags.BoolVar(&opts.validate, "validate", false, "validate every response before sending it")
	flags.BoolVar(&opts.events, "events", true, "log rejected calls as diagnostic events")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.IntVar(&opts.throttleMax, "throttle-failures", 0, "refuse logins from a client after this many failures (0 disables)")
	flags.DurationVar(&opts.throttleWindow, "throttle-window", 15*time.Minute, "failed-login counting window")
	flags.StringVar(&opts.demoPassword, "demo-password", "secret", "password accepted by the demo login handler")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := rpcgate.DefaultConfig()
	if err := cfg.LoadEnv(); err != nil {
		return err
	}
	if cmd.Flags().Changed("dev-mode") {
		cfg.Developer.Enabled = opts.devMode
	}
	if cmd.Flags().Changed("ttl") {
		cfg.Session.TTL = opts.ttl
	}
	cfg.Validation.Enabled = opts.validate
	cfg.Events.Enabled = opts.events
	cfg.Metrics.Enabled = opts.metrics
	cfg.Metrics.EnableLatencyHistograms = opts.metrics

	for _, w := range cfg.Lint().BySeverity(rpcgate.LintWarn) {
		logger.Warn("config lint", slog.String("code", w.Code), slog.String("severity", w.Severity.String()), slog.String("message", w.Message))
	}

	b := rpcgate.New().WithConfig(cfg).WithLogger(logger)
	if opts.throttleMax > 0 {
		b.WithLoginThrottle(opts.throttleMax, opts.throttleWindow)
	}
	registerDemoHandlers(b, cfg, opts.demoPassword)

	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer rdb.Close()
		b.WithRedis(rdb)
	}

	srv, err := b.Build()
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           newRouter(srv, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", opts.addr), slog.String("path", opts.path))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func newRouter(srv *rpcgate.Server, opts serveOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodPost, opts.path, srv)
	r.Get("/healthz", healthHandler(srv))

	if opts.metrics {
		metricsHandler := prometheus.NewCollector(srv).Handler()
		if opts.protectMetrics {
			metricsHandler = guard.RequireSession(srv)(metricsHandler)
		}
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return r
}

func healthHandler(srv *rpcgate.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := srv.Health(r.Context())
		status := http.StatusOK
		if !h.Available {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"available":  h.Available,
			"latency_ms": h.Latency.Milliseconds(),
			"sessions":   h.Sessions,
		})
	}
}
