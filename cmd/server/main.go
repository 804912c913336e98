package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/otahub/backend/internal/bootstrap"
	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/infrastructure/scheduler"
	"github.com/otahub/backend/internal/infrastructure/telemetry"
	"github.com/otahub/backend/internal/interfaces/http/handler"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
	"github.com/otahub/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting OTA backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tcfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tp, err := telemetry.NewTracerProvider(ctx, tcfg, log)
	if err != nil {
		return err
	}
	mp, err := telemetry.NewMeterProvider(ctx, tcfg, log)
	if err != nil {
		return err
	}
	lp, err := telemetry.NewLoggerProvider(ctx, tcfg, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(log, tp, mp, lp)

	// warnings and errors also travel to the collector, correlated with their traces
	log = lp.Bridge(log, tcfg.ServiceName, zapcore.WarnLevel)

	var meter metric.Meter
	if mp.IsEnabled() {
		meter = mp.Meter(telemetry.TracerName)
	}

	c, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{Meter: meter, Tracing: tp.IsEnabled()})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("Error closing resources", zap.Error(err))
		}
	}()
	log.Info("Database pools connected")

	reconciler, err := scheduler.NewSegmentScheduler(c.Segments,
		scheduler.SegmentSchedulerConfigFrom(cfg.Scheduler), log.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := reconciler.Start(ctx); err != nil {
		return err
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger:  log,
		Meter:   meter,
		Tracing: middleware.TracingConfig{ServiceName: tcfg.ServiceName, Enabled: tp.IsEnabled()},
		CORS: func() middleware.CORSConfig {
			cors := middleware.DefaultCORSConfig()
			cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
			return cors
		}(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})

	api := &router.API{
		Download: handler.NewDownloadHandler(c.Authorizer),
		Ingest:   handler.NewIngestHandler(c.Recorder),
		Org: handler.NewOrgHandler(handler.OrgHandlerConfig{
			Clients:  c.Clients,
			Usage:    c.Quota,
			Billing:  c.Billing,
			Segments: c.Segments,
		}),
		Webhook:        handler.NewBillingWebhookHandler(c.Billing),
		Health:         handler.NewHealthHandler(c, version),
		Verifier:       c.Verifier,
		Rights:         c.Rights,
		StatsLimiter:   statsLimiter(cfg, c, log),
		ServiceKeyHash: cfg.HTTP.ServiceKeyHash,
		Logger:         log,
	}
	api.Mount(engine)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := reconciler.Stop(sctx); err != nil {
		log.Warn("Segment scheduler did not stop cleanly", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	return nil
}

// statsLimiter shares the Redis pool when one is configured so every replica counts
// against the same window.
func statsLimiter(cfg *config.Config, c *bootstrap.Container, log *zap.Logger) middleware.Limiter {
	if cfg.HTTP.StatsRateLimit <= 0 {
		return nil
	}
	if c.Redis != nil {
		return middleware.NewRedisRateLimiter(c.Redis, "ota:ratelimit:stats:", cfg.HTTP.StatsRateLimit, cfg.HTTP.RateLimitWindow)
	}
	log.Warn("Stats rate limit is per process without Redis")
	return middleware.NewMemoryRateLimiter(cfg.HTTP.StatsRateLimit, cfg.HTTP.RateLimitWindow)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
