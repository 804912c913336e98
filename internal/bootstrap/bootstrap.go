// Package bootstrap builds the object graph shared by the server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otahub/backend/internal/application/access"
	billingapp "github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/application/download"
	"github.com/otahub/backend/internal/infrastructure/auth"
	infrabilling "github.com/otahub/backend/internal/infrastructure/billing"
	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/otahub/backend/internal/infrastructure/marketing"
	"github.com/otahub/backend/internal/infrastructure/permission"
	"github.com/otahub/backend/internal/infrastructure/persistence"
	"github.com/otahub/backend/internal/infrastructure/storage"
	"github.com/otahub/backend/internal/infrastructure/store"
	"github.com/otahub/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Options tunes what Build wires beyond the core services
type Options struct {
	// Meter receives pool gauges and service metrics. Nil disables them.
	Meter metric.Meter
	// Tracing adds otelgorm spans to both pools
	Tracing bool
	// SkipSigner leaves Signer and Authorizer nil; CLI commands never sign downloads.
	SkipSigner bool
}

// Container holds the wired services. Close releases every pool it opened.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	UserDB     *persistence.Database
	ElevatedDB *persistence.Database
	Clients    *store.Factory
	Redis      *redis.Client

	JWT      *auth.JWTService
	Verifier auth.Verifier
	Rights   *access.RightsResolver

	Quota      *billingapp.QuotaEvaluator
	Recorder   *billingapp.UsageRecorder
	Segments   *billingapp.SegmentService
	Billing    *billingapp.BillingService
	Signer     storage.Signer
	Authorizer *download.Authorizer

	closers []func() error
}

// Build opens both pools, registers the store procedures and wires every service.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (c *Container, err error) {
	c = &Container{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	if err = c.openDatabases(opts); err != nil {
		return nil, err
	}

	gw, err := store.NewGateway(c.UserDB.DB, c.ElevatedDB.DB,
		store.WithCallTimeout(cfg.Store.CallTimeout),
		store.WithLogger(log.Named("store")),
	)
	if err != nil {
		return nil, err
	}
	persistence.RegisterProcedures(gw)
	if missing := gw.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("store procedures without handler: %s", strings.Join(missing, ", "))
	}
	c.Clients = store.NewFactory(gw)

	if err = c.wireIdentity(ctx); err != nil {
		return nil, err
	}

	policy, err := permission.NewEnforcer(log.Named("permission"))
	if err != nil {
		return nil, err
	}
	c.Rights = access.NewRightsResolver(c.Clients, policy, log.Named("access"))

	c.Quota = billingapp.NewQuotaEvaluator(log.Named("quota"))
	c.Recorder = billingapp.NewUsageRecorder(c.Clients)
	pusher := marketing.NewClient(cfg.Marketing, marketing.WithLogger(log.Named("marketing")))
	c.Segments = billingapp.NewSegmentService(c.Clients, c.Quota, pusher, log.Named("segments"))

	provider, err := c.billingProvider()
	if err != nil {
		return nil, err
	}
	c.Billing = billingapp.NewBillingService(billingapp.BillingServiceConfig{
		Clients:   c.Clients,
		Customers: provider,
		Webhooks:  provider,
		Segments:  c.Segments,
		Logger:    log.Named("billing"),
	})

	if opts.SkipSigner {
		return c, nil
	}
	if err = c.wireDownloads(ctx, opts.Meter); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) openDatabases(opts Options) error {
	cfg := c.Config
	gormLog := persistence.WithZapLogger(c.Logger.Named("gorm"), cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)

	var err error
	if c.UserDB, err = persistence.NewDatabase(&cfg.Database, gormLog); err != nil {
		return fmt.Errorf("user pool: %w", err)
	}
	c.closers = append(c.closers, c.UserDB.Close)
	if c.ElevatedDB, err = persistence.NewElevatedDatabase(&cfg.Database, gormLog); err != nil {
		return fmt.Errorf("elevated pool: %w", err)
	}
	c.closers = append(c.closers, c.ElevatedDB.Close)

	pools := []struct {
		name string
		db   *persistence.Database
	}{{"user", c.UserDB}, {"elevated", c.ElevatedDB}}
	for _, p := range pools {
		err := telemetry.InstrumentDB(p.db.DB, telemetry.DBConfig{
			Pool:            p.name,
			Tracing:         opts.Tracing && cfg.Telemetry.DBTraceEnabled,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			LogFullSQL:      cfg.App.Env == "development",
		}, opts.Meter, c.Logger)
		if err != nil {
			return fmt.Errorf("instrument %s pool: %w", p.name, err)
		}
	}
	return nil
}

// wireIdentity picks the token blacklist and verifier. Redis is optional; without it
// revocations live in process memory.
func (c *Container) wireIdentity(ctx context.Context) error {
	cfg := c.Config
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		rb, err := auth.NewRedisTokenBlacklist(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		c.Redis = rb.Client()
		c.closers = append(c.closers, rb.Close)
		blacklist = rb
	} else {
		c.Logger.Warn("Redis disabled, token revocations are kept in memory")
		blacklist = auth.NewInMemoryTokenBlacklist()
	}
	c.JWT = auth.NewJWTService(cfg.JWT, blacklist)

	switch cfg.Identity.Provider {
	case "oidc":
		v, err := auth.NewOIDCVerifier(ctx, cfg.Identity)
		if err != nil {
			return err
		}
		c.Verifier = v
	default:
		c.Verifier = c.JWT
	}
	c.Logger.Info("Identity provider ready", zap.String("provider", cfg.Identity.Provider))
	return nil
}

func (c *Container) billingProvider() (interface {
	billingapp.CustomerCreator
	billingapp.WebhookParser
}, error) {
	sc := infrabilling.StripeConfigFrom(c.Config.Stripe)
	if sc.SecretKey == "" {
		c.Logger.Warn("Stripe secret key not set, billing webhooks are refused")
		return infrabilling.Disabled{}, nil
	}
	return infrabilling.NewStripeAdapter(sc, c.Logger.Named("stripe"))
}

// wireDownloads builds the signer and the download authorizer. Without a bucket the
// stub signer serves development URLs.
func (c *Container) wireDownloads(ctx context.Context, meter metric.Meter) error {
	cfg := c.Config
	var objects storage.Signer
	if cfg.Storage.Bucket == "" {
		if cfg.App.Env == "production" {
			return errors.New("storage.bucket is required in production")
		}
		c.Logger.Warn("No storage bucket configured, download links are unsigned")
		objects = storage.NewStubSigner(cfg.Storage.Endpoint)
	} else {
		s3, err := storage.NewS3Signer(ctx, &cfg.Storage, storage.WithLogger(c.Logger.Named("storage")))
		if err != nil {
			return err
		}
		objects = s3
	}
	c.Signer = storage.NewRegistry(objects)

	a, err := download.NewAuthorizer(download.AuthorizerConfig{
		Verifier: c.Verifier,
		Rights:   c.Rights,
		Clients:  c.Clients,
		Signer:   c.Signer,
		Logger:   c.Logger.Named("download"),
		Meter:    meter,
	})
	if err != nil {
		return err
	}
	c.Authorizer = a
	return nil
}

// Ping checks the user pool, which serves every request path
func (c *Container) Ping(ctx context.Context) error {
	return c.UserDB.Ping(ctx)
}

// Close releases pools and clients in reverse opening order
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
