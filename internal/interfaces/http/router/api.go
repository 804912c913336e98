package router

import (
	"github.com/gin-gonic/gin"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/auth"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/interfaces/http/handler"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds the global middleware settings
type EngineConfig struct {
	Logger         *zap.Logger
	Meter          metric.Meter
	Tracing        middleware.TracingConfig
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine creates a gin engine with the global middleware stack applied in order:
// request id, tracing, access log, recovery, metrics, security headers, CORS and
// body limit.
func NewEngine(cfg EngineConfig) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			cfg.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing)...)
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(logger.Recovery(cfg.Logger))
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter, cfg.Logger))
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine
}

// API holds the handlers and gates of the public API
type API struct {
	Download *handler.DownloadHandler
	Ingest   *handler.IngestHandler
	Org      *handler.OrgHandler
	Webhook  *handler.BillingWebhookHandler
	Health   *handler.HealthHandler

	Verifier       auth.Verifier
	Rights         middleware.OrgRightChecker
	StatsLimiter   middleware.Limiter
	ServiceKeyHash string
	Logger         *zap.Logger
}

// Surfaces returns the routes of the API grouped by caller. Each surface carries only
// the gate its callers can satisfy: devices send no token, the edge sends a service
// key, members send a bearer token and the billing provider signs its payload.
func (a *API) Surfaces() []*Surface {
	stats := []gin.HandlerFunc{a.Ingest.PostStats}
	if a.StatsLimiter != nil {
		stats = append([]gin.HandlerFunc{middleware.RateLimitByKey(a.StatsLimiter, middleware.ClientIPKey, a.Logger)}, stats...)
	}
	devices := NewSurface("devices", "").POST("/stats", stats...)

	edge := NewSurface("edge", "/usage", middleware.ServiceKey(a.ServiceKeyHash)).
		POST("/bandwidth", a.Ingest.PostBandwidth)

	members := NewSurface("members", "/orgs/:org_id", middleware.BearerAuth(middleware.BearerAuthConfig{
		Verifier: a.Verifier,
		Logger:   a.Logger,
	})).
		GET("/usage", middleware.RequireOrgRight(a.Rights, identity.RightRead), a.Org.GetUsage).
		GET("/billing", middleware.RequireOrgRight(a.Rights, identity.RightRead), a.Org.GetBilling).
		POST("/segments/sync", middleware.RequireOrgRight(a.Rights, identity.RightAdmin), a.Org.SyncSegments)

	billing := NewSurface("billing", "/billing").
		POST("/stripe/webhook", a.Webhook.HandleStripeWebhook)

	return []*Surface{devices, edge, members, billing}
}

// Mount registers the health probe at the root and the API under APIPrefix. The
// download handler registers itself: it authenticates inside the authorizer.
func (a *API) Mount(engine *gin.Engine) {
	engine.GET("/health", a.Health.Health)

	registrars := []RouteRegistrar{a.Download}
	for _, s := range a.Surfaces() {
		registrars = append(registrars, s)
		if a.Logger != nil {
			a.Logger.Debug("Mounting surface", zap.String("surface", s.Name()), zap.Strings("routes", s.Paths(APIPrefix)))
		}
	}
	mountAPI(engine, registrars...)
}
