package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/otahub/backend/internal/domain/shared"
	"github.com/otahub/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultCallTimeout bounds a single procedure call when none is configured
const DefaultCallTimeout = 3 * time.Second

// Handler runs one procedure against db. db is already bound to the call's context.
type Handler[P, R any] func(ctx context.Context, db *gorm.DB, params P) (R, error)

// Gateway is the single adapter every procedure call goes through. It holds one
// connection pool per scope and never hands the elevated pool to a user client.
type Gateway struct {
	user     *gorm.DB
	elevated *gorm.DB
	timeout  time.Duration
	logger   *zap.Logger
	duration *telemetry.Histogram

	mu       sync.RWMutex
	handlers map[string]any
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithCallTimeout sets the per-call timeout
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a gateway over the least-privilege pool user and the service pool elevated
func NewGateway(user, elevated *gorm.DB, opts ...GatewayOption) (*Gateway, error) {
	if user == nil || elevated == nil {
		return nil, errors.New("store: both user and elevated pools are required")
	}
	g := &Gateway{
		user:     user,
		elevated: elevated,
		timeout:  DefaultCallTimeout,
		logger:   zap.NewNop(),
		handlers: make(map[string]any),
	}
	for _, opt := range opts {
		opt(g)
	}

	h, err := telemetry.NewHistogram(otel.GetMeterProvider().Meter("ota-backend/store"), telemetry.HistogramOpts{
		Name:        "store_call_duration_seconds",
		Description: "Duration of store procedure calls",
		Unit:        "s",
		Boundaries:  telemetry.StoreDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	g.duration = h
	return g, nil
}

// Register binds a handler to a procedure. Registering the same procedure twice panics.
func Register[P, R any](g *Gateway, proc Procedure[P, R], h Handler[P, R]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.handlers[proc.name]; dup {
		panic("store: procedure registered twice: " + proc.name)
	}
	g.handlers[proc.name] = h
}

// Missing lists declared procedures that have no handler
func (g *Gateway) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for _, name := range procedureNames {
		if _, ok := g.handlers[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Timeout returns the per-call timeout
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

func (g *Gateway) pool(scope Scope) *gorm.DB {
	if scope == ScopeElevated {
		return g.elevated
	}
	return g.user
}

// ErrScopeDenied is returned when a client calls a procedure above its scope
var ErrScopeDenied = shared.NewDomainError(shared.KindAuthorization, "STORE_SCOPE_DENIED", "procedure requires an elevated store client")

// Call runs proc with params on behalf of c, bounded by the gateway's call timeout.
// Errors are domain errors: not-found rows map to shared.ErrNotFound, timeouts and
// driver failures to shared.ErrTransient.
func Call[P, R any](ctx context.Context, c *Client, proc Procedure[P, R], params P) (R, error) {
	var zero R
	if c == nil || c.gw == nil {
		return zero, errors.New("store: nil client")
	}
	if !c.scope.Allows(proc.scope) {
		return zero, ErrScopeDenied.WithResource(proc.name)
	}

	gw := c.gw
	gw.mu.RLock()
	raw, ok := gw.handlers[proc.name]
	gw.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("store: procedure %s has no handler", proc.name)
	}
	h, ok := raw.(Handler[P, R])
	if !ok {
		return zero, fmt.Errorf("store: procedure %s registered with mismatched types", proc.name)
	}

	ctx, cancel := context.WithTimeout(ctx, gw.timeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "store."+proc.name,
		telemetry.WithAttribute("store.scope", c.scope.String()),
	)
	defer span.End()

	start := time.Now()
	res, err := h(ctx, gw.pool(c.scope).WithContext(ctx), params)
	attrs := []attribute.KeyValue{
		attribute.String("procedure", proc.name),
		attribute.String("scope", c.scope.String()),
		attribute.Bool("error", err != nil),
	}
	gw.duration.Since(ctx, start, attrs...)

	if err != nil {
		err = classify(proc.name, err)
		telemetry.RecordError(span, err)
		if shared.IsTransient(err) {
			gw.logger.Warn("store call failed",
				zap.String("procedure", proc.name),
				zap.String("scope", c.scope.String()),
				zap.Error(err),
			)
		}
		return zero, err
	}
	return res, nil
}

func classify(name string, err error) error {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound.WithResource(name).Wrap(err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.ErrInvalidInput.WithResource(name).Wrap(err)
	default:
		return shared.ErrTransient.WithResource(name).Wrap(err)
	}
}
