// Package download authorizes bundle downloads and issues time-bound URLs.
package download

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/otahub/backend/internal/domain/catalog"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/auth"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/infrastructure/storage"
	"github.com/otahub/backend/internal/infrastructure/store"
	"github.com/otahub/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RightChecker answers app right questions for a principal
type RightChecker interface {
	CheckAppRight(ctx context.Context, p identity.Principal, appID string, required identity.Right) bool
}

// Request is one download link request
type Request struct {
	// Authorization is the raw Authorization header.
	Authorization   string
	AppID           string
	StorageProvider catalog.StorageProvider
	BundleID        int64
}

// Authorizer runs a download request through its gates in order:
// token present, token valid, read right on the app, bundle and owner resolved, URL signed.
// It never writes, so concurrent and repeated calls are safe.
type Authorizer struct {
	verifier auth.Verifier
	rights   RightChecker
	clients  *store.Factory
	signer   storage.Signer
	logger   *zap.Logger
	outcomes *telemetry.Counter
	duration *telemetry.Histogram
}

// AuthorizerConfig contains the collaborators of an Authorizer
type AuthorizerConfig struct {
	Verifier auth.Verifier
	Rights   RightChecker
	Clients  *store.Factory
	Signer   storage.Signer
	Logger   *zap.Logger
	Meter    metric.Meter
}

// NewAuthorizer creates a new Authorizer
func NewAuthorizer(cfg AuthorizerConfig) (*Authorizer, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	a := &Authorizer{
		verifier: cfg.Verifier,
		rights:   cfg.Rights,
		clients:  cfg.Clients,
		signer:   cfg.Signer,
		logger:   cfg.Logger,
	}
	if cfg.Meter != nil {
		var err error
		a.outcomes, err = telemetry.NewCounter(cfg.Meter,
			"download_link_requests_total", "Download link requests by outcome", "{request}")
		if err != nil {
			return nil, err
		}
		a.duration, err = telemetry.NewHistogram(cfg.Meter, telemetry.HistogramOpts{
			Name:        "download_link_duration_seconds",
			Description: "Time to authorize and sign a download link",
			Unit:        "s",
		})
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Authorize returns a signed URL for the requested bundle, or a *Rejection
func (a *Authorizer) Authorize(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "download.authorize",
		telemetry.WithAttribute("app.id", req.AppID),
	)
	defer span.End()

	url, err := a.authorize(ctx, req)

	log := logger.WithLogger(ctx, a.logger).With(
		zap.String("app_id", req.AppID),
		zap.Int64("bundle_id", req.BundleID),
	)
	reason := ReasonNone
	var rej *Rejection
	if errors.As(err, &rej) {
		reason = rej.Reason
		telemetry.RecordError(span, err)
		if reason.ServerSide() {
			log.Error("download link failed", zap.Stringer("reason", reason), zap.Stringer("stage", rej.Stage), zap.Error(err))
		} else {
			log.Info("download link rejected", zap.Stringer("reason", reason), zap.Stringer("stage", rej.Stage))
		}
	}
	if a.outcomes != nil {
		attrs := []attribute.KeyValue{attribute.String("reason", reason.String())}
		a.outcomes.Inc(ctx, attrs...)
		a.duration.Since(ctx, start, attrs...)
	}
	return url, err
}

func (a *Authorizer) authorize(ctx context.Context, req Request) (string, error) {
	token, ok := bearerToken(req.Authorization)
	if !ok {
		return "", NoAuthorization()
	}

	p, err := a.verifier.Verify(ctx, token)
	if err != nil || p.IsZero() {
		return "", reject(ReasonNotAuthorized, StageUnauthenticated, err)
	}

	if !a.rights.CheckAppRight(ctx, p, req.AppID, identity.RightRead) {
		r := reject(ReasonInsufficientRight, StageTokenValidated, nil)
		r.AppID = req.AppID
		return "", r
	}

	// bundle owner lookup bypasses row policies; the right check above gates it
	bundle, err := store.Call(ctx, a.clients.Elevated(), store.GetBundle, store.BundleParams{AppID: req.AppID, BundleID: req.BundleID})
	if err != nil {
		return "", reject(ReasonInvariantViolation, StageRightChecked, err)
	}
	if req.StorageProvider != "" && req.StorageProvider != bundle.StorageProvider {
		logger.WithLogger(ctx, a.logger).Debug("requested storage provider differs from bundle",
			zap.String("requested", string(req.StorageProvider)),
			zap.String("stored", string(bundle.StorageProvider)))
	}

	url, err := a.signer.SignDownload(ctx, *bundle)
	if err != nil {
		return "", reject(ReasonSignerFailure, StageBundleResolved, err)
	}
	return url, nil
}

// HasBearer reports whether header passes the first gate of Authorize
func HasBearer(header string) bool {
	_, ok := bearerToken(header)
	return ok
}

// bearerToken extracts the token of a "Bearer <token>" header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
