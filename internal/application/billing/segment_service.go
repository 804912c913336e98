package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/domain/segment"
	"github.com/otahub/backend/internal/domain/shared"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/infrastructure/marketing"
	"github.com/otahub/backend/internal/infrastructure/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SegmentPusher replaces an organization's tags in the marketing service
type SegmentPusher interface {
	PushSegments(ctx context.Context, contact marketing.Contact, s segment.Segments) error
}

// ReconcileResult summarizes a sweep over every organization
type ReconcileResult struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// SegmentService recomputes an organization's lifecycle tags from current state and
// pushes them to the marketing service.
type SegmentService struct {
	clients *store.Factory
	quota   *QuotaEvaluator
	pusher  SegmentPusher
	logger  *zap.Logger
	now     func() time.Time
}

// NewSegmentService creates a new SegmentService
func NewSegmentService(clients *store.Factory, quota *QuotaEvaluator, pusher SegmentPusher, logger *zap.Logger) *SegmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SegmentService{
		clients: clients,
		quota:   quota,
		pusher:  pusher,
		logger:  logger,
		now:     quota.now,
	}
}

// orgState is everything read about an org to classify it
type orgState struct {
	org   *identity.Organization
	input segment.LifecycleInput
}

// Compute reads the org's current state and classifies it without pushing anything
func (s *SegmentService) Compute(ctx context.Context, orgID uuid.UUID) (segment.AccountLifecycleState, error) {
	st, err := s.gather(ctx, orgID)
	if err != nil {
		return segment.AccountLifecycleState{}, err
	}
	return segment.Classify(st.input), nil
}

// SyncOrg recomputes the org's segments and pushes them. A disabled marketing
// integration is not an error: the computed segments are still returned.
func (s *SegmentService) SyncOrg(ctx context.Context, orgID uuid.UUID) (segment.Segments, error) {
	log := logger.WithLogger(ctx, s.logger).With(zap.String("org_id", orgID.String()))

	st, err := s.gather(ctx, orgID)
	if err != nil {
		return segment.Segments{}, err
	}
	state := segment.Classify(st.input)
	segs := state.Project()
	if state.IsDiagnostic() {
		log.Warn("org billing state matches no lifecycle bucket",
			zap.Bool("paying", st.input.Paying),
			zap.Int("trial_days_left", st.input.TrialDaysLeft),
			zap.Bool("can_use_more", st.input.CanUseMore),
			zap.String("plan", st.input.PlanName))
	}

	contact := marketing.Contact{OrgID: orgID, Email: st.org.ManagementEmail}
	if err := s.pusher.PushSegments(ctx, contact, segs); err != nil {
		if errors.Is(err, marketing.ErrDisabled) {
			log.Debug("segment push skipped", zap.Strings("segments", segs.Segments))
			return segs, nil
		}
		return segs, shared.ErrTransient.Wrap(err)
	}
	log.Info("segments synced",
		zap.Stringer("state", state.Kind()),
		zap.Strings("segments", segs.Segments))
	return segs, nil
}

// ReconcileAll syncs every organization. One org failing does not stop the sweep.
func (s *SegmentService) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	ids, err := store.Call(ctx, s.clients.Elevated(), store.ListOrgIDs, store.NoParams{})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list orgs: %w", err)
	}

	res := ReconcileResult{Total: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := s.SyncOrg(ctx, id); err != nil {
			res.Failed++
			logger.WithLogger(ctx, s.logger).Warn("segment sync failed",
				zap.String("org_id", id.String()), zap.Error(err))
			continue
		}
		res.Synced++
	}
	return res, nil
}

// gather reads the classification inputs concurrently. Any read failure aborts: a
// partial state would push wrong tags.
func (s *SegmentService) gather(ctx context.Context, orgID uuid.UUID) (*orgState, error) {
	client := s.clients.Elevated()
	st := &orgState{}
	var (
		bill     *billing.OrgBilling
		planName string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		org, err := store.Call(gctx, client, store.GetOrg, store.OrgParams{OrgID: orgID})
		st.org = org
		return err
	})
	g.Go(func() error {
		b, err := store.Call(gctx, client, store.GetOrgBilling, store.OrgParams{OrgID: orgID})
		if shared.KindOf(err) == shared.KindNotFound {
			return nil
		}
		bill = b
		return err
	})
	g.Go(func() error {
		ok, err := store.Call(gctx, client, store.IsOnboarded, store.OrgParams{OrgID: orgID})
		st.input.Onboarded = ok
		return err
	})
	g.Go(func() error {
		name, err := store.Call(gctx, client, store.GetCurrentPlanName, store.OrgParams{OrgID: orgID})
		planName = billing.NormalizePlanName(name)
		return err
	})
	g.Go(func() error {
		st.input.CanUseMore = s.quota.IsGoodPlan(gctx, client, orgID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather lifecycle state of org %s: %w", orgID, err)
	}

	now := s.now()
	st.input.Paying = bill.IsPaying()
	st.input.Canceled = bill.IsCanceled()
	st.input.TrialDaysLeft = bill.TrialDaysLeft(now)
	st.input.PlanName = planName
	if planName != "" && bill != nil {
		plan, err := store.Call(ctx, client, store.GetPlan, store.PlanParams{Name: planName})
		if err != nil {
			return nil, fmt.Errorf("load plan %q: %w", planName, err)
		}
		st.input.PayingMonthly = plan.PayingMonthly(bill.PriceID)
	}
	return st, nil
}
