// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSegmentCron reconciles segments at the top of every hour
const DefaultSegmentCron = "0 * * * *"

// Reconciler resyncs the segments of every organization
type Reconciler interface {
	ReconcileAll(ctx context.Context) (billing.ReconcileResult, error)
}

// SegmentSchedulerConfig holds configuration for the segment scheduler
type SegmentSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool
	// Spec is a standard five-field cron expression, evaluated in UTC.
	Spec string
	// JobTimeout bounds one sweep over all organizations
	JobTimeout time.Duration
}

// SegmentSchedulerConfigFrom maps application configuration, filling defaults
func SegmentSchedulerConfigFrom(cfg config.SchedulerConfig) SegmentSchedulerConfig {
	c := SegmentSchedulerConfig{Enabled: cfg.Enabled, Spec: cfg.SegmentCron, JobTimeout: cfg.JobTimeout}
	if c.Spec == "" {
		c.Spec = DefaultSegmentCron
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Minute
	}
	return c
}

// SegmentScheduler periodically reconciles every organization's segments so a lost
// push heals on the next sweep.
type SegmentScheduler struct {
	reconciler Reconciler
	config     SegmentSchedulerConfig
	logger     *zap.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	sweepMu   sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSegmentScheduler creates a new SegmentScheduler. The cron expression is
// validated here so a bad configuration fails at startup.
func NewSegmentScheduler(reconciler Reconciler, cfg SegmentSchedulerConfig, logger *zap.Logger) (*SegmentScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Spec == "" {
		cfg.Spec = DefaultSegmentCron
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("%w: segment cron %q: %v", ErrInvalidConfig, cfg.Spec, err)
	}
	return &SegmentScheduler{
		reconciler: reconciler,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Start registers the sweep and starts the cron loop
func (s *SegmentScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Segment scheduler is disabled")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(s.config.Spec, func() { _, _ = s.RunOnce(s.ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Segment scheduler started", zap.String("spec", s.config.Spec))
	return nil
}

// Stop stops scheduling new sweeps and waits for a running one, bounded by ctx
func (s *SegmentScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	c := s.cron
	s.cancel()
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		s.logger.Info("Segment scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Segment scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the cron loop is active
func (s *SegmentScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunOnce performs one sweep now. Overlapping sweeps are refused.
func (s *SegmentScheduler) RunOnce(ctx context.Context) (billing.ReconcileResult, error) {
	if !s.sweepMu.TryLock() {
		return billing.ReconcileResult{}, ErrSweepInProgress
	}
	defer s.sweepMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("Segment sweep failed", zap.Error(err), zap.Int("synced", res.Synced))
		return res, err
	}
	s.logger.Info("Segment sweep finished",
		zap.Int("total", res.Total),
		zap.Int("synced", res.Synced),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}
