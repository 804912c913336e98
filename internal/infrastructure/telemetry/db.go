package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig configures instrumentation of one GORM connection pool
type DBConfig struct {
	// Pool labels the pool's spans and metrics, e.g. "user" or "elevated".
	Pool            string
	Tracing         bool
	SlowQueryThresh time.Duration
	// LogFullSQL keeps bind variables in span statements. Development only.
	LogFullSQL bool
}

type startKey struct{}

// InstrumentDB adds otelgorm spans, slow query marking and pool gauges to db.
// Spans are skipped when cfg.Tracing is off; pool gauges are registered when meter
// is non nil.
func InstrumentDB(db *gorm.DB, cfg DBConfig, meter metric.Meter, logger *zap.Logger) error {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{
			otelgorm.WithDBName("postgresql"),
			otelgorm.WithAttributes(AttrDBPool.String(cfg.Pool)),
		}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return fmt.Errorf("register otelgorm: %w", err)
		}
		if err := registerSlowQuery(db, cfg.SlowQueryThresh); err != nil {
			return fmt.Errorf("register slow query callbacks: %w", err)
		}
	}

	if meter != nil {
		if err := registerPoolGauges(db, cfg.Pool, meter); err != nil {
			return err
		}
	}

	logger.Info("Database instrumented",
		zap.String("pool", cfg.Pool),
		zap.Bool("tracing", cfg.Tracing),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func registerSlowQuery(db *gorm.DB, thresh time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, startKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { markSpan(tx, thresh) }

	cb := db.Callback()
	steps := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("ota_timing:before_create", before) },
		func() error { return cb.Query().Before("gorm:query").Register("ota_timing:before_query", before) },
		func() error { return cb.Update().Before("gorm:update").Register("ota_timing:before_update", before) },
		func() error { return cb.Delete().Before("gorm:delete").Register("ota_timing:before_delete", before) },
		func() error { return cb.Row().Before("gorm:row").Register("ota_timing:before_row", before) },
		func() error { return cb.Raw().Before("gorm:raw").Register("ota_timing:before_raw", before) },
		func() error { return cb.Create().After("gorm:create").Register("ota_timing:after_create", after) },
		func() error { return cb.Query().After("gorm:query").Register("ota_timing:after_query", after) },
		func() error { return cb.Update().After("gorm:update").Register("ota_timing:after_update", after) },
		func() error { return cb.Delete().After("gorm:delete").Register("ota_timing:after_delete", after) },
		func() error { return cb.Row().After("gorm:row").Register("ota_timing:after_row", after) },
		func() error { return cb.Raw().After("gorm:raw").Register("ota_timing:after_raw", after) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// markSpan annotates the statement's span with row counts, errors and slowness.
// A missing record is an expected outcome and does not fail the span.
func markSpan(tx *gorm.DB, thresh time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > thresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("threshold_ms", thresh.Milliseconds()),
		))
	}
}

// registerPoolGauges observes database/sql pool stats at each collection
func registerPoolGauges(db *gorm.DB, pool string, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("create pool gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return fmt.Errorf("create wait counter: %w", err)
	}

	poolAttr := AttrDBPool.String(pool)
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(poolAttr, AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(poolAttr, AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(s.MaxOpenConnections), metric.WithAttributes(poolAttr, AttrDBState.String("max")))
		o.ObserveInt64(waits, s.WaitCount, metric.WithAttributes(poolAttr))
		return nil
	}, conns, waits)
	if err != nil {
		return fmt.Errorf("register pool callback: %w", err)
	}
	return nil
}
