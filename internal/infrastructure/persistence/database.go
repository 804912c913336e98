// Package persistence opens the two connection pools and registers the store procedures on them.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds one connection pool
type Database struct {
	DB *gorm.DB
}

// Option customizes the GORM configuration of a pool
type Option func(*gorm.Config)

// WithZapLogger routes SQL logs through zap at the given level (silent, error, warn, info)
func WithZapLogger(l *zap.Logger, level string, slow time.Duration) Option {
	return func(c *gorm.Config) {
		c.Logger = logger.NewGormLogger(l, logger.MapGormLogLevel(level), logger.WithSlowThreshold(slow))
	}
}

// NewDatabase opens the least-privilege pool used for calls made on behalf of a principal
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return open(cfg.DSN(), cfg, opts...)
}

// NewElevatedDatabase opens the service pool reserved to trusted server-side operations
func NewElevatedDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return open(cfg.AdminDSN(), cfg, opts...)
}

func open(dsn string, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gcfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
	for _, opt := range opts {
		opt(gcfg)
	}

	db, err := gorm.Open(postgres.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
