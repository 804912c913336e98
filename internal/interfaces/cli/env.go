// Package cli holds what every otactl command shares: configuration, logging and
// the wired service container.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/otahub/backend/internal/bootstrap"
	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Env is the configuration and logger of one command invocation
type Env struct {
	Config *config.Config
	Logger *zap.Logger
}

// LoadEnv reads configuration the same way the server does and logs to stderr in
// console format so stdout stays machine readable.
func LoadEnv(cmd *cobra.Command) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Log.Level
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Env{Config: cfg, Logger: log}, nil
}

// Close flushes the logger
func (e *Env) Close() {
	logger.Sync(e.Logger)
}

// Services builds the service container without download signing or telemetry export
func (e *Env) Services(ctx context.Context) (*bootstrap.Container, error) {
	return bootstrap.Build(ctx, e.Config, e.Logger, bootstrap.Options{SkipSigner: true})
}

// PrintJSON writes v as indented JSON followed by a newline
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
