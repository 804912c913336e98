package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/otahub/backend/internal/interfaces/cli/billing"
	"github.com/otahub/backend/internal/interfaces/cli/migrate"
	"github.com/otahub/backend/internal/interfaces/cli/segments"
	"github.com/otahub/backend/internal/interfaces/cli/token"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "otactl",
		Short:        "Operations tool for the OTA backend",
		Long:         `otactl migrates the schema and runs maintenance jobs against the configured database.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(
		migrate.NewCommand(),
		segments.NewCommand(),
		token.NewCommand(),
		billing.NewCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
