// Package segments implements `otactl segments`.
package segments

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/interfaces/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewCommand returns the segments command tree
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Marketing segment maintenance",
	}
	cmd.AddCommand(newSyncCommand(), newReconcileCommand())
	return cmd
}

func newSyncCommand() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Recompute and push the segments of one organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orgID, err := uuid.Parse(org)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			env, err := cli.LoadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			c, err := env.Services(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			s, err := c.Segments.SyncOrg(cmd.Context(), orgID)
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Resync the segments of every organization",
		Long: `Runs the same sweep as the scheduled reconcile. Failures of single organizations
are counted and logged; the command fails only when the sweep itself cannot run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.LoadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			c, err := env.Services(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Segments.ReconcileAll(cmd.Context())
			if err != nil {
				return err
			}
			env.Logger.Info("Reconcile finished",
				zap.Int("total", res.Total),
				zap.Int("synced", res.Synced),
				zap.Int("failed", res.Failed))
			return cli.PrintJSON(cmd.OutOrStdout(), res)
		},
	}
}
