// Package billing implements `otactl billing`.
package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/interfaces/cli"
	"github.com/spf13/cobra"
)

// NewCommand returns the billing command tree
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Billing provider maintenance",
	}
	cmd.AddCommand(newEnsureCustomerCommand())
	return cmd
}

func newEnsureCustomerCommand() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "ensure-customer",
		Short: "Create the billing customer of an organization that has none",
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

			customerID, err := c.Billing.EnsureCustomer(cmd.Context(), orgID)
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), map[string]string{
				"org_id":      orgID.String(),
				"customer_id": customerID,
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
