// Package token implements `otactl token`.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/auth"
	"github.com/otahub/backend/internal/interfaces/cli"
	"github.com/spf13/cobra"
)

// IssuedToken is the output of `token issue`
type IssuedToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCommand returns the token command tree
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development access tokens",
	}
	cmd.AddCommand(newIssueCommand())
	return cmd
}

func newIssueCommand() *cobra.Command {
	var (
		user  string
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an HS256 access token for a user",
		Long: `Signs a token with the configured jwt.secret. Refused in production and when the
server verifies tokens with an OIDC provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			env, err := cli.LoadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			cfg := env.Config
			switch {
			case cfg.App.Env == "production":
				return errors.New("token issue is disabled in production")
			case cfg.Identity.Provider != "jwt":
				return fmt.Errorf("identity provider is %q, tokens are issued by it", cfg.Identity.Provider)
			case cfg.JWT.Secret == "":
				return errors.New("jwt.secret is not set")
			}

			svc := auth.NewJWTService(cfg.JWT, nil)
			token, claims, err := svc.Issue(identity.Principal{ID: userID, Email: email}, ttl)
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), IssuedToken{
				Token:     token,
				UserID:    userID.String(),
				ExpiresAt: claims.ExpiresAt.Time.UTC(),
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User id the token is issued to")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
