// Package migrate implements `otactl migrate`.
package migrate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/otahub/backend/internal/infrastructure/migration"
	"github.com/otahub/backend/internal/infrastructure/persistence"
	"github.com/otahub/backend/internal/interfaces/cli"
	"github.com/otahub/backend/migrations"
	"github.com/spf13/cobra"
)

// NewCommand returns the migrate command tree
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long: `Apply or roll back the embedded schema migrations. Migrations run with the
elevated database credentials because they own the schema.`,
	}
	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStepsCommand(),
		newVersionCommand(),
		newCreateCommand(),
	)
	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error { return m.Up() })
		},
	}
}

func newDownCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or all of them with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error {
				if all {
					return m.Down()
				}
				return m.Steps(-1)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Roll back every applied migration")
	return cmd
}

func newStepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back when N is negative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("steps must be an integer: %w", err)
			}
			return withMigrator(cmd, func(m *migration.Migrator) error { return m.Steps(n) })
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				return cli.PrintJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newCreateCommand() *cobra.Command {
	var dir, description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mf.UpPath)
			fmt.Fprintln(cmd.OutOrStdout(), mf.DownPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "Migrations directory")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description written in the file header")
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(*migration.Migrator) error) (err error) {
	env, err := cli.LoadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := persistence.NewElevatedDatabase(&env.Config.Database)
	if err != nil {
		return err
	}
	// the migrator closes sqlDB too; sql.DB.Close is idempotent
	defer db.Close()
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	m, err := migration.NewFromFS(sqlDB, migrations.FS, env.Logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()
	return fn(m)
}
