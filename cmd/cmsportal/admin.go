package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/auth"
	"github.com/nanacaring/cmsportal/internal/config"
	"github.com/nanacaring/cmsportal/internal/errors"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage local break-glass admins",
	}
	cmd.AddCommand(adminCreateCmd())
	return cmd
}

func adminCreateCmd() *cobra.Command {
	var (
		dir   string
		admin auth.AdminUser
		role  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a local admin",
		Long: `Create a local admin in the admin_users table.

The password is read from CMSPORTAL_ADMIN_PASSWORD.

Examples:
  CMSPORTAL_ADMIN_PASSWORD=... cmsportal admin create --username=ops --email=ops@example.test
  cmsportal admin create --db-driver=sqlite3 --db-dsn=portal.db --username=ops --email=ops@example.test --role=admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{Dir: dir, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			password := os.Getenv(config.EnvPrefix + "_ADMIN_PASSWORD")
			if password == "" {
				return errors.Newf(errors.CategoryCLI, "missing password").
					WithSuggestion("Set " + config.EnvPrefix + "_ADMIN_PASSWORD.")
			}
			admin.Role = strings.TrimSpace(role)
			admin.IsActive = true
			return createAdmin(cmd.Context(), cfg.DB, admin, password, cmd)
		},
	}

	cmd.Flags().StringVar(&dir, "config-dir", "", "Directory holding cmsportal.yaml and .env")
	cmd.Flags().String("db-driver", "postgres", "Database driver: postgres or sqlite3")
	cmd.Flags().String("db-dsn", "", "Database connection string")
	cmd.Flags().StringVar(&admin.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&admin.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&admin.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", string(api.RoleSuperadmin), "Role: superadmin or admin")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func createAdmin(ctx context.Context, cfg config.DBConfig, admin auth.AdminUser, password string, cmd *cobra.Command) error {
	switch api.Role(admin.Role) {
	case api.RoleSuperadmin, api.RoleAdmin:
	default:
		return errors.Newf(errors.CategoryCLI, "unknown role %q", admin.Role).
			WithSuggestion("Local admins are superadmin or admin.")
	}
	if cfg.DSN == "" {
		return errors.New("C004").WithDetail("admin create needs db.driver and db.dsn")
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	admins := auth.SQLAdmins{DB: db}
	if err := admins.Migrate(ctx); err != nil {
		return errors.New("S001").Wrap(err)
	}
	if err := admins.CreateAdmin(ctx, admin, password); err != nil {
		return errors.New("S001").Wrap(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s admin %s\n", admin.Role, admin.Username)
	return nil
}
