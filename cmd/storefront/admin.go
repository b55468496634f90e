package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

var promoteAdminCmd = &cobra.Command{
	Use:   "promote-admin <email>",
	Short: "Grant the admin role to an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup("promote-admin")
		if err != nil {
			return err
		}
		defer db.Close(env.db)

		svc := &service.AuthService{Repo: &repo.GormRepo{DB: env.db}, Events: events.Nop{}}
		if err := svc.PromoteAdmin(context.Background(), args[0]); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("no account with email %s", args[0])
			}
			return err
		}
		env.logger.Info("promote_admin_success", "email", service.NormalizeEmail(args[0]))
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", service.NormalizeEmail(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteAdminCmd)
}
