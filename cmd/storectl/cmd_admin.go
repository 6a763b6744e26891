package main

import (
	"fmt"

	"steel-store/internal/repository"
	"steel-store/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var adminFlags struct {
	name     string
	email    string
	password string
}

// storectl create-admin --email ops@example.com --password ...
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or promote an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot()
		if err != nil {
			return err
		}
		defer a.close()

		auth := service.NewAuthService(repository.NewUserRepository(a.dbSvc.DB()), a.cfg.JWT.Secret, a.expiry)
		user, err := auth.CreateAdmin(cmd.Context(), adminFlags.name, adminFlags.email, adminFlags.password)
		if err != nil {
			return err
		}

		a.log.Info("Admin account ready", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminFlags.name, "name", "Administrator", "display name")
	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "login email")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "login password")
	createAdminCmd.MarkFlagRequired("email")
	createAdminCmd.MarkFlagRequired("password")
}
