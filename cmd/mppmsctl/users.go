package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/merit-ol/mppms/internal/repository"
	"github.com/merit-ol/mppms/internal/usecase"
)

func init() {
	PromoteOwnerCommand.Flags().String("email", "", "email of the account to promote (defaults to OWNER_EMAIL)")

	UsersCommand.AddCommand(&PromoteOwnerCommand)
	RootCmd.AddCommand(&UsersCommand)
}

var UsersCommand = cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var PromoteOwnerCommand = cobra.Command{
	Use:   "promote-owner",
	Short: "Grant super-admin to an existing account",
	Long:  "Grant super-admin to an existing account. Nothing changes if a super-admin already exists; use ownership transfer instead.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := cmd.Flags().GetString("email")
		if err != nil {
			return err
		}
		if email == "" {
			email = cfg.Catalog.OwnerEmail
		}
		if email == "" {
			return errors.New("--email is required when OWNER_EMAIL is not set")
		}

		repos, err := repository.Open(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer repos.Close()

		auth := usecase.NewAuthUsecase(repos.Users, repos.Tokens, &cfg.JWT, &cfg.Google, cfg.Catalog.OwnerEmail, logger)
		promoted, err := auth.PromoteOwnerByEmail(cmd.Context(), email)
		if err != nil {
			return err
		}
		if !promoted {
			cmd.Println("a super-admin already exists; nothing changed")
			return nil
		}
		cmd.Printf("%s is now super-admin\n", email)
		return nil
	},
}
