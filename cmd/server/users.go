package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/core/service"
)

var (
	newUsername string
	newPassword string
	newName     string
	newEmail    string
	newRole     string
)

var createUserCmd = &cobra.Command{
	Use:   "users:create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		u, err := service.NewUserService(store, log).Create(cmd.Context(), service.NewUser{
			Username: newUsername,
			Password: newPassword,
			Name:     newName,
			Email:    newEmail,
			Role:     domain.Role(strings.ToUpper(newRole)),
		})
		if err != nil {
			return err
		}
		fmt.Printf("created %s user %q (id %d)\n", u.Role, u.Username, u.ID)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVarP(&newUsername, "username", "u", "", "Login name (required)")
	createUserCmd.Flags().StringVarP(&newPassword, "password", "p", "", "Password (required)")
	createUserCmd.Flags().StringVar(&newName, "name", "", "Display name")
	createUserCmd.Flags().StringVar(&newEmail, "email", "", "Email address")
	createUserCmd.Flags().StringVar(&newRole, "role", string(domain.RoleUser), "USER or ADMIN")
	createUserCmd.MarkFlagRequired("username")
	createUserCmd.MarkFlagRequired("password")
}
