package users

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd/cmdutil"
	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

var deleteEmailFlag string

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an account and its role assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deleteEmailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}

		ctx := cmd.Context()
		bundle, err := cmdutil.OpenDirectory(ctx, cmdutil.Config())
		if err != nil {
			return err
		}
		defer bundle.Close()

		if err := bundle.Users.DeleteUser(ctx, deleteEmailFlag); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				return fmt.Errorf("no account with email %q", deleteEmailFlag)
			}
			return fmt.Errorf("failed to delete user: %w", err)
		}
		cmdutil.Logger().Info("user deleted", zap.String("username", deleteEmailFlag))
		fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted\n", deleteEmailFlag)
		return nil
	},
}
