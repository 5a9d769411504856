package users

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd/cmdutil"
	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

var (
	emailFlag       string
	displayNameFlag string
	passwordFlag    string
	rolesFlag       []string
	stdinFlag       bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(os.Stderr, "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		nu := auth.NewUser{
			Username:    emailFlag,
			Password:    password,
			DisplayName: displayNameFlag,
			Roles:       rolesFlag,
		}
		if problems, err := auth.ValidateNewUser(nu); err != nil {
			return fmt.Errorf("%w\n  %s", err, strings.Join(problems, "\n  "))
		}

		ctx := cmd.Context()
		bundle, err := cmdutil.OpenDirectory(ctx, cmdutil.Config())
		if err != nil {
			return err
		}
		defer bundle.Close()

		id, err := bundle.Users.CreateUser(ctx, nu)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		cmdutil.Logger().Info("user created",
			zap.String("user_id", id.UserID),
			zap.String("username", id.Username),
			zap.Strings("roles", id.Roles))

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "User created successfully!")
		fmt.Fprintln(out, "----------------------------------------")
		fmt.Fprintf(out, "User ID: %s\n", id.UserID)
		fmt.Fprintf(out, "Email: %s\n", id.Username)
		if len(id.Roles) > 0 {
			fmt.Fprintf(out, "Roles: %s\n", strings.Join(id.Roles, ", "))
		}
		fmt.Fprintln(out, "----------------------------------------")
		return nil
	},
}
