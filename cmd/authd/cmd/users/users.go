// Package users manages accounts directly against the database.
package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for account management
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts",
	Long:  `Commands for creating and deleting accounts without going through the HTTP API.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address (the username) of the account")
	createCmd.Flags().StringVar(&displayNameFlag, "name", "", "Display name; defaults to the email")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the account (use --stdin to avoid shell history)")
	createCmd.Flags().StringSliceVar(&rolesFlag, "role", []string{}, "Role(s) to assign, e.g. --role Admin")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	deleteCmd.Flags().StringVar(&deleteEmailFlag, "email", "", "Email address of the account to delete")

	UsersCmd.AddCommand(createCmd, deleteCmd)
}
