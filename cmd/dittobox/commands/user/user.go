// Package user implements the user management commands.
package user

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for user management.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long: `Register users and manage their API passwords.

Users must be registered before they can receive grants. Identities listed
under "admins" in the configuration become administrators when registered.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(passwdCmd)
}
