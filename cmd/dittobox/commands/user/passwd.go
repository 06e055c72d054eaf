package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/prompt"
	"github.com/marmos91/dittobox/pkg/models"
)

var passwdPassword string

var passwdCmd = &cobra.Command{
	Use:   "passwd <identity>",
	Short: "Set a user's API login password",
	Long: `Set the password a user logs in with over the REST API. Without
--password you are prompted for it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwdPassword
		if password == "" {
			var err error
			password, err = prompt.Password("Password", models.ValidatePassword)
			if err != nil {
				return cmdutil.HandleAbort(err)
			}
		}

		return cmdutil.Run(cmd.Context(), func(ctx context.Context, s *cmdutil.Session) error {
			if err := s.Service.SetPassword(ctx, args[0], password); err != nil {
				return err
			}
			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return printer.Result(map[string]string{"identity": models.NormalizeIdentity(args[0])},
				fmt.Sprintf("Password updated for '%s'", models.NormalizeIdentity(args[0])))
		})
	},
}

func init() {
	passwdCmd.Flags().StringVarP(&passwdPassword, "password", "p", "", "New password (prompts if not provided)")
}
