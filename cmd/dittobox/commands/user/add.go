package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/prompt"
	"github.com/marmos91/dittobox/pkg/models"
)

var (
	addDisplayName string
	addPassword    string
	addHome        bool
)

var addCmd = &cobra.Command{
	Use:   "add [identity]",
	Short: "Register a user",
	Long: `Register a user. Without an identity argument you are prompted for one.

A password is only needed to log in over the REST API; it can be set later
with "dittobox user passwd".

Examples:
  dittobox user add alice --display-name "Alice A."
  dittobox user add bob --password 'correct horse' --home`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDisplayName, "display-name", "", "Display name")
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "API login password")
	addCmd.Flags().BoolVar(&addHome, "home", false, "Also create the user's home directory")
}

func runAdd(cmd *cobra.Command, args []string) error {
	identity := ""
	if len(args) == 1 {
		identity = args[0]
	} else {
		var err error
		identity, err = prompt.Input("Identity", func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("identity is required")
			}
			return nil
		})
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	if addPassword != "" {
		if err := models.ValidatePassword(addPassword); err != nil {
			return err
		}
	}

	return cmdutil.Run(cmd.Context(), func(ctx context.Context, s *cmdutil.Session) error {
		u, err := s.Service.AddUser(ctx, identity, addDisplayName)
		if err != nil {
			return err
		}

		if addPassword != "" {
			if err := s.Service.SetPassword(ctx, u.Identity, addPassword); err != nil {
				return err
			}
		}

		if addHome && !u.IsAdmin() {
			actor, err := s.Service.ResolveActor(ctx, u.Identity)
			if err != nil {
				return err
			}
			if _, err := s.Service.EnsureHome(ctx, actor); err != nil {
				return err
			}
		}

		printer, err := cmdutil.Printer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return printer.Result(u, fmt.Sprintf("User '%s' created (role: %s)", u.Identity, u.Role))
	})
}
