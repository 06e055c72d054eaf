package user

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.Run(cmd.Context(), func(ctx context.Context, s *cmdutil.Session) error {
			users, err := s.Service.ListUsers(ctx)
			if err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			table := output.NewTableData("IDENTITY", "DISPLAY NAME", "ROLE", "PASSWORD", "CREATED")
			for _, u := range users {
				table.AddRow(u.Identity, cmdutil.EmptyOr(u.DisplayName, "-"), string(u.Role),
					cmdutil.BoolToYesNo(u.HasPassword()), u.CreatedAt.Format(time.RFC3339))
			}
			return printer.List(users, table, "No users registered.")
		})
	},
}
