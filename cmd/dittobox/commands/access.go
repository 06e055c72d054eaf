package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/pkg/access"
)

var grantCmd = &cobra.Command{
	Use:   "grant <path> <grantee>",
	Short: "Grant a user access to a directory",
	Long: `Give <grantee> access to the owned directory at <path> and everything
below it. Only the owner (or an administrator) may grant.

Examples:
  dittobox grant alice/docs bob --as alice`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			if err := s.Service.GrantAccess(ctx, actor, args[0], args[1]); err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"path": args[0], "grantee": args[1]},
				fmt.Sprintf("Granted '%s' access to '%s'", args[1], args[0]))
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <path> <grantee>",
	Short: "Revoke a user's access to a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			if err := s.Service.RevokeAccess(ctx, actor, args[0], args[1]); err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"path": args[0], "grantee": args[1]},
				fmt.Sprintf("Revoked '%s' access to '%s'", args[1], args[0]))
		})
	},
}

var granteesCmd = &cobra.Command{
	Use:   "grantees <path>",
	Short: "List the users granted access to a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			grantees, err := s.Service.ListGrantees(ctx, actor, args[0])
			if err != nil {
				return err
			}
			if grantees == nil {
				grantees = []string{}
			}

			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			table := output.NewTableData("GRANTEE")
			for _, g := range grantees {
				table.AddRow(g)
			}
			return printer.List(grantees, table, "No active grants.")
		})
	},
}

var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "List directories reachable outside the home namespace",
	Long: `List the directories the acting identity owns or has been granted
outside its own namespace.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			entries, err := s.Service.SharedWith(ctx, actor)
			if err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			table := output.NewTableData("NAME", "PATH", "OWNED", "UUID")
			for _, e := range entries {
				table.AddRow(e.Name, e.Path, cmdutil.BoolToYesNo(e.Owned), e.UUID)
			}
			return printer.List(entries, table, "Nothing shared.")
		})
	},
}

var decideOwnerOnly bool

// decision is the printable outcome of the decide command.
type decision struct {
	Path        string `json:"path" yaml:"path"`
	Actor       string `json:"actor" yaml:"actor"`
	OwnerOnly   bool   `json:"owner_only" yaml:"owner_only"`
	Allowed     bool   `json:"allowed" yaml:"allowed"`
	Rule        string `json:"rule" yaml:"rule"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	DirectoryID string `json:"directory_id,omitempty" yaml:"directory_id,omitempty"`
}

var decideCmd = &cobra.Command{
	Use:   "decide <path>",
	Short: "Explain whether the acting identity may operate on a path",
	Long: `Evaluate the access rules for <path> without performing an operation.
--owner-only checks the rename/delete/grant class instead of read/write.

Examples:
  dittobox decide alice/docs --as bob
  dittobox decide alice/docs --owner-only --as bob -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			d, err := s.Service.Decide(ctx, actor, args[0], decideOwnerOnly)
			if err != nil {
				return err
			}

			out := decision{
				Path:        args[0],
				Actor:       actor.Identity,
				OwnerOnly:   decideOwnerOnly,
				Allowed:     d.Allowed,
				Rule:        string(d.Rule),
				Reason:      d.Reason,
				DirectoryID: d.DirectoryID,
			}

			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			var fields output.Fields
			fields = fields.Add("Path", out.Path).
				Add("Actor", out.Actor).
				Add("Owner only", cmdutil.BoolToYesNo(out.OwnerOnly)).
				Add("Allowed", cmdutil.BoolToYesNo(out.Allowed)).
				Add("Rule", out.Rule).
				Add("Reason", cmdutil.EmptyOr(out.Reason, "-")).
				Add("Directory", cmdutil.EmptyOr(out.DirectoryID, "-"))
			return printer.Resource(out, fields)
		})
	},
}

func init() {
	decideCmd.Flags().BoolVar(&decideOwnerOnly, "owner-only", false, "Check the owner-only operation class")
}
