package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/pkg/bufpool"
	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/filestore"
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Create the acting user's home directory",
	Long: `Create the top-level directory named after the acting identity, owned by
it. Running it again is harmless.

Examples:
  dittobox home --as alice`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			home, err := s.Service.EnsureHome(ctx, actor)
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"path": home}, fmt.Sprintf("Home directory: %s", home))
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Long: `List the children of a directory. Without a path the storage root is
listed, which only administrators may do.

Examples:
  dittobox ls alice --as alice
  dittobox ls alice/docs --as bob -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ""
		if len(args) == 1 {
			p = args[0]
		}
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			children, err := s.Service.List(ctx, actor, p)
			if err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			table := output.NewTableData("NAME", "TYPE", "PATH")
			for _, c := range children {
				table.AddRow(c.Name, nodeType(c.IsDirectory), c.Path)
			}
			return printer.List(children, table, "Directory is empty.")
		})
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show details of a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			desc, err := s.Service.Stat(ctx, actor, args[0])
			if err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return printer.Resource(desc, descriptorFields(desc))
		})
	},
}

var catOutput string

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print the content of a file",
	Long: `Write the content of a file to stdout, or to a local file with --to.

Examples:
  dittobox cat alice/docs/notes.txt --as bob
  dittobox cat alice/report.pdf --to report.pdf --as alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			rc, _, err := s.Service.Read(ctx, actor, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			var w io.Writer = cmd.OutOrStdout()
			if catOutput != "" {
				f, err := os.Create(catOutput)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", catOutput, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if _, err := bufpool.Copy(w, rc); err != nil {
				return fmt.Errorf("failed to copy %s: %w", args[0], err)
			}
			return nil
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <parent> <name>",
	Short: "Create a directory",
	Long: `Create directory <name> inside <parent>, owned by the acting identity.

Examples:
  dittobox mkdir alice docs --as alice`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			p, err := s.Service.Mkdir(ctx, actor, args[0], args[1])
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"path": p}, fmt.Sprintf("Directory '%s' created", p))
		})
	},
}

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <dir> <local-file>",
	Short: "Upload a local file",
	Long: `Store a local file inside <dir>. A name collision is resolved by adding a
numeric suffix; the stored path is printed.

Examples:
  dittobox upload alice/docs ./notes.txt --as alice
  dittobox upload alice/docs ./draft.txt --name final.txt --as alice`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[1], err)
		}
		defer func() { _ = f.Close() }()

		name := uploadName
		if name == "" {
			name = filepath.Base(args[1])
		}

		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			p, err := s.Service.Upload(ctx, actor, args[0], f, name)
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"path": p}, fmt.Sprintf("Uploaded to '%s'", p))
		})
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <path> <new-name>",
	Short: "Rename a file or directory",
	Long: `Rename a node within its parent directory. Only the owner may rename a
directory; grants and ownership follow the directory.

Examples:
  dittobox mv alice/docs papers --as alice`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			p, err := s.Service.Rename(ctx, actor, args[0], args[1])
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"path": p}, fmt.Sprintf("Renamed to '%s'", p))
		})
	},
}

var rmForce bool

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or an empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunAs(cmd.Context(), func(ctx context.Context, s *cmdutil.Session, actor access.Actor) error {
			return cmdutil.RunDeleteWithConfirmation(cmd.OutOrStdout(), "node", args[0], rmForce, func() error {
				return s.Service.Delete(ctx, actor, args[0])
			})
		})
	},
}

func init() {
	catCmd.Flags().StringVar(&catOutput, "to", "", "Write to this local file instead of stdout")
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "Stored name (default: local file name)")
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Skip confirmation prompt")
}

func printResult(cmd *cobra.Command, data any, msg string) error {
	printer, err := cmdutil.Printer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return printer.Result(data, msg)
}

func nodeType(isDir bool) string {
	if isDir {
		return "dir"
	}
	return "file"
}

func descriptorFields(d *filestore.FileDescriptor) output.Fields {
	var f output.Fields
	f = f.Add("Name", d.Name).
		Add("Path", d.Path).
		Add("Type", nodeType(d.IsDirectory)).
		Add("Media type", d.MimeType)
	if !d.IsDirectory {
		f = f.Add("Size", fmt.Sprintf("%d bytes (%.2f MB)", d.Size, d.SizeMB))
	}
	return f.Add("Modified", d.ModifiedAt.Format(time.RFC3339)).
		Add("Owner", cmdutil.EmptyOr(d.Owner, "-")).
		Add("UUID", cmdutil.EmptyOr(d.UUID, "-")).
		Add("Editable", cmdutil.BoolToYesNo(d.Editable))
}
