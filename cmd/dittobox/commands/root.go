// Package commands implements the dittobox command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	configcmd "github.com/marmos91/dittobox/cmd/dittobox/commands/config"
	usercmd "github.com/marmos91/dittobox/cmd/dittobox/commands/user"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dittobox",
	Short: "DittoBox - shared file storage with per-directory access grants",
	Long: `DittoBox stores files under a single root directory. Every user owns a
personal namespace, directory owners can grant other users access, and
administrators can reach everything.

Commands act as the identity given with --as (or DITTOBOX_AS).

Use "dittobox [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.As, _ = cmd.Flags().GetString("as")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute runs the root command.
func Execute() error {
	cmdutil.Version = Version
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $XDG_CONFIG_HOME/dittobox/config.yaml)")
	rootCmd.PersistentFlags().String("as", "", "identity to act as (default: $"+cmdutil.EnvActor+")")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(granteesCmd)
	rootCmd.AddCommand(sharedCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(usercmd.Cmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
