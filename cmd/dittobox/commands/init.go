package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample DittoBox configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/dittobox/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  dittobox init

  # Initialize with custom path
  dittobox init --config /etc/dittobox/config.yaml

  # Force overwrite existing config
  dittobox init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.Flags.ConfigFile

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Set storage.root and add your identity to admins")
	_, _ = fmt.Fprintln(out, "  2. Register users with: dittobox user add <identity>")
	_, _ = fmt.Fprintln(out, "  3. Create a home directory with: dittobox home --as <identity>")
	_, _ = fmt.Fprintln(out, "\nTo serve the REST API, set a signing secret of at least 32 characters:")
	_, _ = fmt.Fprintf(out, "    export %s=$(openssl rand -hex 32)\n", config.EnvJWTSecret)
	return nil
}
