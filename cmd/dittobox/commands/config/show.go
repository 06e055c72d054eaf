package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and environment overrides are
applied. Table output is rendered as YAML.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Postgres.Password != "" {
			cfg.Database.Postgres.Password = "********"
		}
		if cfg.API.JWT.Secret != "" {
			cfg.API.JWT.Secret = "********"
		}

		printer, err := cmdutil.Printer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if printer.Format() == output.FormatJSON {
			return output.PrintJSON(printer.Writer(), cfg)
		}
		return output.PrintYAML(printer.Writer(), cfg)
	},
}
