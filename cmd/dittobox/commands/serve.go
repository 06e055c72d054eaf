package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittobox/cmd/dittobox/cmdutil"
	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/api"
	"github.com/marmos91/dittobox/pkg/config"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	Long: `Serve the storage operations over HTTP until interrupted.

Users log in with the password set by "dittobox user passwd" and receive
JWT bearer tokens. The signing secret comes from api.jwt.secret or
` + config.EnvJWTSecret + `.

Examples:
  ` + config.EnvJWTSecret + `=$(openssl rand -hex 32) dittobox serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default: api.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cmdutil.Run(ctx, func(ctx context.Context, s *cmdutil.Session) error {
		apiCfg := s.Config.API
		if servePort != 0 {
			apiCfg.Port = servePort
		}
		if !apiCfg.HasJWTSecret() {
			return fmt.Errorf("API requires a JWT secret of at least %d characters: set api.jwt.secret or %s",
				config.MinJWTSecretLength, config.EnvJWTSecret)
		}

		server, err := api.NewServer(apiCfg, s.Service)
		if err != nil {
			return err
		}

		logger.Info("Server is running. Press Ctrl+C to stop.", "port", server.Port())
		return server.Start(ctx)
	})
}
