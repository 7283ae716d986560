package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/hivedeck-drive/internal/server"
)

// newServeCmd creates the 'serve' command.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP bridge over one browsing session",
		Long: `Run an authenticated local HTTP/JSON API that drives one browsing
session, so editors and scripts can navigate, select, move and transfer.

Without API_KEY the bridge starts in setup mode and serves /setup only.

Example:
  hivedeck-drive serve --port 8092`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port > 0 {
				cfg.Port = port
			}

			sess, _, err := newSession(cfg, log)
			if err != nil {
				return err
			}

			ctx := GetContext()
			if err := sess.Nav.Start(ctx); err != nil {
				// The bridge still comes up; clients can retry with /api/nav/refresh
				log.Warn().Err(err).Msg("initial listing failed")
			}

			if cfg.SetupMode {
				log.Warn().Msg("no API key configured, starting in setup mode")
				log.Info().Msgf("POST http://%s/setup/generate then /setup/save to configure the bridge", cfg.Addr())
			}

			return server.New(cfg, sess, log).Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")

	return cmd
}
