package cmd

import (
	"context"

	"github.com/sitewave/sitewave/internal/app"
	"github.com/sitewave/sitewave/internal/config"
	"github.com/sitewave/sitewave/pkg/graceful"
	"github.com/spf13/cobra"
)

var serveWebCommand = &cobra.Command{
	Use:   "serve-web",
	Short: "Start SiteWave Server",
	Run:   serveWeb,
}

func serveWeb(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	cfg := resolveConfig()

	service := app.New(ctx, cfg)

	setupOnBeforeRun(service, cfg)

	service.RunServer()
	service.RunScheduler()
	if err := graceful.WaitShutdown(); err != nil {
		service.Logger().Error().Err(err).Msg("unable to shutdown service gracefully")
		return
	}

	service.Logger().Info().Msg("shutdown complete")
}

func setupOnBeforeRun(service *app.App, cfg *config.Config) {
	service.OnBeforeRun(func(_ context.Context, a *app.App) error {
		if cfg.Postgres.MigrateOnStart {
			a.Logger().Info().Msg("Enabled migration on start")
			return performMigration(cfg, "up")
		}

		return nil
	})
}
