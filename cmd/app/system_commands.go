package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/trustchecker/atrest/cmd/app/commands"
	"github.com/trustchecker/atrest/internal/app"
	"github.com/trustchecker/atrest/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Boot field encryption and start the admin HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "preload-secrets",
			Usage: "Fetch every known secret from the configured provider and report what resolved",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				vault, err := container.SecretsVault()
				if err != nil {
					return err
				}

				return commands.RunPreloadSecrets(
					ctx,
					vault,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
