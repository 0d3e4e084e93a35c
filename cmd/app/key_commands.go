package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/trustchecker/atrest/cmd/app/commands"
	"github.com/trustchecker/atrest/internal/app"
	"github.com/trustchecker/atrest/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new field encryption master key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "Wrap the key with this KMS key (base64key://, gcpkms://, awskms://, azurekeyvault://, hashivault://)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				kmsKeyURI := cmd.String("kms-key-uri")
				if kmsKeyURI == "" {
					kmsKeyURI = cfg.KMSKeyURI
				}

				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					kmsKeyURI,
				)
			},
		},
		{
			Name:  "rotate-master-key",
			Usage: "Ask the running server to re-encrypt every PII field under a new master key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "new-key",
					Value: "",
					Usage: "New master key as 64 hex characters (generated when omitted and the secrets provider can store it)",
				},
				&cli.StringFlag{
					Name:  "server-url",
					Value: "",
					Usage: "Admin server base URL (defaults to SERVER_HOST:SERVER_PORT)",
				},
				&cli.StringFlag{
					Name:  "admin-token",
					Value: "",
					Usage: "Bearer token for the rotation endpoint (defaults to ADMIN_TOKEN)",
				},
				&cli.BoolFlag{
					Name:  "offline",
					Value: false,
					Usage: "Rotate in this process; refused while a server answers on the admin address",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if err := cfg.Validate(); err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				serverURL := cmd.String("server-url")
				if serverURL == "" {
					serverURL = commands.AdminServerURL(cfg.ServerHost, cfg.ServerPort)
				}
				adminToken := cmd.String("admin-token")
				if adminToken == "" {
					adminToken = cfg.AdminToken
				}
				// The client outlives the server-side sweep so the final summary still arrives.
				client := commands.NewAdminClient(serverURL, adminToken, cfg.RotationTimeout+time.Minute)

				if !cmd.Bool("offline") {
					if adminToken == "" {
						return errors.New("admin token required (set ADMIN_TOKEN or pass --admin-token)")
					}
					return commands.RunRotateMasterKey(
						ctx,
						client,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("new-key"),
						cmd.String("format"),
					)
				}

				encryption, err := container.EncryptionUseCase()
				if err != nil {
					return err
				}
				rotation, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateMasterKeyOffline(
					ctx,
					client,
					encryption,
					rotation,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("new-key"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "encryption-status",
			Usage: "Show field encryption state and the last rotation run",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				encryption, err := container.EncryptionUseCase()
				if err != nil {
					return err
				}

				return commands.RunEncryptionStatus(ctx, encryption, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
	}
}
