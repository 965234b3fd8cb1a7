package main

import (
	"context"
	"time"

	"github.com/makerhaus/attendant/pkg/config"
	"github.com/makerhaus/attendant/pkg/log"
	"github.com/makerhaus/attendant/pkg/tidyhq"
	cli "github.com/urfave/cli/v3"
)

// NewRefreshCacheCommand builds the command that refreshes the on-disk
// membership snapshot without touching the board.
func NewRefreshCacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh-cache",
		Usage: "Refresh the membership database snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				Value:   "config.json",
				Sources: cli.EnvVars("ATTENDANT_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Refresh even when the snapshot is still fresh",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			logger := log.WithModule("tidyhq")
			client := tidyhq.NewClient(logger, tidyhq.DefaultBaseURL, cfg.TidyHQ.Token)

			cache, err := tidyhq.Fresh(ctx, client, cfg.CachePath,
				time.Duration(cfg.CacheExpiry)*time.Second, command.Bool("force"), nil)
			if err != nil {
				return err
			}

			logger.Info("Snapshot ready",
				"path", cfg.CachePath,
				"contacts", len(cache.Contacts),
				"taken", cache.Time)

			return nil
		},
	}
}
