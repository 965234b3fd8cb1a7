package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/makerhaus/attendant/pkg/config"
	"github.com/makerhaus/attendant/pkg/ledger"
	"github.com/makerhaus/attendant/pkg/log"
	cli "github.com/urfave/cli/v3"
)

// NewLedgerCommand builds the command that inspects which stages the
// template sync already processed for a card.
func NewLedgerCommand() *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect the template ledger",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the stages recorded for a card",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the configuration file",
						Value:   "config.json",
						Sources: cli.EnvVars("ATTENDANT_CONFIG"),
					},
					&cli.IntFlag{
						Name:     "card",
						Usage:    "Card id to inspect",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "log-level",
						Usage:   "Log level (debug, info, warn, error)",
						Value:   "error",
						Sources: cli.EnvVars("LOG_LEVEL"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					cfg, err := config.Load(command.String("config"))
					if err != nil {
						return err
					}

					store, err := ledger.NewStore(ctx, log.WithModule("ledger"), cfg.LedgerURL)
					if err != nil {
						return err
					}
					defer func() { _ = store.Close(ctx) }()

					cardID := int(command.Int("card"))

					recorded, err := store.Completed(ctx, cardID)
					if err != nil {
						return err
					}

					if len(recorded) == 0 {
						fmt.Printf("card %d: no stages recorded\n", cardID)

						return nil
					}

					stages := make([]int, 0, len(recorded))
					for stage := range recorded {
						stages = append(stages, stage)
					}

					sort.Ints(stages)

					for _, stage := range stages {
						fmt.Printf("card %d: stage %d\n", cardID, stage)
					}

					return nil
				},
			},
		},
	}
}
