package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "attendant",
		Usage:                 "Reconcile the onboarding board with the membership database",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewRefreshCacheCommand(),
			NewLedgerCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
