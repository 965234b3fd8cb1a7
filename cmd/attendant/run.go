package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/makerhaus/attendant/pkg/chat"
	"github.com/makerhaus/attendant/pkg/config"
	"github.com/makerhaus/attendant/pkg/ledger"
	"github.com/makerhaus/attendant/pkg/log"
	"github.com/makerhaus/attendant/pkg/reconcile"
	"github.com/makerhaus/attendant/pkg/runlock"
	"github.com/makerhaus/attendant/pkg/taiga"
	"github.com/makerhaus/attendant/pkg/tidyhq"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
)

// NewRunCommand builds the reconciliation command: a single run by
// default, or a resident scheduler when --schedule is given.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the reconciliation loop until the board is stable",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				Value:   "config.json",
				Sources: cli.EnvVars("ATTENDANT_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "import",
				Usage:   "Create cards for membership records missing from the board",
				Sources: cli.EnvVars("ATTENDANT_IMPORT"),
			},
			&cli.BoolFlag{
				Name:  "force-lock",
				Usage: "Steal a stale run lock left behind by a crashed run",
			},
			&cli.BoolFlag{
				Name:  "refresh-cache",
				Usage: "Refresh the membership snapshot even when still fresh",
			},
			&cli.IntFlag{
				Name:  "max-passes",
				Usage: "Safety cap on reconciliation passes",
				Value: reconcile.DefaultMaxPasses,
			},
			&cli.StringFlag{
				Name:    "ledger-url",
				Usage:   "Override the template ledger URL (file://, postgres://, redis://)",
				Sources: cli.EnvVars("ATTENDANT_LEDGER_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression; keeps running and reconciles on schedule",
				Sources: cli.EnvVars("ATTENDANT_SCHEDULE"),
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

			if url := command.String("ledger-url"); url != "" {
				cfg.LedgerURL = url
			}

			opts := runOptions{
				importContacts: command.Bool("import"),
				forceLock:      command.Bool("force-lock"),
				refreshCache:   command.Bool("refresh-cache"),
				maxPasses:      int(command.Int("max-passes")),
			}

			schedule := command.String("schedule")
			if schedule == "" {
				return executeRun(ctx, cfg, opts)
			}

			return runOnSchedule(ctx, cfg, opts, schedule)
		},
	}
}

type runOptions struct {
	importContacts bool
	forceLock      bool
	refreshCache   bool
	maxPasses      int
}

// runOnSchedule reconciles on a cron schedule until the context is
// cancelled. A run overlapping a slow predecessor loses the lock race
// and is skipped rather than queued.
func runOnSchedule(ctx context.Context, cfg *config.Config, opts runOptions, schedule string) error {
	logger := log.WithModule("attendant")

	scheduler := cron.New()

	_, err := scheduler.AddFunc(schedule, func() {
		if err := executeRun(ctx, cfg, opts); err != nil {
			logger.Error("Scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info("Reconciling on schedule", "schedule", schedule)
	scheduler.Start()

	<-ctx.Done()

	<-scheduler.Stop().Done()

	return nil
}

func executeRun(ctx context.Context, cfg *config.Config, opts runOptions) error {
	runID := "run-" + uuid.New().String()[:8]
	logger := log.WithModule("attendant").With("run_id", runID)

	lock, err := runlock.Acquire(cfg.LockPath, runID, opts.forceLock)
	if err != nil {
		return err
	}

	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("Failed to release run lock", "error", err)
		}
	}()

	tracker, err := connectTracker(ctx, logger, cfg)
	if err != nil {
		return err
	}

	board, err := reconcile.NewBoard(ctx, tracker, cfg.Taiga.Project)
	if err != nil {
		return err
	}

	tidy := tidyhq.NewClient(log.WithModule("tidyhq"), tidyhq.DefaultBaseURL, cfg.TidyHQ.Token)

	cache, err := tidyhq.Fresh(ctx, tidy, cfg.CachePath,
		time.Duration(cfg.CacheExpiry)*time.Second, opts.refreshCache, nil)
	if err != nil {
		return err
	}

	store, err := ledger.NewStore(ctx, log.WithModule("ledger"), cfg.LedgerURL)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.Error("Failed to close ledger", "error", err)
		}
	}()

	if err := store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("ledger unavailable: %w", err)
	}

	runner := reconcile.NewRunner(cfg, board, tracker, cache, store, logger, reconcile.Options{
		ImportContacts: opts.importContacts,
		MaxPasses:      opts.maxPasses,
		Notifier:       connectNotifier(ctx, logger, cfg),
	})

	logger.Info("Starting reconciliation", "project", cfg.Taiga.Project)

	if err := runner.Run(ctx); err != nil {
		return err
	}

	logger.Info("Reconciliation complete")

	return nil
}

func connectTracker(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*taiga.Client, error) {
	taigaLogger := log.WithModule("taiga")

	if cfg.Taiga.Token != "" {
		return taiga.NewClient(taigaLogger, cfg.Taiga.URL, cfg.Taiga.Token), nil
	}

	client, err := taiga.Authenticate(ctx, taigaLogger, cfg.Taiga.URL, cfg.Taiga.Username, cfg.Taiga.Password)
	if err != nil {
		return nil, err
	}

	logger.Debug("Authenticated against tracker", "url", cfg.Taiga.URL)

	return client, nil
}

// connectNotifier returns a chat notifier, or nil when chat is not
// configured or the token does not check out.
func connectNotifier(ctx context.Context, logger *slog.Logger, cfg *config.Config) reconcile.Notifier {
	if cfg.Chat.Token == "" || cfg.Chat.NotifyChannel == "" {
		return nil
	}

	client := chat.NewClient(log.WithModule("chat"), chat.DefaultBaseURL, cfg.Chat.Token)

	if err := client.AuthTest(ctx); err != nil {
		logger.Warn("Chat authentication failed, notifications disabled", "error", err)

		return nil
	}

	return client
}
