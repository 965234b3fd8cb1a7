package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/makerhaus/attendant/pkg/config"
	"github.com/makerhaus/attendant/pkg/ledger"
	"github.com/makerhaus/attendant/pkg/tidyhq"
)

// ErrNoConvergence indicates the rule set kept reporting changes past
// the safety pass cap, which should be impossible with monotonic rules.
var ErrNoConvergence = errors.New("reconciliation did not converge")

// DefaultMaxPasses bounds the fixed-point loop. Every rule moves cards
// and tasks monotonically toward a terminal configuration, so hitting
// the cap means a rule cycle and is reported as an error.
const DefaultMaxPasses = 50

// Options tune a Runner beyond its required collaborators.
type Options struct {
	// ImportContacts enables the intake rule, which creates cards for
	// membership records not yet on the board.
	ImportContacts bool

	// MaxPasses overrides DefaultMaxPasses when positive.
	MaxPasses int

	// Notifier, when set together with the configured channel, receives
	// a message for every card the intake rule creates.
	Notifier Notifier

	// Closures overrides the default stage-order closure table.
	Closures map[int][]string
}

// Runner drives the reconciliation loop. It performs no tracker writes
// itself; all side effects happen inside the rules.
type Runner struct {
	cfg      *config.Config
	board    Board
	tracker  Tracker
	cache    *tidyhq.Cache
	ledger   ledger.Store
	logger   *slog.Logger
	notifier Notifier

	importContacts bool
	maxPasses      int
	closures       map[int][]string
}

// NewRunner assembles a runner over connected collaborators.
func NewRunner(cfg *config.Config, board Board, tracker Tracker, cache *tidyhq.Cache, store ledger.Store, logger *slog.Logger, opts Options) *Runner {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	closures := opts.Closures
	if closures == nil {
		closures = defaultClosures
	}

	return &Runner{
		cfg:            cfg,
		board:          board,
		tracker:        tracker,
		cache:          cache,
		ledger:         store,
		logger:         logger,
		notifier:       opts.Notifier,
		importContacts: opts.ImportContacts,
		maxPasses:      maxPasses,
		closures:       closures,
	}
}

type rule struct {
	name string
	run  func(ctx context.Context) (int, error)
}

func (r *Runner) rules() []rule {
	return []rule{
		{"link-identities", r.linkIdentities},
		{"intake", r.intake},
		{"sync-templates", r.syncTemplates},
		{"check-tasks", r.checkTasks},
		{"progress-complete", r.progressComplete},
		{"close-by-order", r.closeByOrder},
		{"progress-linked", r.progressLinked},
		{"progress-membership", r.progressMembership},
	}
}

// Run executes full passes over the rule set until one pass reports no
// changes, then performs the one-off housekeeping steps that cannot
// feed back into further passes.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.converge(ctx, r.rules()); err != nil {
		return err
	}

	r.logger.Info("Board stable, running housekeeping")

	return r.housekeeping(ctx)
}

func (r *Runner) converge(ctx context.Context, rules []rule) error {
	for pass := 1; ; pass++ {
		if pass > r.maxPasses {
			return fmt.Errorf("%w within %d passes", ErrNoConvergence, r.maxPasses)
		}

		r.logger.Info("Starting pass", "pass", pass)

		total := 0

		for _, rl := range rules {
			changes, err := rl.run(ctx)
			if err != nil {
				return fmt.Errorf("rule %s: %w", rl.name, err)
			}

			if changes > 0 {
				r.logger.Info("Rule made changes", "rule", rl.name, "changes", changes)
			}

			total += changes
		}

		if total == 0 {
			r.logger.Info("Pass made no changes", "passes", pass)

			return nil
		}
	}
}
