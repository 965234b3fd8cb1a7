// Package ledger records which (card, stage) pairs template propagation
// has already handled, so tasks are created at most once per stage even
// across process restarts. Backends are selected by URL scheme the same
// way the persistence layer picks a database.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnsupportedScheme indicates the ledger URL names no known backend.
var ErrUnsupportedScheme = errors.New("unsupported ledger scheme")

// Store persists completed (card, stage) pairs. Entries are permanent:
// a recorded pair is never removed, which is what makes template
// propagation at-most-once.
type Store interface {
	// Completed returns the stage ids already recorded for a card.
	Completed(ctx context.Context, cardID int) (map[int]bool, error)

	// MarkCompleted records a (card, stage) pair. Recording an existing
	// pair is a no-op.
	MarkCompleted(ctx context.Context, cardID, stageID int) error

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// NewStore opens the backend named by the URL scheme: file://path,
// postgres://..., or redis://....
func NewStore(ctx context.Context, logger *slog.Logger, storeURL string) (Store, error) {
	switch scheme(storeURL) {
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, logger, storeURL)
	case "redis", "rediss":
		return NewRedisStore(ctx, storeURL)
	case "file", "":
		return NewFileStore(storeURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, storeURL)
	}
}

func scheme(storeURL string) string {
	parts := strings.SplitN(storeURL, "://", 2)
	if len(parts) < 2 {
		return ""
	}

	return parts[0]
}
