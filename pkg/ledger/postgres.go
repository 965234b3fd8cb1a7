package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
)

const currentSchemaVersion = 1

func migrations() map[int]string {
	return map[int]string{
		1: `CREATE TABLE IF NOT EXISTS template_actions (
			card_id INTEGER NOT NULL,
			stage_id INTEGER NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (card_id, stage_id)
		)`,
	}
}

// PostgresStore keeps the ledger in a table with a composite primary
// key, using conditional inserts so concurrent writers cannot record a
// pair twice.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore connects, pings and migrates the ledger schema.
func NewPostgresStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}

	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run ledger migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Completed(ctx context.Context, cardID int) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT stage_id FROM template_actions WHERE card_id = $1", cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for card %d: %w", cardID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close ledger rows", "error", err)
		}
	}()

	stages := make(map[int]bool)

	for rows.Next() {
		var stageID int
		if err := rows.Scan(&stageID); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}

		stages[stageID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger rows: %w", err)
	}

	return stages, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, cardID, stageID int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO template_actions (card_id, stage_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		cardID, stageID)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry (%d, %d): %w", cardID, stageID, err)
	}

	return nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ledger_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM ledger_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for version := int(current.Int64) + 1; version <= currentSchemaVersion; version++ {
		s.logger.InfoContext(ctx, "Applying ledger migration", "version", version)

		if _, err := s.db.ExecContext(ctx, migrations()[version]); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO ledger_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
	}

	return nil
}
