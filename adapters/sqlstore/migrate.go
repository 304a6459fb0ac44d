package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pkemu/domain/core"
)

type migration struct {
	Version string
	SQL     string
}

// migrations run in order; applied versions are recorded with a checksum
var migrations = []migration{
	{
		Version: "001_create_runs",
		SQL: `CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			input_path TEXT NOT NULL,
			input_hash TEXT NOT NULL,
			engine TEXT NOT NULL,
			redshift DOUBLE PRECISION NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT,
			fingerprint TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
	},
	{
		Version: "002_index_runs_started_at",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at)`,
	},
}

// Migrator applies the ledger schema
type Migrator struct {
	db *sqlx.DB
}

// NewMigrator creates a new migrator
func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{db: db}
}

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, mig := range migrations {
		checksum := core.NewHash([]byte(mig.SQL)).String()
		if prev, ok := applied[mig.Version]; ok {
			if prev != checksum {
				return fmt.Errorf("migration %s changed after it was applied", mig.Version)
			}
			continue
		}
		if err := m.apply(ctx, mig, checksum); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.Version, err)
		}
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := m.db.SelectContext(ctx, &rows, `SELECT version, checksum FROM schema_migrations`); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Version] = r.Checksum
	}
	return out, nil
}

func (m *Migrator) apply(ctx context.Context, mig migration, checksum string) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, checksum) VALUES (?, ?)`), mig.Version, checksum); err != nil {
		return err
	}
	return tx.Commit()
}
