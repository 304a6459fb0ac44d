// Package sqlstore keeps the run ledger in sqlite or postgres.
package sqlstore

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"pkemu/internal/errors"
)

// Driver picks the database/sql driver for a ledger URL. postgres:// and
// postgresql:// URLs use lib/pq; anything else is a sqlite file path.
func Driver(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

// Open connects to the ledger and applies pending migrations
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, Driver(url), url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to run ledger", err)
	}
	if db.DriverName() == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := NewMigrator(db).Up(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to migrate run ledger", err)
	}
	return db, nil
}
