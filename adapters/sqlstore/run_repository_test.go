package sqlstore

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkemu/domain/core"
	"pkemu/internal/errors"
	"pkemu/ports"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(started time.Time) *ports.RunRecord {
	return &ports.RunRecord{
		ID:        core.NewRunID(),
		Command:   "generate",
		InputPath: "data/lhs_500.csv",
		InputHash: "abc123",
		Engine:    "analytic",
		Redshift:  0.5,
		StartedAt: started,
	}
}

func TestDriver(t *testing.T) {
	assert.Equal(t, "postgres", Driver("postgres://user@localhost/pkemu"))
	assert.Equal(t, "postgres", Driver("postgresql://localhost/pkemu"))
	assert.Equal(t, "sqlite3", Driver("data/ledger.db"))
	assert.Equal(t, "sqlite3", Driver(":memory:"))
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t))

	ok := newRecord(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.StartRun(ctx, ok))
	require.NoError(t, repo.CompleteRun(ctx, ok.ID, 500, "f00d"))

	bad := newRecord(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.StartRun(ctx, bad))
	require.NoError(t, repo.FailRun(ctx, bad.ID, stderrors.New("engine exploded")))

	pending := newRecord(time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.StartRun(ctx, pending))

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, pending.ID, runs[0].ID)
	assert.Equal(t, ports.RunRunning, runs[0].Status)
	assert.Nil(t, runs[0].CompletedAt)

	assert.Equal(t, bad.ID, runs[1].ID)
	assert.Equal(t, ports.RunFailed, runs[1].Status)
	require.NotNil(t, runs[1].ErrorMessage)
	assert.Equal(t, "engine exploded", *runs[1].ErrorMessage)

	assert.Equal(t, ok.ID, runs[2].ID)
	assert.Equal(t, ports.RunComplete, runs[2].Status)
	assert.Equal(t, 500, runs[2].Rows)
	assert.Equal(t, "f00d", runs[2].Fingerprint)
	assert.Equal(t, 0.5, runs[2].Redshift)
	assert.True(t, ok.StartedAt.Equal(runs[2].StartedAt))
	require.NotNil(t, runs[2].CompletedAt)

	limited, err := repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, pending.ID, limited[0].ID)
}

func TestCompleteUnknownRun(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	err := repo.CompleteRun(context.Background(), core.NewRunID(), 1, "x")
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestDuplicateStartFails(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t))
	rec := newRecord(time.Now().UTC())
	require.NoError(t, repo.StartRun(ctx, rec))
	assert.Error(t, repo.StartRun(ctx, rec))
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, len(migrations), n)
}
