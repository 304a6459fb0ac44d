package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"pkemu/domain/core"
	"pkemu/internal/errors"
	"pkemu/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// StartRun inserts a run in the running state
func (r *runRepository) StartRun(ctx context.Context, rec *ports.RunRecord) error {
	rec.Status = ports.RunRunning
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	query := `INSERT INTO runs (
		id, command, input_path, input_hash, engine, redshift, row_count,
		status, error_message, fingerprint, started_at, completed_at
	) VALUES (
		:id, :command, :input_path, :input_hash, :engine, :redshift, :row_count,
		:status, :error_message, :fingerprint, :started_at, :completed_at
	)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return errors.DatabaseError("failed to record run start", err)
	}
	return nil
}

// CompleteRun marks a run complete with its row count and fingerprint
func (r *runRepository) CompleteRun(ctx context.Context, id core.RunID, rows int, fingerprint string) error {
	query := r.db.Rebind(`UPDATE runs
		SET status = ?, row_count = ?, fingerprint = ?, completed_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, ports.RunComplete, rows, fingerprint, time.Now().UTC(), id)
	return checkUpdated(res, err, id, "failed to record run completion")
}

// FailRun marks a run failed and stores the error text
func (r *runRepository) FailRun(ctx context.Context, id core.RunID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	query := r.db.Rebind(`UPDATE runs
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, ports.RunFailed, msg, time.Now().UTC(), id)
	return checkUpdated(res, err, id, "failed to record run failure")
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	query := `SELECT
		id, command, input_path, input_hash, engine, redshift, row_count,
		status, error_message, fingerprint, started_at, completed_at
	FROM runs
	ORDER BY started_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	runs := []ports.RunRecord{}
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func checkUpdated(res rowsAffected, err error, id core.RunID, message string) error {
	if err != nil {
		return errors.DatabaseError(message, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.DatabaseError(message, err)
	}
	if n == 0 {
		return errors.New(errors.CodeDatabaseError, "run not found: "+id.String())
	}
	return nil
}
