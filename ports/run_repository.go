package ports

import (
	"context"
	"time"

	"pkemu/domain/core"
)

// RunStatus is the lifecycle state of a ledger entry
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// RunRecord is one row of the run ledger
type RunRecord struct {
	ID           core.RunID `db:"id"`
	Command      string     `db:"command"`
	InputPath    string     `db:"input_path"`
	InputHash    string     `db:"input_hash"`
	Engine       string     `db:"engine"`
	Redshift     float64    `db:"redshift"`
	Rows         int        `db:"row_count"`
	Status       RunStatus  `db:"status"`
	ErrorMessage *string    `db:"error_message"`
	Fingerprint  string     `db:"fingerprint"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

// RunRepository records pipeline runs
type RunRepository interface {
	StartRun(ctx context.Context, rec *RunRecord) error
	CompleteRun(ctx context.Context, id core.RunID, rows int, fingerprint string) error
	FailRun(ctx context.Context, id core.RunID, cause error) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
