package stores

import (
	"context"
	"time"

	"github.com/plugmatrix/plugmatrix/pkg/engine"
)

// RunStatus represents the status of a resolution run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one resolution batch: which root was scanned, for which
// releases, and what came out of it.
type Run struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	Releases    string    `json:"releases"` // comma-separated release list
	Status      RunStatus `json:"status"`
	Error       *string   `json:"error,omitempty"`
	ConfigCount int       `json:"config_count"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store persists resolution runs and their configuration lists for
// downstream consumers.
type Store interface {
	// Init opens the underlying database.
	Init(ctx context.Context) error

	// Migrate brings the schema up to date.
	Migrate(ctx context.Context) error

	// SaveRun stores a run and its configurations atomically,
	// preserving list order.
	SaveRun(ctx context.Context, run *Run, configs []engine.Configuration) error

	// GetRun retrieves a run by id.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns lists runs, most recent first.
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	// ListConfigurations returns a run's configurations in stored
	// order.
	ListConfigurations(ctx context.Context, runID string) ([]engine.Configuration, error)

	// Close releases the database connection.
	Close() error
}
