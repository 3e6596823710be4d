package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/plugmatrix/plugmatrix/pkg/engine"
	"github.com/plugmatrix/plugmatrix/pkg/registry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &SQLiteStore{cfg: cfg}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded migration files.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveRun stores a run and its configuration list in one transaction.
// The configuration order is preserved via an explicit sequence column.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, configs []engine.Configuration) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, root, releases, status, error, config_count, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Root,
		run.Releases,
		run.Status,
		run.Error,
		run.ConfigCount,
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	for seq, config := range configs {
		artifacts, err := json.Marshal(config.Artifacts)
		if err != nil {
			return fmt.Errorf("failed to encode artifacts for %s: %w", config.Key(), err)
		}
		repositories, err := json.Marshal(config.Repositories)
		if err != nil {
			return fmt.Errorf("failed to encode repositories for %s: %w", config.Key(), err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO configurations
				(run_id, seq, source_path, plugin_id, type, release, module, version_range, artifacts, repositories, parent_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			seq,
			config.SourcePath,
			config.PluginID,
			config.Type.String(),
			config.Release,
			config.Module.String(),
			config.VersionRange,
			string(artifacts),
			string(repositories),
			config.ParentKey,
		)
		if err != nil {
			return fmt.Errorf("failed to store configuration %s: %w", config.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, root, releases, status, error, config_count, started_at, completed_at
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.Root,
		&run.Releases,
		&run.Status,
		&run.Error,
		&run.ConfigCount,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns lists runs with pagination, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, releases, status, error, config_count, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Root,
			&run.Releases,
			&run.Status,
			&run.Error,
			&run.ConfigCount,
			&run.StartedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListConfigurations returns a run's configurations in stored order.
func (s *SQLiteStore) ListConfigurations(ctx context.Context, runID string) ([]engine.Configuration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_path, plugin_id, type, release, module, version_range, artifacts, repositories, parent_key
		FROM configurations
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer rows.Close()

	configs := []engine.Configuration{}
	for rows.Next() {
		var config engine.Configuration
		var distType, module, artifacts, repositories string
		err := rows.Scan(
			&config.SourcePath,
			&config.PluginID,
			&distType,
			&config.Release,
			&module,
			&config.VersionRange,
			&artifacts,
			&repositories,
			&config.ParentKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}

		config.Type = registry.Module(distType)
		config.Module = registry.Module(module)
		if err := json.Unmarshal([]byte(artifacts), &config.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to decode artifacts: %w", err)
		}
		if err := json.Unmarshal([]byte(repositories), &config.Repositories); err != nil {
			return nil, fmt.Errorf("failed to decode repositories: %w", err)
		}

		configs = append(configs, config)
	}
	return configs, rows.Err()
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
