package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded schema files.
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

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateGeneration records a new manifest generation.
func (s *SQLiteStore) CreateGeneration(ctx context.Context, gen *Generation) error {
	query := `
		INSERT INTO generations (id, source_path, manifest_path, manifest_sha256, manifest_bytes, status, violations, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		gen.ID,
		gen.SourcePath,
		gen.ManifestPath,
		gen.ManifestSHA256,
		gen.ManifestBytes,
		gen.Status,
		gen.Violations,
		gen.Error,
		gen.CreatedAt,
		gen.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}

	return nil
}

// GetGeneration retrieves a generation by ID
func (s *SQLiteStore) GetGeneration(ctx context.Context, id string) (*Generation, error) {
	query := `
		SELECT id, source_path, manifest_path, manifest_sha256, manifest_bytes, status, violations, error, created_at, updated_at
		FROM generations
		WHERE id = ?
	`

	gen := &Generation{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&gen.ID,
		&gen.SourcePath,
		&gen.ManifestPath,
		&gen.ManifestSHA256,
		&gen.ManifestBytes,
		&gen.Status,
		&gen.Violations,
		&gen.Error,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("generation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	return gen, nil
}

// LatestGeneration returns the most recent generation for a source path, or
// nil when the source has never been compiled. Callers use the manifest hash
// to skip rewriting an unchanged manifest.
func (s *SQLiteStore) LatestGeneration(ctx context.Context, sourcePath string) (*Generation, error) {
	query := `
		SELECT id, source_path, manifest_path, manifest_sha256, manifest_bytes, status, violations, error, created_at, updated_at
		FROM generations
		WHERE source_path = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	gen := &Generation{}
	err := s.db.QueryRowContext(ctx, query, sourcePath).Scan(
		&gen.ID,
		&gen.SourcePath,
		&gen.ManifestPath,
		&gen.ManifestSHA256,
		&gen.ManifestBytes,
		&gen.Status,
		&gen.Violations,
		&gen.Error,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest generation: %w", err)
	}

	return gen, nil
}

// UpdateGenerationStatus updates the status of a generation
func (s *SQLiteStore) UpdateGenerationStatus(ctx context.Context, id string, status GenerationStatus, errMsg *string) error {
	query := `
		UPDATE generations
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update generation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("generation not found: %s", id)
	}

	return nil
}

// ListGenerations lists generations with pagination, newest first.
func (s *SQLiteStore) ListGenerations(ctx context.Context, limit, offset int) ([]*Generation, error) {
	query := `
		SELECT id, source_path, manifest_path, manifest_sha256, manifest_bytes, status, violations, error, created_at, updated_at
		FROM generations
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	gens := []*Generation{}
	for rows.Next() {
		gen := &Generation{}
		err := rows.Scan(
			&gen.ID,
			&gen.SourcePath,
			&gen.ManifestPath,
			&gen.ManifestSHA256,
			&gen.ManifestBytes,
			&gen.Status,
			&gen.Violations,
			&gen.Error,
			&gen.CreatedAt,
			&gen.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		gens = append(gens, gen)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}

	return gens, nil
}

// DeleteGeneration deletes a generation and its activations and events.
func (s *SQLiteStore) DeleteGeneration(ctx context.Context, id string) error {
	query := `DELETE FROM generations WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("generation not found: %s", id)
	}

	return nil
}

// PruneGenerations deletes all generations except the newest keep, cascading
// to their activations and events. Returns the number of generations removed.
func (s *SQLiteStore) PruneGenerations(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be non-negative, got %d", keep)
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		DELETE FROM generations
		WHERE id NOT IN (
			SELECT id FROM generations ORDER BY created_at DESC LIMIT ?
		)
	`

	result, err := tx.ExecContext(ctx, query, keep)
	if err != nil {
		_ = s.RollbackTx(tx)
		return 0, fmt.Errorf("failed to prune generations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		_ = s.RollbackTx(tx)
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := s.CommitTx(tx); err != nil {
		return 0, err
	}

	return rows, nil
}

// CreateActivation records a new activation run.
func (s *SQLiteStore) CreateActivation(ctx context.Context, act *Activation) error {
	query := `
		INSERT INTO activations (id, generation_id, command, status, started_at, completed_at, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		act.ID,
		act.GenerationID,
		act.Command,
		act.Status,
		act.StartedAt,
		act.CompletedAt,
		act.ExitCode,
		act.Error,
	)

	if err != nil {
		return fmt.Errorf("failed to create activation: %w", err)
	}

	return nil
}

// UpdateActivationStatus updates the status of an activation
func (s *SQLiteStore) UpdateActivationStatus(ctx context.Context, id string, status ActivationStatus, exitCode *int, errMsg *string) error {
	query := `
		UPDATE activations
		SET status = ?, exit_code = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	var completedAt *time.Time
	if status == ActivationStatusCompleted || status == ActivationStatusFailed {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, exitCode, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update activation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("activation not found: %s", id)
	}

	return nil
}

// ListActivationsByGeneration lists all activations for a generation
func (s *SQLiteStore) ListActivationsByGeneration(ctx context.Context, generationID string) ([]*Activation, error) {
	query := `
		SELECT id, generation_id, command, status, started_at, completed_at, exit_code, error
		FROM activations
		WHERE generation_id = ?
		ORDER BY started_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}
	defer rows.Close()

	acts := []*Activation{}
	for rows.Next() {
		act := &Activation{}
		err := rows.Scan(
			&act.ID,
			&act.GenerationID,
			&act.Command,
			&act.Status,
			&act.StartedAt,
			&act.CompletedAt,
			&act.ExitCode,
			&act.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation: %w", err)
		}
		acts = append(acts, act)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activations: %w", err)
	}

	return acts, nil
}

// AppendEvent appends an event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (generation_id, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.GenerationID,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	event.ID = id

	return nil
}

// GetEvents retrieves events with optional filters
func (s *SQLiteStore) GetEvents(ctx context.Context, generationID *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, generation_id, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR generation_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, generationID, generationID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.GenerationID,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// HealthCheck verifies the database is accessible
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}
