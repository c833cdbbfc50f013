package stores

import (
	"context"
	"database/sql"
	"time"
)

// GenerationStatus represents the status of a manifest generation.
type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusCompiled  GenerationStatus = "compiled"
	GenerationStatusActivated GenerationStatus = "activated"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// ActivationStatus represents the status of a `brew bundle` invocation.
type ActivationStatus string

const (
	ActivationStatusPending   ActivationStatus = "pending"
	ActivationStatusRunning   ActivationStatus = "running"
	ActivationStatusCompleted ActivationStatus = "completed"
	ActivationStatusFailed    ActivationStatus = "failed"
)

// EventLevel represents the severity level of an event.
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Generation represents one compiled manifest: which config produced it,
// where it was written, and a content hash for change detection.
type Generation struct {
	ID             string           `json:"id"`
	SourcePath     string           `json:"source_path"`
	ManifestPath   string           `json:"manifest_path"`
	ManifestSHA256 string           `json:"manifest_sha256"`
	ManifestBytes  int64            `json:"manifest_bytes"`
	Status         GenerationStatus `json:"status"`
	Violations     int              `json:"violations"`
	Error          *string          `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Activation represents one activation run of a generation.
type Activation struct {
	ID           string           `json:"id"`
	GenerationID string           `json:"generation_id"`
	Command      string           `json:"command"`
	Status       ActivationStatus `json:"status"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ExitCode     *int             `json:"exit_code,omitempty"`
	Error        *string          `json:"error,omitempty"`
}

// Event represents an append-only log event tied to a generation.
type Event struct {
	ID           int64      `json:"id"`
	GenerationID *string    `json:"generation_id,omitempty"`
	Level        EventLevel `json:"level"`
	Message      string     `json:"message"`
	Details      *string    `json:"details,omitempty"` // JSON blob
	Timestamp    time.Time  `json:"timestamp"`
}

// Store defines the interface for the ledger persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Generation operations
	CreateGeneration(ctx context.Context, gen *Generation) error
	GetGeneration(ctx context.Context, id string) (*Generation, error)
	LatestGeneration(ctx context.Context, sourcePath string) (*Generation, error)
	UpdateGenerationStatus(ctx context.Context, id string, status GenerationStatus, err *string) error
	ListGenerations(ctx context.Context, limit, offset int) ([]*Generation, error)
	DeleteGeneration(ctx context.Context, id string) error
	PruneGenerations(ctx context.Context, keep int) (int64, error)

	// Activation operations
	CreateActivation(ctx context.Context, act *Activation) error
	UpdateActivationStatus(ctx context.Context, id string, status ActivationStatus, exitCode *int, err *string) error
	ListActivationsByGeneration(ctx context.Context, generationID string) ([]*Activation, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, generationID *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
