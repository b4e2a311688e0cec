package migration

import (
	"context"
	"time"
)

// Migration represents a database migration with its metadata and SQL content
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// MigrationManager orchestrates the migration process
type MigrationManager interface {
	// RunMigrations executes all pending migrations in version order and
	// returns how many were applied.
	RunMigrations(ctx context.Context) (int, error)

	// GetAppliedVersions returns the versions recorded in schema_migrations.
	GetAppliedVersions(ctx context.Context) ([]string, error)

	// GetPendingMigrations returns migrations that still need to be applied.
	GetPendingMigrations(ctx context.Context) ([]Migration, error)

	// GetMigrationStatus summarises applied and pending migrations.
	GetMigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// FileScanner discovers migration files.
type FileScanner interface {
	// ScanMigrations returns every migration sorted by version.
	ScanMigrations() ([]Migration, error)

	// ValidateFileName checks the {version}_{description}.sql convention.
	ValidateFileName(filename string) error

	// ParseMigration builds a Migration from a file name and its content.
	ParseMigration(filePath string, content []byte) (*Migration, error)
}

// Executor handles the actual execution of migrations against the database
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if it doesn't exist
	InitializeVersionTable(ctx context.Context) error

	// ExecuteMigration runs a migration and records it in one transaction.
	ExecuteMigration(ctx context.Context, migration Migration) error

	// GetAppliedVersions returns all applied migrations ordered by version.
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// MigrationStatus provides information about the current migration state
type MigrationStatus struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration represents a migration that has been successfully applied
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
