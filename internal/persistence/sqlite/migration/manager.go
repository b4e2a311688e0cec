package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// migrationManagerImpl implements the MigrationManager interface
type migrationManagerImpl struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewMigrationManager creates a new MigrationManager implementation
func NewMigrationManager(scanner FileScanner, executor Executor, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &migrationManagerImpl{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// RunMigrations executes all pending migrations in sequential order
func (m *migrationManagerImpl) RunMigrations(ctx context.Context) (int, error) {
	startTime := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", slog.Any("error", err))
		return 0, fmt.Errorf("failed to initialize version table: %w", err)
	}

	pendingMigrations, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve pending migrations", slog.Any("error", err))
		return 0, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pendingMigrations) == 0 {
		m.logger.InfoContext(ctx, "database schema is up to date")
		return 0, nil
	}

	m.logger.InfoContext(ctx, "applying migrations", slog.Int("pending", len(pendingMigrations)))

	for i, migration := range pendingMigrations {
		migrationStart := time.Now()
		logger := m.logger.With(
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.String("file", migration.FilePath),
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", slog.Any("error", err))
			return i, NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}

		logger.InfoContext(ctx, "migration applied",
			slog.Int("position", i+1),
			slog.Duration("duration", time.Since(migrationStart)),
		)
	}

	m.logger.InfoContext(ctx, "all migrations applied",
		slog.Int("count", len(pendingMigrations)),
		slog.Duration("duration", time.Since(startTime)),
	)

	return len(pendingMigrations), nil
}

// GetAppliedVersions returns list of migration versions that have been applied
func (m *migrationManagerImpl) GetAppliedVersions(ctx context.Context) ([]string, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	appliedMigrations, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	versions := make([]string, len(appliedMigrations))
	for i, migration := range appliedMigrations {
		versions[i] = migration.Version
	}

	return versions, nil
}

// GetPendingMigrations returns list of migrations that need to be applied
func (m *migrationManagerImpl) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	availableMigrations, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	appliedVersions, err := m.GetAppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateMigrationSequence(availableMigrations, appliedVersions); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedMap := make(map[string]bool, len(appliedVersions))
	for _, version := range appliedVersions {
		appliedMap[version] = true
	}

	var pendingMigrations []Migration
	for _, migration := range availableMigrations {
		if !appliedMap[migration.Version] {
			pendingMigrations = append(pendingMigrations, migration)
		}
	}

	return pendingMigrations, nil
}

// GetMigrationStatus returns status information about migrations
func (m *migrationManagerImpl) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pendingMigrations, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}

	appliedMigrations, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	currentVersion := ""
	maxVersion := -1
	for _, migration := range appliedMigrations {
		if version, err := strconv.Atoi(migration.Version); err == nil && version > maxVersion {
			maxVersion = version
			currentVersion = migration.Version
		}
	}

	return &MigrationStatus{
		CurrentVersion:    currentVersion,
		PendingCount:      len(pendingMigrations),
		AppliedMigrations: appliedMigrations,
		PendingMigrations: pendingMigrations,
	}, nil
}

// validateMigrationSequence ensures the available versions are continuous and
// that every applied version still has a file.
func validateMigrationSequence(availableMigrations []Migration, appliedVersions []string) error {
	availableMap := make(map[int]bool, len(availableMigrations))
	minVersion, maxVersion := 0, -1
	for i, migration := range availableMigrations {
		version, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version '%s' is not numeric", ErrInvalidVersion, migration.Version))
		}
		if i == 0 || version < minVersion {
			minVersion = version
		}
		if version > maxVersion {
			maxVersion = version
		}
		availableMap[version] = true
	}

	for version := minVersion; version <= maxVersion; version++ {
		if !availableMap[version] {
			return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
		}
	}

	for _, versionStr := range appliedVersions {
		version, err := strconv.Atoi(versionStr)
		if err != nil {
			return NewDatabaseError(versionStr, "", "validate sequence",
				fmt.Errorf("%w: applied version '%s' is not numeric", ErrVersionTableCorrupt, versionStr))
		}
		if !availableMap[version] {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations",
				ErrVersionConflict, version)
		}
	}

	return nil
}
