package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store owns one connection pool and exposes every repository. It satisfies
// all persistence repository interfaces.
type Store struct {
	*WorkplaceRepository
	*ShiftRepository
	*RuleRepository
	*UserRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var (
	_ persistence.WorkplaceRepository = (*Store)(nil)
	_ persistence.ShiftRepository     = (*Store)(nil)
	_ persistence.RuleRepository      = (*Store)(nil)
	_ persistence.UserRepository      = (*Store)(nil)
)

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	return &Store{
		WorkplaceRepository: NewWorkplaceRepository(pool),
		ShiftRepository:     NewShiftRepository(pool),
		RuleRepository:      NewRuleRepository(pool),
		UserRepository:      NewUserRepository(pool),
		pool:                pool,
		logger:              logger,
	}, nil
}

// OpenPath opens a file database with the default configuration.
func OpenPath(path string, logger *slog.Logger) (*Store, error) {
	return Open(migration.DefaultSQLiteConfig(path), logger)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	applied, err := s.migrationManager().RunMigrations(ctx)
	if err != nil {
		return applied, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Store) MigrationStatus(ctx context.Context) (*migration.MigrationStatus, error) {
	return s.migrationManager().GetMigrationStatus(ctx)
}

func (s *Store) migrationManager() migration.MigrationManager {
	return migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
}
