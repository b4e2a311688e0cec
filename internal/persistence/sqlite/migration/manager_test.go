package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

type mockFileScanner struct {
	migrations []Migration
	scanError  error
}

func (m *mockFileScanner) ScanMigrations() ([]Migration, error) {
	if m.scanError != nil {
		return nil, m.scanError
	}
	return m.migrations, nil
}

func (m *mockFileScanner) ValidateFileName(string) error { return nil }

func (m *mockFileScanner) ParseMigration(string, []byte) (*Migration, error) { return nil, nil }

type mockExecutor struct {
	appliedVersions []AppliedMigration
	executionError  error
	initError       error
	executionOrder  []string
}

func (m *mockExecutor) ExecuteMigration(_ context.Context, migration Migration) error {
	if m.executionError != nil {
		return m.executionError
	}
	m.executionOrder = append(m.executionOrder, migration.Version)
	m.appliedVersions = append(m.appliedVersions, AppliedMigration{Version: migration.Version, AppliedAt: time.Now()})
	return nil
}

func (m *mockExecutor) InitializeVersionTable(context.Context) error {
	return m.initError
}

func (m *mockExecutor) GetAppliedVersions(context.Context) ([]AppliedMigration, error) {
	return m.appliedVersions, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleMigrations() []Migration {
	return []Migration{
		{Version: "001", Description: "Initial schema", SQL: "CREATE TABLE users (id INTEGER);", FilePath: "001_initial.sql"},
		{Version: "002", Description: "Add indexes", SQL: "CREATE INDEX idx_users ON users(id);", FilePath: "002_indexes.sql"},
		{Version: "003", Description: "Add column", SQL: "ALTER TABLE users ADD COLUMN name TEXT;", FilePath: "003_column.sql"},
	}
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only pending migrations in order", func(t *testing.T) {
		executor := &mockExecutor{appliedVersions: []AppliedMigration{{Version: "001"}}}
		manager := NewMigrationManager(&mockFileScanner{migrations: sampleMigrations()}, executor, quietLogger())

		applied, err := manager.RunMigrations(ctx)
		if err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}
		if applied != 2 {
			t.Fatalf("expected 2 applied migrations, got %d", applied)
		}
		if strings.Join(executor.executionOrder, ",") != "002,003" {
			t.Fatalf("unexpected execution order %v", executor.executionOrder)
		}

		again, err := manager.RunMigrations(ctx)
		if err != nil || again != 0 {
			t.Fatalf("expected idempotent rerun, got %d, %v", again, err)
		}
	})

	t.Run("initialization error", func(t *testing.T) {
		executor := &mockExecutor{initError: errors.New("failed to create table")}
		manager := NewMigrationManager(&mockFileScanner{}, executor, quietLogger())

		_, err := manager.RunMigrations(ctx)
		if err == nil || !strings.Contains(err.Error(), "failed to initialize version table") {
			t.Fatalf("expected initialization error, got %v", err)
		}
	})

	t.Run("execution error stops the sequence", func(t *testing.T) {
		executor := &mockExecutor{executionError: errors.New("SQL syntax error")}
		manager := NewMigrationManager(&mockFileScanner{migrations: sampleMigrations()}, executor, quietLogger())

		applied, err := manager.RunMigrations(ctx)
		if applied != 0 {
			t.Fatalf("expected nothing applied, got %d", applied)
		}
		var migrationErr *MigrationError
		if !errors.As(err, &migrationErr) {
			t.Fatalf("expected MigrationError, got %T", err)
		}
		if migrationErr.Version != "001" {
			t.Errorf("expected error for version 001, got %s", migrationErr.Version)
		}
		if !errors.Is(err, ErrMigrationFailed) {
			t.Errorf("expected ErrMigrationFailed in chain, got %v", err)
		}
	})

	t.Run("scan error", func(t *testing.T) {
		manager := NewMigrationManager(&mockFileScanner{scanError: errors.New("boom")}, &mockExecutor{}, quietLogger())
		if _, err := manager.RunMigrations(ctx); err == nil {
			t.Fatal("expected scan error")
		}
	})
}

func TestMigrationManager_SequenceValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("gap in available versions", func(t *testing.T) {
		migrations := []Migration{sampleMigrations()[0], sampleMigrations()[2]}
		manager := NewMigrationManager(&mockFileScanner{migrations: migrations}, &mockExecutor{}, quietLogger())

		_, err := manager.GetPendingMigrations(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("applied version without file", func(t *testing.T) {
		executor := &mockExecutor{appliedVersions: []AppliedMigration{{Version: "009"}}}
		manager := NewMigrationManager(&mockFileScanner{migrations: sampleMigrations()}, executor, quietLogger())

		_, err := manager.GetPendingMigrations(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("corrupt applied version", func(t *testing.T) {
		executor := &mockExecutor{appliedVersions: []AppliedMigration{{Version: "abc"}}}
		manager := NewMigrationManager(&mockFileScanner{migrations: sampleMigrations()}, executor, quietLogger())

		_, err := manager.GetPendingMigrations(ctx)
		if !errors.Is(err, ErrVersionTableCorrupt) {
			t.Fatalf("expected ErrVersionTableCorrupt, got %v", err)
		}
	})
}

func TestMigrationManager_GetMigrationStatus(t *testing.T) {
	executor := &mockExecutor{appliedVersions: []AppliedMigration{{Version: "001"}, {Version: "002"}}}
	manager := NewMigrationManager(&mockFileScanner{migrations: sampleMigrations()}, executor, quietLogger())

	status, err := manager.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "002" {
		t.Errorf("expected current version 002, got %s", status.CurrentVersion)
	}
	if status.PendingCount != 1 || status.PendingMigrations[0].Version != "003" {
		t.Errorf("unexpected pending migrations: %+v", status.PendingMigrations)
	}
}

func TestMigrationManager_AgainstSQLite(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fsys := fstest.MapFS{
		"sql/001_create.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT NOT NULL);")},
		"sql/002_seed.sql":   {Data: []byte("INSERT INTO notes (id, body) VALUES ('n1', 'hello');")},
	}

	manager := NewMigrationManager(NewFileScanner(fsys, "sql"), NewSQLiteExecutor(db), quietLogger())
	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}

	versions, err := manager.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions failed: %v", err)
	}
	if strings.Join(versions, ",") != "001,002" {
		t.Fatalf("unexpected versions %v", versions)
	}

	if got := countRows(t, db, "SELECT COUNT(*) FROM notes"); got != 1 {
		t.Fatalf("expected seeded row once, got %d", got)
	}
	if applied, err := manager.RunMigrations(ctx); err != nil || applied != 0 {
		t.Fatalf("expected no-op rerun, got %d, %v", applied, err)
	}
}
