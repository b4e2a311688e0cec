package testfixtures

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/sqlite"
	"github.com/example/shift-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database for integration-style tests.
type SQLiteHarness struct {
	Store      *sqlite.Store
	Workplaces persistence.WorkplaceRepository
	Shifts     persistence.ShiftRepository
	Rules      persistence.RuleRepository
	Users      persistence.UserRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database file under tb.TempDir and applies every
// migration. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	store, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), slog.New(slog.DiscardHandler))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if _, err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:      store,
		Workplaces: store,
		Shifts:     store,
		Rules:      store,
		Users:      store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// Seed inserts fixtures directly through the repositories, bypassing the
// application services.
func (h *SQLiteHarness) Seed(tb testing.TB, users []UserFixture, workplaces []WorkplaceFixture, shifts []ShiftFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, user := range users {
		if err := h.Users.CreateUser(ctx, user.Persistence()); err != nil {
			tb.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
	for _, workplace := range workplaces {
		if err := h.Workplaces.CreateWorkplace(ctx, workplace.Persistence()); err != nil {
			tb.Fatalf("seed workplace %s: %v", workplace.ID, err)
		}
	}
	for _, shift := range shifts {
		if err := h.Shifts.CreateShift(ctx, shift.Persistence()); err != nil {
			tb.Fatalf("seed shift %s: %v", shift.ID, err)
		}
	}
}
