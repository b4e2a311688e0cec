package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/sqlite/migration"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := Open(migration.TempFileTestSQLiteConfig(dsn), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return store
}

func mustTime(t *testing.T, value string) calendar.TimeOfDay {
	t.Helper()
	tod, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		t.Fatalf("invalid time %q: %v", value, err)
	}
	return tod
}

func ptr[T any](v T) *T { return &v }

var referenceTime = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func TestStore_Migrate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	applied, err := store.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no migrations on rerun, got %d", applied)
	}

	status, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestWorkplaceRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	kitchen := persistence.Workplace{
		ID:            "wp-1",
		Name:          "Kitchen",
		HasFixedHours: true,
		StartTime:     ptr(mustTime(t, "08:00")),
		EndTime:       ptr(mustTime(t, "16:00")),
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	bar := persistence.Workplace{ID: "wp-2", Name: "bar", CreatedAt: referenceTime, UpdatedAt: referenceTime}

	for _, wp := range []persistence.Workplace{kitchen, bar} {
		if err := store.CreateWorkplace(ctx, wp); err != nil {
			t.Fatalf("CreateWorkplace(%s) failed: %v", wp.ID, err)
		}
	}

	fetched, err := store.GetWorkplace(ctx, kitchen.ID)
	if err != nil {
		t.Fatalf("GetWorkplace failed: %v", err)
	}
	if fetched.Name != "Kitchen" || !fetched.HasFixedHours || fetched.StartTime == nil || fetched.StartTime.String() != "08:00" {
		t.Fatalf("unexpected workplace: %#v", fetched)
	}
	if !fetched.CreatedAt.Equal(referenceTime) {
		t.Fatalf("expected created_at %v, got %v", referenceTime, fetched.CreatedAt)
	}

	list, err := store.ListWorkplaces(ctx)
	if err != nil {
		t.Fatalf("ListWorkplaces failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "wp-2" || list[1].ID != "wp-1" {
		t.Fatalf("expected case-insensitive name order, got %#v", list)
	}

	kitchen.Name = "Main Kitchen"
	kitchen.HasFixedHours = false
	kitchen.StartTime, kitchen.EndTime = nil, nil
	if err := store.UpdateWorkplace(ctx, kitchen); err != nil {
		t.Fatalf("UpdateWorkplace failed: %v", err)
	}
	fetched, _ = store.GetWorkplace(ctx, kitchen.ID)
	if fetched.Name != "Main Kitchen" || fetched.StartTime != nil {
		t.Fatalf("update not applied: %#v", fetched)
	}

	inconsistent := persistence.Workplace{ID: "wp-3", Name: "Desk", HasFixedHours: true}
	if err := store.CreateWorkplace(ctx, inconsistent); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation for fixed hours without times, got %v", err)
	}

	if err := store.DeleteWorkplace(ctx, kitchen.ID); err != nil {
		t.Fatalf("DeleteWorkplace failed: %v", err)
	}
	if _, err := store.GetWorkplace(ctx, kitchen.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteWorkplace(ctx, kitchen.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.UpdateWorkplace(ctx, kitchen); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of deleted workplace, got %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	admin := persistence.User{
		ID:        "user-1",
		Name:      "admin",
		PINHash:   "hash",
		IsAdmin:   true,
		BuiltIn:   true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	if err := store.CreateUser(ctx, admin); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	duplicate := admin
	duplicate.ID = "user-2"
	if err := store.CreateUser(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for name clash, got %v", err)
	}

	byName, err := store.GetUserByName(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByName failed: %v", err)
	}
	if byName.ID != admin.ID || !byName.IsAdmin || !byName.BuiltIn {
		t.Fatalf("unexpected user: %#v", byName)
	}
	if _, err := store.GetUserByName(ctx, "nobody"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	alice := persistence.User{ID: "user-3", Name: "Alice", PINHash: "hash-2", CreatedAt: referenceTime.Add(time.Minute)}
	if err := store.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	count, err := store.CountUsers(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 users, got %d (%v)", count, err)
	}

	alice.Name = "Alice B"
	alice.PINHash = "hash-3"
	if err := store.UpdateUser(ctx, alice); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	names := []string{users[0].Name, users[1].Name}
	if !slices.Equal(names, []string{"admin", "Alice B"}) {
		t.Fatalf("unexpected list order %v", names)
	}

	if err := store.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := store.DeleteUser(ctx, alice.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func newShift(t *testing.T, id string, date calendar.Date, start, end, position string) persistence.Shift {
	return persistence.Shift{
		ID:        id,
		Date:      date,
		StartTime: mustTime(t, start),
		EndTime:   mustTime(t, end),
		Position:  position,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

func TestShiftRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateUser(ctx, persistence.User{ID: "u1", Name: "Alice", PINHash: "h"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.CreateUser(ctx, persistence.User{ID: "u2", Name: "Bob", PINHash: "h"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	monday := calendar.NewDate(2024, time.January, 1)
	night := newShift(t, "s-night", monday, "22:00", "06:00", "Front desk")
	early := newShift(t, "s-early", monday, "08:00", "16:00", "Kitchen")
	generated := newShift(t, "s-gen", monday.AddDays(7), "08:00", "16:00", "Kitchen")
	generated.AutoGenerated = true
	generated.RuleID = ptr("rule-1")

	for _, shift := range []persistence.Shift{night, early, generated} {
		if err := store.CreateShift(ctx, shift); err != nil {
			t.Fatalf("CreateShift(%s) failed: %v", shift.ID, err)
		}
	}

	t.Run("list is ordered and filterable", func(t *testing.T) {
		all, err := store.ListShifts(ctx, persistence.ShiftFilter{})
		if err != nil {
			t.Fatalf("ListShifts failed: %v", err)
		}
		ids := make([]string, 0, len(all))
		for _, s := range all {
			ids = append(ids, s.ID)
		}
		if !slices.Equal(ids, []string{"s-early", "s-night", "s-gen"}) {
			t.Fatalf("unexpected order %v", ids)
		}

		to := monday.AddDays(6)
		week, _ := store.ListShifts(ctx, persistence.ShiftFilter{From: &monday, To: &to})
		if len(week) != 2 {
			t.Fatalf("expected 2 shifts in first week, got %d", len(week))
		}

		owned, _ := store.ListShifts(ctx, persistence.ShiftFilter{RuleID: "rule-1"})
		if len(owned) != 1 || owned[0].ID != "s-gen" || !owned[0].AutoGenerated {
			t.Fatalf("unexpected rule filter result %#v", owned)
		}

		kitchen, _ := store.CountShiftsByPosition(ctx, "Kitchen")
		if kitchen != 2 {
			t.Fatalf("expected 2 kitchen shifts, got %d", kitchen)
		}
		if folded, _ := store.CountShiftsByPosition(ctx, " KITCHEN "); folded != 2 {
			t.Fatalf("expected case-insensitive count of 2, got %d", folded)
		}
	})

	t.Run("single occupant is enforced on write", func(t *testing.T) {
		if err := store.AssignOccupant(ctx, night.ID, "u1", referenceTime); err != nil {
			t.Fatalf("AssignOccupant failed: %v", err)
		}
		if err := store.AssignOccupant(ctx, night.ID, "u2", referenceTime); !errors.Is(err, persistence.ErrConflict) {
			t.Fatalf("expected ErrConflict for second occupant, got %v", err)
		}
		if err := store.AssignOccupant(ctx, "missing", "u2", referenceTime); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.AssignOccupant(ctx, early.ID, "ghost", referenceTime); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected foreign key violation, got %v", err)
		}

		held, _ := store.ListShifts(ctx, persistence.ShiftFilter{OccupantID: "u1"})
		if len(held) != 1 || held[0].OccupantID == nil || *held[0].OccupantID != "u1" {
			t.Fatalf("unexpected occupant filter result %#v", held)
		}

		if err := store.ClearOccupant(ctx, night.ID, "u2", referenceTime); !errors.Is(err, persistence.ErrConflict) {
			t.Fatalf("expected ErrConflict clearing another user's shift, got %v", err)
		}
		if err := store.ClearOccupant(ctx, night.ID, "u1", referenceTime); err != nil {
			t.Fatalf("ClearOccupant failed: %v", err)
		}
		fetched, _ := store.GetShift(ctx, night.ID)
		if fetched.OccupantID != nil {
			t.Fatalf("expected open shift, got occupant %v", *fetched.OccupantID)
		}
	})

	t.Run("deleting a user opens their shifts", func(t *testing.T) {
		if err := store.AssignOccupant(ctx, early.ID, "u2", referenceTime); err != nil {
			t.Fatalf("AssignOccupant failed: %v", err)
		}
		if err := store.DeleteUser(ctx, "u2"); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		fetched, _ := store.GetShift(ctx, early.ID)
		if fetched.OccupantID != nil {
			t.Fatalf("expected occupant to be cleared")
		}
	})

	t.Run("detach clears ownership and ownership requires a rule", func(t *testing.T) {
		detached := generated
		detached.AutoGenerated = false
		detached.RuleID = nil
		if err := store.UpdateShift(ctx, detached); err != nil {
			t.Fatalf("UpdateShift failed: %v", err)
		}
		fetched, _ := store.GetShift(ctx, generated.ID)
		if fetched.AutoGenerated || fetched.RuleID != nil {
			t.Fatalf("expected detached shift, got %#v", fetched)
		}

		broken := newShift(t, "s-broken", monday, "08:00", "09:00", "Kitchen")
		broken.AutoGenerated = true
		if err := store.CreateShift(ctx, broken); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected constraint violation, got %v", err)
		}
	})

	t.Run("zero length shifts are rejected", func(t *testing.T) {
		zero := newShift(t, "s-zero", monday, "08:00", "08:00", "Kitchen")
		if err := store.CreateShift(ctx, zero); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected constraint violation, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeleteShift(ctx, early.ID); err != nil {
			t.Fatalf("DeleteShift failed: %v", err)
		}
		if _, err := store.GetShift(ctx, early.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRuleRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rule := persistence.RecurringRule{
		ID:        "rule-1",
		Workplace: "Kitchen",
		Weekdays:  []time.Weekday{time.Wednesday, time.Monday},
		StartTime: mustTime(t, "08:00"),
		EndTime:   mustTime(t, "16:00"),
		EndDate:   calendar.NewDate(2024, time.January, 15),
		CreatedAt: referenceTime,
	}
	if err := store.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}
	if err := store.CreateRule(ctx, rule); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	fetched, err := store.GetRule(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if !slices.Equal(fetched.Weekdays, []time.Weekday{time.Monday, time.Wednesday}) {
		t.Fatalf("unexpected weekdays %v", fetched.Weekdays)
	}
	if fetched.EndDate != rule.EndDate || fetched.EndTime.String() != "16:00" {
		t.Fatalf("unexpected rule %#v", fetched)
	}

	rule.Weekdays = []time.Weekday{time.Friday}
	if err := store.UpdateRule(ctx, rule); err != nil {
		t.Fatalf("UpdateRule failed: %v", err)
	}
	rules, err := store.ListRules(ctx)
	if err != nil || len(rules) != 1 || !slices.Equal(rules[0].Weekdays, []time.Weekday{time.Friday}) {
		t.Fatalf("unexpected rules %#v (%v)", rules, err)
	}

	empty := rule
	empty.ID = "rule-2"
	empty.Weekdays = nil
	if err := store.CreateRule(ctx, empty); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation for empty weekdays, got %v", err)
	}

	if err := store.DeleteRule(ctx, rule.ID); err != nil {
		t.Fatalf("DeleteRule failed: %v", err)
	}
	if _, err := store.GetRule(ctx, rule.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
