package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

func mustShift(t *testing.T, id, date, start, end, position string) Shift {
	t.Helper()
	d, err := calendar.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	s, err := calendar.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	e, err := calendar.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return Shift{ID: id, Date: d, StartTime: s, EndTime: e, Position: position}
}

func kitchenOnly() *workplaceRepoStub {
	return &workplaceRepoStub{items: []Workplace{{ID: "wp-1", Name: "Kitchen"}}}
}

func TestShiftService_CreateShift(t *testing.T) {
	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := NewShiftService(nil, nil, nil, nil)
		_, err := svc.CreateShift(context.Background(), CreateShiftParams{Principal: employee})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects zero-length and malformed shifts", func(t *testing.T) {
		svc := NewShiftService(&shiftRepoStub{}, kitchenOnly(), nil, fixedNow)

		_, err := svc.CreateShift(context.Background(), CreateShiftParams{
			Principal: admin,
			Input:     ShiftInput{Date: "2024-13-01", StartTime: "09:00", EndTime: "09:00", Position: "Kitchen"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["date"]; !ok {
			t.Fatalf("expected date error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["end_time"]; !ok {
			t.Fatalf("expected end_time error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("requires a known workplace", func(t *testing.T) {
		svc := NewShiftService(&shiftRepoStub{}, kitchenOnly(), nil, fixedNow)

		_, err := svc.CreateShift(context.Background(), CreateShiftParams{
			Principal: admin,
			Input:     ShiftInput{Date: "2024-01-02", StartTime: "09:00", EndTime: "17:00", Position: "Bar"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["position"]; !ok {
			t.Fatalf("expected position error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("persists overnight manual shifts without dedupe", func(t *testing.T) {
		repo := &shiftRepoStub{}
		svc := NewShiftService(repo, kitchenOnly(), sequence("shift"), fixedNow)
		input := ShiftInput{Date: "2024-01-02", StartTime: "22:00", EndTime: "06:00", Position: "kitchen"}

		for i := 0; i < 2; i++ {
			created, err := svc.CreateShift(context.Background(), CreateShiftParams{Principal: admin, Input: input})
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if created.Position != "Kitchen" {
				t.Fatalf("expected canonical workplace name, got %q", created.Position)
			}
			if created.AutoGenerated || created.RuleID != "" {
				t.Fatalf("manual shift must not be owned by a rule: %+v", created)
			}
			if created.Duration() != 8*time.Hour {
				t.Fatalf("expected 8h duration, got %s", created.Duration())
			}
		}
		if len(repo.items) != 2 {
			t.Fatalf("expected both shifts to be stored, got %d", len(repo.items))
		}
	})
}

func TestShiftService_UpdateShift(t *testing.T) {
	generated := func(t *testing.T) *shiftRepoStub {
		shift := mustShift(t, "s1", "2024-01-08", "08:00", "16:00", "Kitchen")
		shift.AutoGenerated = true
		shift.RuleID = "r1"
		return &shiftRepoStub{items: []Shift{shift}}
	}

	t.Run("keeps rule ownership unless detached", func(t *testing.T) {
		repo := generated(t)
		svc := NewShiftService(repo, kitchenOnly(), nil, fixedNow)

		updated, err := svc.UpdateShift(context.Background(), UpdateShiftParams{
			Principal: admin,
			ShiftID:   "s1",
			Input:     ShiftInput{Date: "2024-01-08", StartTime: "09:00", EndTime: "16:00", Position: "Kitchen"},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if updated.RuleID != "r1" || !updated.AutoGenerated {
			t.Fatalf("expected ownership to be kept, got %+v", updated)
		}
		if updated.StartTime.String() != "09:00" {
			t.Fatalf("expected new start time, got %s", updated.StartTime)
		}
	})

	t.Run("detach clears rule id and generated flag", func(t *testing.T) {
		repo := generated(t)
		svc := NewShiftService(repo, kitchenOnly(), nil, fixedNow)

		updated, err := svc.UpdateShift(context.Background(), UpdateShiftParams{
			Principal: admin,
			ShiftID:   "s1",
			Input:     ShiftInput{Date: "2024-01-08", StartTime: "08:00", EndTime: "16:00", Position: "Kitchen", OccupantID: "user-7"},
			Detach:    true,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if updated.RuleID != "" || updated.AutoGenerated {
			t.Fatalf("expected detached shift, got %+v", updated)
		}
		if updated.OccupantID != "user-7" {
			t.Fatalf("expected occupant to be set, got %q", updated.OccupantID)
		}
	})

	t.Run("maps missing shifts", func(t *testing.T) {
		svc := NewShiftService(&shiftRepoStub{}, kitchenOnly(), nil, fixedNow)
		_, err := svc.UpdateShift(context.Background(), UpdateShiftParams{Principal: admin, ShiftID: "missing"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestShiftService_ListShifts(t *testing.T) {
	t.Parallel()

	repo := &shiftRepoStub{items: []Shift{
		mustShift(t, "c", "2024-01-02", "08:00", "12:00", "Kitchen"),
		mustShift(t, "b", "2024-01-01", "13:00", "17:00", "Kitchen"),
		mustShift(t, "a", "2024-01-01", "13:00", "17:00", "Bar"),
		mustShift(t, "d", "2024-02-01", "08:00", "12:00", "Kitchen"),
	}}
	svc := NewShiftService(repo, nil, nil, fixedNow)

	shifts, err := svc.ListShifts(context.Background(), ListShiftsParams{Principal: employee, From: "2024-01-01", To: "2024-01-31"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(shifts) != len(want) {
		t.Fatalf("expected %d shifts, got %d", len(want), len(shifts))
	}
	for i, id := range want {
		if shifts[i].ID != id {
			t.Fatalf("expected %s at %d, got %s", id, i, shifts[i].ID)
		}
	}

	_, err = svc.ListShifts(context.Background(), ListShiftsParams{Principal: employee, From: "2024-02-01", To: "2024-01-01"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for inverted range, got %v", err)
	}
}

func TestShiftService_SignUp(t *testing.T) {
	t.Run("assigns the principal", func(t *testing.T) {
		repo := &shiftRepoStub{items: []Shift{mustShift(t, "s1", "2024-01-02", "09:00", "17:00", "Kitchen")}}
		svc := NewShiftService(repo, nil, nil, fixedNow)

		result, err := svc.SignUp(context.Background(), employee, "s1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if result.Shift.OccupantID != employee.UserID || repo.items[0].OccupantID != employee.UserID {
			t.Fatalf("expected occupant to be stored, got %+v", repo.items[0])
		}
		if len(result.Warnings) != 0 {
			t.Fatalf("expected no warnings, got %+v", result.Warnings)
		}
	})

	t.Run("rejects a second sign-up", func(t *testing.T) {
		shift := mustShift(t, "s1", "2024-01-02", "09:00", "17:00", "Kitchen")
		shift.OccupantID = "someone-else"
		repo := &shiftRepoStub{items: []Shift{shift}}
		svc := NewShiftService(repo, nil, nil, fixedNow)

		_, err := svc.SignUp(context.Background(), employee, "s1")
		if !errors.Is(err, ErrShiftTaken) {
			t.Fatalf("expected ErrShiftTaken, got %v", err)
		}
		if repo.items[0].OccupantID != "someone-else" {
			t.Fatalf("occupant must not change, got %q", repo.items[0].OccupantID)
		}
	})

	t.Run("warns about an overnight shift reaching into the next day", func(t *testing.T) {
		night := mustShift(t, "night", "2024-01-01", "22:00", "06:00", "Bar")
		night.OccupantID = employee.UserID
		early := mustShift(t, "early", "2024-01-02", "05:00", "09:00", "Kitchen")
		repo := &shiftRepoStub{items: []Shift{night, early}}
		svc := NewShiftService(repo, nil, nil, fixedNow)

		result, err := svc.SignUp(context.Background(), employee, "early")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected one warning, got %+v", result.Warnings)
		}
		if result.Warnings[0].ShiftID != "night" || result.Warnings[0].Position != "Bar" {
			t.Fatalf("unexpected warning %+v", result.Warnings[0])
		}
	})

	t.Run("requires a signed in user", func(t *testing.T) {
		svc := NewShiftService(&shiftRepoStub{}, nil, nil, fixedNow)
		if _, err := svc.SignUp(context.Background(), Principal{}, "s1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestShiftService_Cancel(t *testing.T) {
	occupied := func(t *testing.T) *shiftRepoStub {
		shift := mustShift(t, "s1", "2024-01-02", "09:00", "17:00", "Kitchen")
		shift.OccupantID = employee.UserID
		return &shiftRepoStub{items: []Shift{shift}}
	}

	t.Run("occupant may cancel", func(t *testing.T) {
		repo := occupied(t)
		svc := NewShiftService(repo, nil, nil, fixedNow)

		shift, err := svc.Cancel(context.Background(), employee, "s1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !shift.IsOpen() || !repo.items[0].IsOpen() {
			t.Fatalf("expected shift to be open again, got %+v", repo.items[0])
		}
	})

	t.Run("administrator may cancel", func(t *testing.T) {
		repo := occupied(t)
		svc := NewShiftService(repo, nil, nil, fixedNow)

		if _, err := svc.Cancel(context.Background(), admin, "s1"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("other employees may not cancel", func(t *testing.T) {
		repo := occupied(t)
		svc := NewShiftService(repo, nil, nil, fixedNow)

		_, err := svc.Cancel(context.Background(), Principal{UserID: "user-2"}, "s1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("open shifts report ErrNotSignedUp", func(t *testing.T) {
		repo := &shiftRepoStub{items: []Shift{mustShift(t, "s1", "2024-01-02", "09:00", "17:00", "Kitchen")}}
		svc := NewShiftService(repo, nil, nil, fixedNow)

		_, err := svc.Cancel(context.Background(), admin, "s1")
		if !errors.Is(err, ErrNotSignedUp) {
			t.Fatalf("expected ErrNotSignedUp, got %v", err)
		}
	})
}

func TestShiftService_MonthGrid(t *testing.T) {
	t.Parallel()

	repo := &shiftRepoStub{items: []Shift{
		mustShift(t, "a", "2024-01-01", "08:00", "12:00", "Kitchen"),
		mustShift(t, "b", "2024-01-01", "13:00", "17:00", "Kitchen"),
		mustShift(t, "c", "2024-02-04", "13:00", "17:00", "Kitchen"),
		mustShift(t, "d", "2024-02-05", "13:00", "17:00", "Kitchen"),
	}}
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-01-31 20:00 UTC is already February 1st in JST.
	now := func() time.Time { return time.Date(2024, time.January, 31, 20, 0, 0, 0, time.UTC) }
	svc := NewShiftServiceWithLogger(repo, nil, nil, now, tokyo, nil)

	grid, err := svc.MonthGrid(context.Background(), MonthGridParams{Principal: employee, Year: 2024, Month: time.January, Selected: "2024-01-15"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(grid.Cells)%7 != 0 {
		t.Fatalf("expected whole weeks, got %d cells", len(grid.Cells))
	}

	counts := map[string]int{}
	for _, cell := range grid.Cells {
		counts[cell.Date.String()] = cell.ShiftCount
		if cell.IsToday && cell.Date.String() != "2024-02-01" {
			t.Fatalf("unexpected today cell %s", cell.Date)
		}
		if cell.IsSelected && cell.Date.String() != "2024-01-15" {
			t.Fatalf("unexpected selected cell %s", cell.Date)
		}
	}
	if counts["2024-01-01"] != 2 {
		t.Fatalf("expected two shifts on 2024-01-01, got %d", counts["2024-01-01"])
	}
	if counts["2024-02-04"] != 1 {
		t.Fatalf("expected trailing day to carry its shift, got %d", counts["2024-02-04"])
	}
	if _, ok := counts["2024-02-05"]; ok {
		t.Fatalf("grid must end on Sunday 2024-02-04")
	}

	_, err = svc.MonthGrid(context.Background(), MonthGridParams{Principal: employee, Year: 2024, Month: 13})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for month 13, got %v", err)
	}
}
