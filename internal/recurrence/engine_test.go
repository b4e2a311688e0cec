package recurrence

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shift-scheduler/internal/calendar"
)

// 2024-01-01 is a Monday.
var monday = calendar.NewDate(2024, time.January, 1)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func tod(t testing.TB, value string) calendar.TimeOfDay {
	t.Helper()
	parsed, err := calendar.ParseTimeOfDay(value)
	require.NoError(t, err)
	return parsed
}

func kitchenRule(t testing.TB, endDate calendar.Date, weekdays ...time.Weekday) Rule {
	t.Helper()
	return Rule{
		ID:        "r1",
		Workplace: "Kitchen",
		Weekdays:  weekdays,
		StartTime: tod(t, "08:00"),
		EndTime:   tod(t, "16:00"),
		EndDate:   endDate,
	}
}

func TestEngine_Materialize(t *testing.T) {
	t.Parallel()

	t.Run("weekday filter over two weeks", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(sequentialIDs("shift"))
		rule := kitchenRule(t, monday.AddDays(13), time.Monday, time.Wednesday)

		result, err := engine.Materialize(rule, nil, monday)
		require.NoError(t, err)
		require.Equal(t, 4, result.GeneratedCount)
		require.Len(t, result.ToCreate, 4)

		var mondays, wednesdays int
		for _, shift := range result.ToCreate {
			switch shift.Date.Weekday() {
			case time.Monday:
				mondays++
			case time.Wednesday:
				wednesdays++
			default:
				t.Fatalf("unexpected weekday %s for %s", shift.Date.Weekday(), shift.Date)
			}
		}
		assert.Equal(t, 2, mondays)
		assert.Equal(t, 2, wednesdays)
	})

	t.Run("staged shifts carry ownership and ascend by date", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(sequentialIDs("shift"))
		rule := kitchenRule(t, monday.AddDays(13), time.Wednesday, time.Monday)

		result, err := engine.Materialize(rule, nil, monday)
		require.NoError(t, err)

		wantDates := []calendar.Date{monday, monday.AddDays(2), monday.AddDays(7), monday.AddDays(9)}
		for i, shift := range result.ToCreate {
			assert.Equal(t, wantDates[i], shift.Date)
			assert.Equal(t, fmt.Sprintf("shift-%d", i+1), shift.ID)
			assert.True(t, shift.AutoGenerated)
			assert.Equal(t, "r1", shift.RuleID)
			assert.Equal(t, "Kitchen", shift.Position)
			assert.Equal(t, "08:00", shift.StartTime.String())
			assert.Equal(t, "16:00", shift.EndTime.String())
		}
	})

	t.Run("second run against the first output stages nothing", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)
		rule := kitchenRule(t, monday.AddDays(30), time.Monday, time.Friday)

		first, err := engine.Materialize(rule, nil, monday)
		require.NoError(t, err)
		require.NotEmpty(t, first.ToCreate)

		second, err := engine.Materialize(rule, KeysOf(first.ToCreate), monday)
		require.NoError(t, err)
		assert.Empty(t, second.ToCreate)
		assert.Zero(t, second.GeneratedCount)
	})

	t.Run("existing manual shift with the same tuple suppresses generation", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(sequentialIDs("shift"))
		rule := kitchenRule(t, monday.AddDays(7), time.Monday)

		existing := []Key{
			{Date: monday, Position: "Kitchen", StartTime: tod(t, "08:00"), EndTime: tod(t, "16:00")},
			{Date: monday.AddDays(7), Position: "Kitchen", StartTime: tod(t, "09:00"), EndTime: tod(t, "16:00")},
		}
		before := append([]Key(nil), existing...)

		result, err := engine.Materialize(rule, existing, monday)
		require.NoError(t, err)
		require.Len(t, result.ToCreate, 1)
		assert.Equal(t, monday.AddDays(7), result.ToCreate[0].Date)
		assert.Equal(t, before, existing, "existing keys must not be modified")
	})

	t.Run("kitchen mondays include both boundaries", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(sequentialIDs("shift"))
		endDate := monday.AddDays(14)
		rule := kitchenRule(t, endDate, time.Monday)

		result, err := engine.Materialize(rule, nil, monday)
		require.NoError(t, err)
		require.Len(t, result.ToCreate, 3)
		assert.Equal(t, monday, result.ToCreate[0].Date)
		assert.Equal(t, monday.AddDays(7), result.ToCreate[1].Date)
		assert.Equal(t, endDate, result.ToCreate[2].Date)

		widened, err := engine.Materialize(kitchenRule(t, monday.AddDays(20), time.Monday), nil, monday)
		require.NoError(t, err)
		assert.Len(t, widened.ToCreate, 3)
	})

	t.Run("end date equal to today is allowed", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)
		result, err := engine.Materialize(kitchenRule(t, monday, time.Monday), nil, monday)
		require.NoError(t, err)
		require.Len(t, result.ToCreate, 1)
		assert.NotEmpty(t, result.ToCreate[0].ID)
	})

	t.Run("default ids are unique", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)
		result, err := engine.Materialize(kitchenRule(t, monday.AddDays(60), time.Monday, time.Tuesday), nil, monday)
		require.NoError(t, err)
		ids := make(map[string]struct{})
		for _, shift := range result.ToCreate {
			ids[shift.ID] = struct{}{}
		}
		assert.Len(t, ids, len(result.ToCreate))
	})
}

func TestEngine_MaterializeRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	today := monday.AddDays(7)
	cases := []struct {
		name   string
		mutate func(*Rule)
		field  string
	}{
		{"empty weekdays", func(r *Rule) { r.Weekdays = nil }, "weekdays"},
		{"weekday out of range", func(r *Rule) { r.Weekdays = []time.Weekday{7} }, "weekdays"},
		{"end equal to start", func(r *Rule) { r.EndTime = r.StartTime }, "end_time"},
		{"end before start", func(r *Rule) { r.StartTime, r.EndTime = r.EndTime, r.StartTime }, "end_time"},
		{"end date before today", func(r *Rule) { r.EndDate = today.AddDays(-1) }, "end_date"},
		{"missing end date", func(r *Rule) { r.EndDate = calendar.Date{} }, "end_date"},
		{"blank workplace", func(r *Rule) { r.Workplace = "  " }, "workplace"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rule := kitchenRule(t, today.AddDays(14), time.Monday)
			tc.mutate(&rule)

			result, err := NewEngine(nil).Materialize(rule, nil, today)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRule))
			assert.Empty(t, result.ToCreate)
			assert.Zero(t, result.GeneratedCount)

			fields := make([]string, 0)
			for _, ruleErr := range RuleErrors(err) {
				fields = append(fields, ruleErr.Field)
			}
			assert.Contains(t, fields, tc.field)
		})
	}

	t.Run("reports every problem at once", func(t *testing.T) {
		t.Parallel()
		err := Validate(Rule{}, today)
		assert.Len(t, RuleErrors(err), 4)
	})
}

type ownedShift struct {
	id     string
	ruleID string
}

func (s ownedShift) OwningRuleID() string { return s.ruleID }

func TestCascadeDelete(t *testing.T) {
	t.Parallel()

	shifts := []ownedShift{
		{id: "a", ruleID: "r1"},
		{id: "b", ruleID: "r2"},
		{id: "c", ruleID: "r1"},
		{id: "d"},
		{id: "e", ruleID: "r1"},
	}

	t.Run("partitions by rule id preserving order", func(t *testing.T) {
		t.Parallel()
		result := CascadeDelete("r1", shifts)
		assert.Equal(t, []ownedShift{shifts[0], shifts[2], shifts[4]}, result.ShiftsToDelete)
		assert.Equal(t, []ownedShift{shifts[1], shifts[3]}, result.RemainingShifts)
	})

	t.Run("detached shift survives", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(sequentialIDs("s"))
		generated, err := engine.Materialize(kitchenRule(t, monday.AddDays(14), time.Monday), nil, monday)
		require.NoError(t, err)
		require.Len(t, generated.ToCreate, 3)

		detached := generated.ToCreate[1]
		detached.RuleID = ""
		detached.AutoGenerated = false
		all := []Shift{generated.ToCreate[0], detached, generated.ToCreate[2]}

		result := CascadeDelete("r1", all)
		assert.Len(t, result.ShiftsToDelete, 2)
		require.Len(t, result.RemainingShifts, 1)
		assert.Equal(t, detached.ID, result.RemainingShifts[0].ID)
	})

	t.Run("empty rule id deletes nothing", func(t *testing.T) {
		t.Parallel()
		result := CascadeDelete("", shifts)
		assert.Empty(t, result.ShiftsToDelete)
		assert.Len(t, result.RemainingShifts, len(shifts))
	})
}

func BenchmarkEngine_Materialize(b *testing.B) {
	engine := NewEngine(func() string { return "bench" })
	rule := kitchenRule(b, monday.AddDays(365), time.Monday, time.Wednesday, time.Friday)
	existing := make([]Key, 0, 64)
	for i := 0; i < 64; i++ {
		existing = append(existing, Key{Date: monday.AddDays(i * 2), Position: "Kitchen", StartTime: rule.StartTime, EndTime: rule.EndTime})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Materialize(rule, existing, monday); err != nil {
			b.Fatalf("materialize failed: %v", err)
		}
	}
}
