package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstAndLastOfMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		year  int
		month time.Month
		first Date
		last  Date
	}{
		{"leap february", 2024, time.February, NewDate(2024, time.February, 1), NewDate(2024, time.February, 29)},
		{"common february", 2023, time.February, NewDate(2023, time.February, 1), NewDate(2023, time.February, 28)},
		{"december rolls into next year", 2024, time.December, NewDate(2024, time.December, 1), NewDate(2024, time.December, 31)},
		{"overflowing month normalizes", 2024, 13, NewDate(2025, time.January, 1), NewDate(2025, time.January, 31)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.first, FirstOfMonth(tc.year, tc.month))
			assert.Equal(t, tc.last, LastOfMonth(tc.year, tc.month))
		})
	}
}

func TestGridStartAndEnd(t *testing.T) {
	t.Parallel()

	t.Run("month starting on monday is unchanged", func(t *testing.T) {
		first := NewDate(2024, time.January, 1)
		require.Equal(t, time.Monday, first.Weekday())
		assert.Equal(t, first, GridStart(first, time.Monday))
		assert.Equal(t, NewDate(2024, time.February, 4), GridEnd(LastOfMonth(2024, time.January), time.Monday))
	})

	t.Run("sunday first of month produces six leading days", func(t *testing.T) {
		first := NewDate(2024, time.September, 1)
		require.Equal(t, time.Sunday, first.Weekday())
		start := GridStart(first, time.Monday)
		assert.Equal(t, NewDate(2024, time.August, 26), start)
		assert.Equal(t, 6, DaysBetween(start, first))
	})

	t.Run("monday last of month produces six trailing days", func(t *testing.T) {
		last := LastOfMonth(2024, time.September)
		require.Equal(t, time.Monday, last.Weekday())
		end := GridEnd(last, time.Monday)
		assert.Equal(t, NewDate(2024, time.October, 6), end)
		assert.Equal(t, time.Sunday, end.Weekday())
	})

	t.Run("sunday week start ends on saturday", func(t *testing.T) {
		assert.Equal(t, NewDate(2024, time.September, 1), GridStart(NewDate(2024, time.September, 1), time.Sunday))
		assert.Equal(t, NewDate(2024, time.October, 5), GridEnd(NewDate(2024, time.September, 30), time.Sunday))
	})
}

func TestGridSpansWholeWeeksForEveryMonth(t *testing.T) {
	t.Parallel()

	for year := 1999; year <= 2031; year++ {
		for month := time.January; month <= time.December; month++ {
			first := FirstOfMonth(year, month)
			last := LastOfMonth(year, month)
			start := GridStart(first, DefaultWeekStart)
			end := GridEnd(last, DefaultWeekStart)

			span := DaysBetween(start, end) + 1
			require.Zerof(t, span%7, "%d-%02d spans %d days", year, month, span)
			require.Equal(t, time.Monday, start.Weekday())
			require.Equal(t, time.Sunday, end.Weekday())

			leading := DaysBetween(start, first)
			trailing := DaysBetween(last, end)
			require.True(t, leading >= 0 && leading <= 6, "leading %d", leading)
			require.True(t, trailing >= 0 && trailing <= 6, "trailing %d", trailing)

			prev := first.AddDays(-1)
			for day := range EnumerateDays(start, prev) {
				require.Truef(t, day.SameMonth(prev.Year, prev.Month), "%s should belong to previous month", day)
			}
			next := last.AddDays(1)
			for day := range EnumerateDays(next, end) {
				require.Truef(t, day.SameMonth(next.Year, next.Month), "%s should belong to next month", day)
			}
		}
	}
}

func TestEnumerateDays(t *testing.T) {
	t.Parallel()

	start := NewDate(2024, time.February, 27)
	end := NewDate(2024, time.March, 2)

	t.Run("yields each day once in ascending order", func(t *testing.T) {
		days := Days(start, end)
		require.Len(t, days, DaysBetween(start, end)+1)
		assert.Equal(t, []Date{
			NewDate(2024, time.February, 27),
			NewDate(2024, time.February, 28),
			NewDate(2024, time.February, 29),
			NewDate(2024, time.March, 1),
			NewDate(2024, time.March, 2),
		}, days)

		seen := make(map[Date]struct{}, len(days))
		for i, day := range days {
			_, dup := seen[day]
			require.False(t, dup, "duplicate %s", day)
			seen[day] = struct{}{}
			if i > 0 {
				require.True(t, days[i-1].Before(day))
			}
		}
	})

	t.Run("collected values are independent", func(t *testing.T) {
		days := Days(start, end)
		days[0].Day = 1
		assert.Equal(t, NewDate(2024, time.February, 28), days[1])
		assert.Equal(t, NewDate(2024, time.February, 27), Days(start, end)[0])
	})

	t.Run("sequence is restartable and stops early", func(t *testing.T) {
		seq := EnumerateDays(start, end)
		var first, second int
		for range seq {
			first++
		}
		for range seq {
			second++
		}
		assert.Equal(t, 5, first)
		assert.Equal(t, first, second)

		var taken []Date
		for day := range seq {
			taken = append(taken, day)
			if len(taken) == 2 {
				break
			}
		}
		assert.Len(t, taken, 2)
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		assert.Empty(t, Days(end, start))
	})

	t.Run("single day range", func(t *testing.T) {
		assert.Equal(t, []Date{start}, Days(start, start))
	})
}

func TestClassifyDay(t *testing.T) {
	t.Parallel()

	today := NewDate(2024, time.March, 14)
	selected := NewDate(2024, time.March, 20)

	got := ClassifyDay(today, 2024, time.March, today, selected)
	assert.Equal(t, Classification{InCurrentMonth: true, IsToday: true}, got)

	got = ClassifyDay(selected, 2024, time.March, today, selected)
	assert.Equal(t, Classification{InCurrentMonth: true, IsSelected: true}, got)

	got = ClassifyDay(NewDate(2024, time.February, 29), 2024, time.March, today, selected)
	assert.Equal(t, Classification{}, got)

	got = ClassifyDay(DateOf(time.Date(2024, time.March, 14, 23, 59, 0, 0, time.UTC)), 2024, time.March, today, Date{})
	assert.True(t, got.IsToday, "time of day must not matter")
	assert.False(t, got.IsSelected, "zero selection never matches")
}

func TestBuildGrid(t *testing.T) {
	t.Parallel()

	today := NewDate(2024, time.September, 10)
	selected := NewDate(2024, time.September, 30)
	grid := BuildGrid(2024, time.September, selected, today)

	require.Len(t, grid.Cells, 42)
	assert.Equal(t, NewDate(2024, time.August, 26), grid.Start)
	assert.Equal(t, NewDate(2024, time.October, 6), grid.End)
	assert.Equal(t, time.Monday, grid.WeekStart)

	weeks := grid.Weeks()
	require.Len(t, weeks, 6)
	for _, week := range weeks {
		require.Len(t, week, 7)
		assert.Equal(t, time.Monday, week[0].Date.Weekday())
		assert.Equal(t, time.Sunday, week[6].Date.Weekday())
	}

	var inMonth, todayCount, selectedCount int
	for _, cell := range grid.Cells {
		if cell.InCurrentMonth {
			inMonth++
		}
		if cell.IsToday {
			todayCount++
			assert.Equal(t, today, cell.Date)
		}
		if cell.IsSelected {
			selectedCount++
			assert.Equal(t, selected, cell.Date)
		}
	}
	assert.Equal(t, 30, inMonth)
	assert.Equal(t, 1, todayCount)
	assert.Equal(t, 1, selectedCount)

	t.Run("shift counts land on the matching cell", func(t *testing.T) {
		g := BuildGrid(2024, time.September, Date{}, today)
		assert.True(t, g.AddShifts(NewDate(2024, time.September, 2), 2))
		assert.True(t, g.AddShifts(NewDate(2024, time.October, 6), 1))
		assert.False(t, g.AddShifts(NewDate(2024, time.October, 7), 1))
		assert.Equal(t, 2, g.Cells[7].ShiftCount)
		assert.Equal(t, 1, g.Cells[len(g.Cells)-1].ShiftCount)
	})

	t.Run("four week february", func(t *testing.T) {
		g := BuildGrid(2021, time.February, Date{}, Date{})
		assert.Len(t, g.Cells, 28)
	})
}

func TestDateAndTimeOfDay(t *testing.T) {
	t.Parallel()

	t.Run("parse and format dates", func(t *testing.T) {
		d, err := ParseDate("2024-12-31")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-01", d.AddDays(1).String())
		assert.Equal(t, time.Tuesday, d.Weekday())

		_, err = ParseDate("2024-02-30")
		assert.ErrorIs(t, err, ErrInvalidDate)
		_, err = ParseDate("31/12/2024")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("parse time of day", func(t *testing.T) {
		tod, err := ParseTimeOfDay("08:30")
		require.NoError(t, err)
		assert.Equal(t, TimeOfDay(510), tod)
		assert.Equal(t, "08:30", tod.String())

		for _, bad := range []string{"8:30", "24:00", "12:60", "ab:cd", "0830", ""} {
			_, err := ParseTimeOfDay(bad)
			assert.ErrorIsf(t, err, ErrInvalidTimeOfDay, "input %q", bad)
		}
	})

	t.Run("durations wrap at midnight", func(t *testing.T) {
		night := mustTime(t, "22:00")
		morning := mustTime(t, "06:00")
		assert.Equal(t, 8*time.Hour, ShiftDuration(night, morning))
		assert.True(t, CrossesMidnight(night, morning))
		assert.Equal(t, 16*time.Hour, ShiftDuration(morning, night))
		assert.False(t, CrossesMidnight(morning, night))
		assert.Zero(t, ShiftDuration(night, night))
	})

	t.Run("today honours location", func(t *testing.T) {
		now := time.Date(2024, time.March, 14, 20, 0, 0, 0, time.UTC)
		tokyo := time.FixedZone("JST", 9*60*60)
		assert.Equal(t, NewDate(2024, time.March, 15), Today(now, tokyo))
		assert.Equal(t, NewDate(2024, time.March, 14), Today(now, nil))
	})
}

func mustTime(t *testing.T, value string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(value)
	require.NoError(t, err)
	return tod
}
