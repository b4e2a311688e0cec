package calendar

import (
	"iter"
	"time"
)

// DefaultWeekStart is the first column of the month grid. Sunday is the last.
const DefaultWeekStart = time.Monday

// Classification flags a day relative to the displayed month.
type Classification struct {
	InCurrentMonth bool
	IsToday        bool
	IsSelected     bool
}

// DayCell is one cell of a month grid. ShiftCount is populated by callers.
type DayCell struct {
	Date Date
	Classification
	ShiftCount int
}

// Grid is a month view spanning whole weeks from Start through End inclusive.
type Grid struct {
	Year      int
	Month     time.Month
	WeekStart time.Weekday
	Start     Date
	End       Date
	Cells     []DayCell
}

// FirstOfMonth returns the first day of the given month.
func FirstOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1)
}

// LastOfMonth returns the last day of the given month, computed as the day
// before the first of the following month.
func LastOfMonth(year int, month time.Month) Date {
	return FirstOfMonth(year, month+1).AddDays(-1)
}

// GridStart returns the most recent weekStart on or before first.
func GridStart(first Date, weekStart time.Weekday) Date {
	offset := (int(first.Weekday()) - int(normalizeWeekday(weekStart)) + 7) % 7
	return first.AddDays(-offset)
}

// GridEnd returns the last day of the week containing last, where weeks begin
// on weekStart. A Monday week start therefore ends grids on a Sunday.
func GridEnd(last Date, weekStart time.Weekday) Date {
	weekEnd := (int(normalizeWeekday(weekStart)) + 6) % 7
	offset := (weekEnd - int(last.Weekday()) + 7) % 7
	return last.AddDays(offset)
}

func normalizeWeekday(day time.Weekday) time.Weekday {
	return time.Weekday((int(day)%7 + 7) % 7)
}

// EnumerateDays yields every day from start through end inclusive in ascending
// order. The sequence is restartable and yields nothing when end precedes start.
func EnumerateDays(start, end Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for day := start; !day.After(end); day = day.AddDays(1) {
			if !yield(day) {
				return
			}
		}
	}
}

// Days collects EnumerateDays into a slice.
func Days(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	days := make([]Date, 0, DaysBetween(start, end)+1)
	for day := range EnumerateDays(start, end) {
		days = append(days, day)
	}
	return days
}

// ClassifyDay reports how day relates to the displayed month, today and the
// selected date. A zero selected date never matches.
func ClassifyDay(day Date, year int, month time.Month, today, selected Date) Classification {
	return Classification{
		InCurrentMonth: day.SameMonth(year, month),
		IsToday:        !today.IsZero() && day.Equal(today),
		IsSelected:     !selected.IsZero() && day.Equal(selected),
	}
}

// BuildGrid lays out the month using DefaultWeekStart.
func BuildGrid(year int, month time.Month, selected, today Date) Grid {
	return BuildGridWithWeekStart(year, month, selected, today, DefaultWeekStart)
}

// BuildGridWithWeekStart lays out the month so that every row starts on weekStart.
func BuildGridWithWeekStart(year int, month time.Month, selected, today Date, weekStart time.Weekday) Grid {
	first := FirstOfMonth(year, month)
	last := LastOfMonth(year, month)
	weekStart = normalizeWeekday(weekStart)

	grid := Grid{
		Year:      first.Year,
		Month:     first.Month,
		WeekStart: weekStart,
		Start:     GridStart(first, weekStart),
		End:       GridEnd(last, weekStart),
	}

	grid.Cells = make([]DayCell, 0, DaysBetween(grid.Start, grid.End)+1)
	for day := range EnumerateDays(grid.Start, grid.End) {
		grid.Cells = append(grid.Cells, DayCell{
			Date:           day,
			Classification: ClassifyDay(day, grid.Year, grid.Month, today, selected),
		})
	}
	return grid
}

// Contains reports whether day is rendered by the grid.
func (g Grid) Contains(day Date) bool {
	return !day.Before(g.Start) && !day.After(g.End)
}

// AddShifts increments the shift count of the cell for day. It reports false
// when day lies outside the grid.
func (g *Grid) AddShifts(day Date, n int) bool {
	if g == nil || !g.Contains(day) {
		return false
	}
	idx := DaysBetween(g.Start, day)
	if idx < 0 || idx >= len(g.Cells) {
		return false
	}
	g.Cells[idx].ShiftCount += n
	return true
}

// Weeks splits the cells into rows of seven.
func (g Grid) Weeks() [][]DayCell {
	weeks := make([][]DayCell, 0, len(g.Cells)/7)
	for i := 0; i+7 <= len(g.Cells); i += 7 {
		weeks = append(weeks, g.Cells[i:i+7:i+7])
	}
	return weeks
}
