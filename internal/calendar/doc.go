// Package calendar implements the date arithmetic behind the month view.
//
// Dates are civil values without a zone. The month grid always covers whole
// weeks starting on DefaultWeekStart (Monday), so Sunday is rendered as the
// last column and a month contributes between 28 and 42 cells. Shift counts
// in DayCell are filled in by the caller after the grid has been built.
package calendar
