package application

import (
	"strings"

	"github.com/example/shift-scheduler/internal/calendar"
)

const maxNameLength = 100

func validateName(vErr *ValidationError, field, value string) string {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		vErr.add(field, field+" is required")
	case len([]rune(trimmed)) > maxNameLength:
		vErr.add(field, field+" is too long")
	}
	return trimmed
}

func parseTimeField(vErr *ValidationError, field, value string) (calendar.TimeOfDay, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		vErr.add(field, field+" is required")
		return 0, false
	}
	parsed, err := calendar.ParseTimeOfDay(trimmed)
	if err != nil {
		vErr.add(field, field+" must be HH:MM")
		return 0, false
	}
	return parsed, true
}

func parseDateField(vErr *ValidationError, field, value string) (calendar.Date, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		vErr.add(field, field+" is required")
		return calendar.Date{}, false
	}
	parsed, err := calendar.ParseDate(trimmed)
	if err != nil {
		vErr.add(field, field+" must be YYYY-MM-DD")
		return calendar.Date{}, false
	}
	return parsed, true
}

// parseOptionalDate returns nil for an empty value.
func parseOptionalDate(vErr *ValidationError, field, value string) *calendar.Date {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, ok := parseDateField(vErr, field, value)
	if !ok {
		return nil
	}
	return &parsed
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func lessByName(aName, aID, bName, bID string) bool {
	if strings.EqualFold(aName, bName) {
		return aID < bID
	}
	return strings.ToLower(aName) < strings.ToLower(bName)
}
