package persistence

import (
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

// Workplace represents a location or role that shifts are scheduled against.
type Workplace struct {
	ID            string
	Name          string
	HasFixedHours bool
	StartTime     *calendar.TimeOfDay
	EndTime       *calendar.TimeOfDay
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Shift represents a single scheduled work slot. Position holds a workplace
// name rather than an identifier.
type Shift struct {
	ID            string
	Date          calendar.Date
	StartTime     calendar.TimeOfDay
	EndTime       calendar.TimeOfDay
	Position      string
	OccupantID    *string
	AutoGenerated bool
	RuleID        *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecurringRule represents a weekly template that generated shifts at creation.
type RecurringRule struct {
	ID        string
	Workplace string
	Weekdays  []time.Weekday
	StartTime calendar.TimeOfDay
	EndTime   calendar.TimeOfDay
	EndDate   calendar.Date
	CreatedAt time.Time
}

// User represents an employee account. Only the PIN hash is persisted.
type User struct {
	ID        string
	Name      string
	PINHash   string
	IsAdmin   bool
	BuiltIn   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
