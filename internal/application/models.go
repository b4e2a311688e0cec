package application

import (
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/recurrence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// WorkplaceInput captures caller provided workplace fields. Times are "HH:MM"
// strings and are only read when HasFixedHours is set.
type WorkplaceInput struct {
	Name          string
	HasFixedHours bool
	StartTime     string
	EndTime       string
}

// Workplace is a named place where shifts are worked. Shifts and rules refer to
// it by name.
type Workplace struct {
	ID            string
	Name          string
	HasFixedHours bool
	StartTime     *calendar.TimeOfDay
	EndTime       *calendar.TimeOfDay
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateWorkplaceParams wraps the data required to create a workplace.
type CreateWorkplaceParams struct {
	Principal Principal
	Input     WorkplaceInput
}

// UpdateWorkplaceParams wraps the data required to update a workplace.
type UpdateWorkplaceParams struct {
	Principal   Principal
	WorkplaceID string
	Input       WorkplaceInput
}

// Shift is a single dated block of work at a position.
type Shift struct {
	ID            string
	Date          calendar.Date
	StartTime     calendar.TimeOfDay
	EndTime       calendar.TimeOfDay
	Position      string
	OccupantID    string
	AutoGenerated bool
	RuleID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DedupKey returns the tuple rule materialization deduplicates on.
func (s Shift) DedupKey() recurrence.Key {
	return recurrence.Key{Date: s.Date, Position: s.Position, StartTime: s.StartTime, EndTime: s.EndTime}
}

// OwningRuleID returns the rule that generated the shift, if any.
func (s Shift) OwningRuleID() string {
	return s.RuleID
}

// IsOpen reports whether nobody has signed up for the shift.
func (s Shift) IsOpen() bool {
	return s.OccupantID == ""
}

// Duration returns the length of the shift, wrapping past midnight.
func (s Shift) Duration() time.Duration {
	return calendar.ShiftDuration(s.StartTime, s.EndTime)
}

// ShiftInput captures caller provided shift fields.
type ShiftInput struct {
	Date       string
	StartTime  string
	EndTime    string
	Position   string
	OccupantID string
}

// CreateShiftParams wraps the data required to create a shift.
type CreateShiftParams struct {
	Principal Principal
	Input     ShiftInput
}

// UpdateShiftParams wraps the data required to update a shift. Detach severs
// the link to the generating rule so a later rule delete keeps the shift.
type UpdateShiftParams struct {
	Principal Principal
	ShiftID   string
	Input     ShiftInput
	Detach    bool
}

// ListShiftsParams filters a shift listing. Empty values do not filter.
type ListShiftsParams struct {
	Principal Principal
	From      string
	To        string
	Position  string
}

// ShiftWarning describes an overlap with another shift held by the same user.
type ShiftWarning struct {
	ShiftID  string
	Type     string
	UserID   string
	Position string
}

// SignUpResult is returned by a successful sign-up.
type SignUpResult struct {
	Shift    Shift
	Warnings []ShiftWarning
}

// MonthGridParams selects the month rendered by MonthGrid.
type MonthGridParams struct {
	Principal Principal
	Year      int
	Month     time.Month
	Selected  string
}

// RecurringRule is a weekly template that generates shifts.
type RecurringRule struct {
	ID        string
	Workplace string
	Weekdays  []time.Weekday
	StartTime calendar.TimeOfDay
	EndTime   calendar.TimeOfDay
	EndDate   calendar.Date
	CreatedAt time.Time
}

// RuleInput captures caller provided rule fields.
type RuleInput struct {
	Workplace string
	Weekdays  []int
	StartTime string
	EndTime   string
	EndDate   string
}

// CreateRuleParams wraps the data required to create a rule.
type CreateRuleParams struct {
	Principal Principal
	Input     RuleInput
}

// RuleCreation is the outcome of CreateRule. The rule is persisted even when
// some generated shifts could not be written.
type RuleCreation struct {
	Rule            RecurringRule
	Materialization BatchResult
	GeneratedCount  int
}

// RuleDeletion is the outcome of DeleteRule.
type RuleDeletion struct {
	RuleID      string
	Shifts      BatchResult
	RuleDeleted bool
}

// UserInput captures caller provided user attributes. An empty PIN on update
// keeps the current one.
type UserInput struct {
	Name    string
	PIN     string
	IsAdmin bool
}

// User represents an employee account exposed by the application services.
type User struct {
	ID        string
	Name      string
	PINHash   string
	IsAdmin   bool
	BuiltIn   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// LoginParams captures the credentials presented at login.
type LoginParams struct {
	Name string
	PIN  string
}

// Session is a signed token issued at login.
type Session struct {
	Token     string
	UserID    string
	IsAdmin   bool
	ExpiresAt time.Time
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	User    User
	Session Session
}
