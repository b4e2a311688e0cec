package persistence

import (
	"context"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

// WorkplaceRepository exposes CRUD operations for workplaces.
type WorkplaceRepository interface {
	CreateWorkplace(ctx context.Context, workplace Workplace) error
	UpdateWorkplace(ctx context.Context, workplace Workplace) error
	GetWorkplace(ctx context.Context, id string) (Workplace, error)
	ListWorkplaces(ctx context.Context) ([]Workplace, error)
	DeleteWorkplace(ctx context.Context, id string) error
}

// ShiftFilter narrows shift queries. Zero values match everything.
type ShiftFilter struct {
	From       *calendar.Date
	To         *calendar.Date
	Position   string
	RuleID     string
	OccupantID string
}

// ShiftRepository stores shifts and their single occupant.
type ShiftRepository interface {
	CreateShift(ctx context.Context, shift Shift) error
	UpdateShift(ctx context.Context, shift Shift) error
	GetShift(ctx context.Context, id string) (Shift, error)
	ListShifts(ctx context.Context, filter ShiftFilter) ([]Shift, error)
	DeleteShift(ctx context.Context, id string) error
	CountShiftsByPosition(ctx context.Context, position string) (int, error)
	// AssignOccupant sets the occupant only while the shift is open and
	// returns ErrConflict otherwise.
	AssignOccupant(ctx context.Context, shiftID, userID string, at time.Time) error
	// ClearOccupant removes userID from the shift and returns ErrConflict when
	// the shift is held by someone else or nobody.
	ClearOccupant(ctx context.Context, shiftID, userID string, at time.Time) error
}

// RuleRepository stores recurring rules.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule RecurringRule) error
	UpdateRule(ctx context.Context, rule RecurringRule) error
	GetRule(ctx context.Context, id string) (RecurringRule, error)
	ListRules(ctx context.Context) ([]RecurringRule, error)
	DeleteRule(ctx context.Context, id string) error
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}
