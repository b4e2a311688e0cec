package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/shift-scheduler/internal/calendar"
)

// ErrInvalidRule indicates the rule cannot be materialized. Concrete problems
// are reported as *RuleError values that unwrap to it.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// RuleError describes a single invalid rule attribute.
type RuleError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("recurrence: invalid rule: %s %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidRule so callers can use errors.Is.
func (e *RuleError) Unwrap() error {
	return ErrInvalidRule
}

// Rule is a weekly template that generates shifts from a start date through EndDate.
type Rule struct {
	ID        string
	Workplace string
	Weekdays  []time.Weekday
	StartTime calendar.TimeOfDay
	EndTime   calendar.TimeOfDay
	EndDate   calendar.Date
	CreatedAt time.Time
}

// Key is the tuple used to detect duplicate shifts.
type Key struct {
	Date      calendar.Date
	Position  string
	StartTime calendar.TimeOfDay
	EndTime   calendar.TimeOfDay
}

// Keyed is implemented by shift records that can be deduplicated.
type Keyed interface {
	DedupKey() Key
}

// Owned is implemented by shift records that may belong to a rule.
type Owned interface {
	OwningRuleID() string
}

// Shift is a shift staged by Materialize. It never carries an occupant.
type Shift struct {
	ID            string
	Date          calendar.Date
	Position      string
	StartTime     calendar.TimeOfDay
	EndTime       calendar.TimeOfDay
	AutoGenerated bool
	RuleID        string
}

// DedupKey implements Keyed.
func (s Shift) DedupKey() Key {
	return Key{Date: s.Date, Position: s.Position, StartTime: s.StartTime, EndTime: s.EndTime}
}

// OwningRuleID implements Owned.
func (s Shift) OwningRuleID() string {
	return s.RuleID
}

// Materialization is the outcome of Materialize.
type Materialization struct {
	ToCreate       []Shift
	GeneratedCount int
}

// Cascade partitions a shift collection for rule deletion.
type Cascade[S Owned] struct {
	ShiftsToDelete  []S
	RemainingShifts []S
}

// Engine turns recurring rules into concrete shifts.
type Engine struct {
	newID func() string
}

// NewEngine constructs an Engine. When idGenerator is nil random UUIDs are used.
func NewEngine(idGenerator func() string) *Engine {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	return &Engine{newID: idGenerator}
}

// NewID returns a fresh identifier from the engine's generator.
func (e *Engine) NewID() string {
	return e.newID()
}

// Validate checks the rule against today. All problems are returned joined.
func Validate(rule Rule, today calendar.Date) error {
	var errs []error

	if strings.TrimSpace(rule.Workplace) == "" {
		errs = append(errs, &RuleError{Field: "workplace", Reason: "is required"})
	}
	if len(rule.Weekdays) == 0 {
		errs = append(errs, &RuleError{Field: "weekdays", Reason: "must not be empty"})
	}
	for _, day := range rule.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			errs = append(errs, &RuleError{Field: "weekdays", Reason: "must be between 0 and 6"})
			break
		}
	}
	if !validTime(rule.StartTime) {
		errs = append(errs, &RuleError{Field: "start_time", Reason: "is invalid"})
	}
	if !validTime(rule.EndTime) {
		errs = append(errs, &RuleError{Field: "end_time", Reason: "is invalid"})
	} else if rule.EndTime <= rule.StartTime {
		errs = append(errs, &RuleError{Field: "end_time", Reason: "must be after start time"})
	}
	switch {
	case rule.EndDate.IsZero():
		errs = append(errs, &RuleError{Field: "end_date", Reason: "is required"})
	case rule.EndDate.Before(today):
		errs = append(errs, &RuleError{Field: "end_date", Reason: "must not be before today"})
	}

	return errors.Join(errs...)
}

func validTime(t calendar.TimeOfDay) bool {
	return t >= 0 && t < calendar.MinutesPerDay
}

// Materialize stages a shift for every day from today through rule.EndDate
// whose weekday is selected by the rule, skipping tuples that already exist in
// existing or were staged earlier in the same call. Staged shifts are ordered
// by date. The existing keys are never modified.
func (e *Engine) Materialize(rule Rule, existing []Key, today calendar.Date) (Materialization, error) {
	if err := Validate(rule, today); err != nil {
		return Materialization{}, err
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	seen := make(map[Key]struct{}, len(existing))
	for _, key := range existing {
		seen[key] = struct{}{}
	}

	var staged []Shift
	for day := range calendar.EnumerateDays(today, rule.EndDate) {
		if _, ok := weekdaySet[day.Weekday()]; !ok {
			continue
		}

		key := Key{Date: day, Position: rule.Workplace, StartTime: rule.StartTime, EndTime: rule.EndTime}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		staged = append(staged, Shift{
			ID:            e.newID(),
			Date:          day,
			Position:      rule.Workplace,
			StartTime:     rule.StartTime,
			EndTime:       rule.EndTime,
			AutoGenerated: true,
			RuleID:        rule.ID,
		})
	}

	return Materialization{ToCreate: staged, GeneratedCount: len(staged)}, nil
}

// KeysOf projects shift records onto their dedupe keys.
func KeysOf[S Keyed](shifts []S) []Key {
	keys := make([]Key, 0, len(shifts))
	for _, shift := range shifts {
		keys = append(keys, shift.DedupKey())
	}
	return keys
}

// CascadeDelete splits shifts into those owned by ruleID and the rest, keeping
// input order. Shifts without a rule id are never selected for deletion.
func CascadeDelete[S Owned](ruleID string, shifts []S) Cascade[S] {
	var result Cascade[S]
	for _, shift := range shifts {
		if ruleID != "" && shift.OwningRuleID() == ruleID {
			result.ShiftsToDelete = append(result.ShiftsToDelete, shift)
			continue
		}
		result.RemainingShifts = append(result.RemainingShifts, shift)
	}
	return result
}

// RuleErrors flattens the *RuleError values contained in err.
func RuleErrors(err error) []*RuleError {
	var out []*RuleError
	var walk func(error)
	walk = func(e error) {
		switch v := e.(type) {
		case nil:
		case *RuleError:
			out = append(out, v)
		case interface{ Unwrap() []error }:
			for _, inner := range v.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(v.Unwrap())
		}
	}
	walk(err)
	return out
}
