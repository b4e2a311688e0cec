package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

var (
	userCounter      uint64
	workplaceCounter uint64
	shiftCounter     uint64
	ruleCounter      uint64
)

// referenceTime is a Monday so weekday based fixtures line up with the date.
var referenceTime = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime.
func ReferenceDate() calendar.Date {
	return calendar.DateOf(referenceTime)
}

func mustTime(value string) calendar.TimeOfDay {
	t, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: bad time of day %q: %v", value, err))
	}
	return t
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic employee account.
type UserFixture struct {
	ID        string
	Name      string
	PIN       string
	PINHash   string
	IsAdmin   bool
	BuiltIn   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
// The PIN hash uses the "hash:<pin>" form understood by PlainPINHasher.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	pin := fmt.Sprintf("%04d", idx%10000)
	fixture := UserFixture{
		ID:        fmt.Sprintf("user-%03d", idx),
		Name:      fmt.Sprintf("Employee %03d", idx),
		PIN:       pin,
		PINHash:   "hash:" + pin,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserName overrides the generated login name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserPIN sets the PIN and derives the matching plain hash.
func WithUserPIN(pin string) UserOption {
	return func(f *UserFixture) {
		f.PIN = pin
		f.PINHash = "hash:" + pin
	}
}

// WithUserPINHash overrides the stored hash without touching the PIN.
func WithUserPINHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PINHash = hash
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// AsBuiltInAdmin marks the fixture as the protected seeded administrator.
func AsBuiltInAdmin() UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = true
		f.BuiltIn = true
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Name:      f.Name,
		PINHash:   f.PINHash,
		IsAdmin:   f.IsAdmin,
		BuiltIn:   f.BuiltIn,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:        f.ID,
		Name:      f.Name,
		PINHash:   f.PINHash,
		IsAdmin:   f.IsAdmin,
		BuiltIn:   f.BuiltIn,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.UserInput.
func (f UserFixture) Input() application.UserInput {
	return application.UserInput{Name: f.Name, PIN: f.PIN, IsAdmin: f.IsAdmin}
}

// Credentials returns the login parameters matching the fixture.
func (f UserFixture) Credentials() application.LoginParams {
	return application.LoginParams{Name: f.Name, PIN: f.PIN}
}

// --------------------------- Workplace fixtures --------------------------

// WorkplaceFixture represents a deterministic workplace record.
type WorkplaceFixture struct {
	ID        string
	Name      string
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkplaceOption configures the generated workplace fixture.
type WorkplaceOption func(*WorkplaceFixture)

// NewWorkplaceFixture returns a workplace without fixed hours unless
// WithWorkplaceHours is supplied.
func NewWorkplaceFixture(opts ...WorkplaceOption) WorkplaceFixture {
	idx := atomic.AddUint64(&workplaceCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := WorkplaceFixture{
		ID:        fmt.Sprintf("workplace-%03d", idx),
		Name:      fmt.Sprintf("Workplace %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithWorkplaceID overrides the generated workplace ID.
func WithWorkplaceID(id string) WorkplaceOption {
	return func(f *WorkplaceFixture) {
		f.ID = id
	}
}

// WithWorkplaceName overrides the generated name.
func WithWorkplaceName(name string) WorkplaceOption {
	return func(f *WorkplaceFixture) {
		f.Name = name
	}
}

// WithWorkplaceHours gives the workplace fixed "HH:MM" opening hours.
func WithWorkplaceHours(start, end string) WorkplaceOption {
	return func(f *WorkplaceFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// HasFixedHours reports whether opening hours were configured.
func (f WorkplaceFixture) HasFixedHours() bool {
	return f.StartTime != "" && f.EndTime != ""
}

func (f WorkplaceFixture) hours() (*calendar.TimeOfDay, *calendar.TimeOfDay) {
	if !f.HasFixedHours() {
		return nil, nil
	}
	start, end := mustTime(f.StartTime), mustTime(f.EndTime)
	return &start, &end
}

// Application returns the fixture as an application.Workplace value.
func (f WorkplaceFixture) Application() application.Workplace {
	start, end := f.hours()
	return application.Workplace{
		ID:            f.ID,
		Name:          f.Name,
		HasFixedHours: f.HasFixedHours(),
		StartTime:     start,
		EndTime:       end,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Workplace value.
func (f WorkplaceFixture) Persistence() persistence.Workplace {
	start, end := f.hours()
	return persistence.Workplace{
		ID:            f.ID,
		Name:          f.Name,
		HasFixedHours: f.HasFixedHours(),
		StartTime:     start,
		EndTime:       end,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Input returns the fixture as an application.WorkplaceInput.
func (f WorkplaceFixture) Input() application.WorkplaceInput {
	return application.WorkplaceInput{
		Name:          f.Name,
		HasFixedHours: f.HasFixedHours(),
		StartTime:     f.StartTime,
		EndTime:       f.EndTime,
	}
}

// ----------------------------- Shift fixtures ----------------------------

// ShiftFixture represents a deterministic shift. Times are "HH:MM" strings.
type ShiftFixture struct {
	ID         string
	Date       calendar.Date
	StartTime  string
	EndTime    string
	Position   string
	OccupantID string
	RuleID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ShiftOption configures the generated shift fixture.
type ShiftOption func(*ShiftFixture)

// NewShiftFixture returns an open 09:00-17:00 shift on the reference date.
func NewShiftFixture(opts ...ShiftOption) ShiftFixture {
	idx := atomic.AddUint64(&shiftCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ShiftFixture{
		ID:        fmt.Sprintf("shift-%03d", idx),
		Date:      ReferenceDate(),
		StartTime: "09:00",
		EndTime:   "17:00",
		Position:  "Kitchen",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithShiftID overrides the generated shift ID.
func WithShiftID(id string) ShiftOption {
	return func(f *ShiftFixture) {
		f.ID = id
	}
}

// WithShiftDate moves the shift to another day.
func WithShiftDate(date calendar.Date) ShiftOption {
	return func(f *ShiftFixture) {
		f.Date = date
	}
}

// WithShiftTimes sets the "HH:MM" start and end. An end before the start
// crosses midnight.
func WithShiftTimes(start, end string) ShiftOption {
	return func(f *ShiftFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithShiftPosition overrides the workplace name.
func WithShiftPosition(position string) ShiftOption {
	return func(f *ShiftFixture) {
		f.Position = position
	}
}

// WithShiftOccupant assigns the shift to a user.
func WithShiftOccupant(userID string) ShiftOption {
	return func(f *ShiftFixture) {
		f.OccupantID = userID
	}
}

// WithShiftRule marks the shift as generated by the given rule.
func WithShiftRule(ruleID string) ShiftOption {
	return func(f *ShiftFixture) {
		f.RuleID = ruleID
	}
}

// Application returns the fixture as an application.Shift value.
func (f ShiftFixture) Application() application.Shift {
	return application.Shift{
		ID:            f.ID,
		Date:          f.Date,
		StartTime:     mustTime(f.StartTime),
		EndTime:       mustTime(f.EndTime),
		Position:      f.Position,
		OccupantID:    f.OccupantID,
		AutoGenerated: f.RuleID != "",
		RuleID:        f.RuleID,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Shift value.
func (f ShiftFixture) Persistence() persistence.Shift {
	return persistence.Shift{
		ID:            f.ID,
		Date:          f.Date,
		StartTime:     mustTime(f.StartTime),
		EndTime:       mustTime(f.EndTime),
		Position:      f.Position,
		OccupantID:    stringPtr(f.OccupantID),
		AutoGenerated: f.RuleID != "",
		RuleID:        stringPtr(f.RuleID),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ShiftInput.
func (f ShiftFixture) Input() application.ShiftInput {
	return application.ShiftInput{
		Date:       f.Date.String(),
		StartTime:  f.StartTime,
		EndTime:    f.EndTime,
		Position:   f.Position,
		OccupantID: f.OccupantID,
	}
}

// Slot returns the fixture as a scheduler.Slot used by overlap detection.
func (f ShiftFixture) Slot() scheduler.Slot {
	return scheduler.Slot{
		ShiftID:   f.ID,
		Occupant:  f.OccupantID,
		Position:  f.Position,
		Date:      f.Date,
		StartTime: mustTime(f.StartTime),
		EndTime:   mustTime(f.EndTime),
	}
}

// ------------------------------ Rule fixtures ----------------------------

// RuleFixture represents a deterministic recurring rule.
type RuleFixture struct {
	ID        string
	Workplace string
	Weekdays  []time.Weekday
	StartTime string
	EndTime   string
	EndDate   calendar.Date
	CreatedAt time.Time
}

// RuleOption configures the generated rule fixture.
type RuleOption func(*RuleFixture)

// NewRuleFixture returns a Monday 08:00-16:00 rule at Kitchen that ends two
// weeks after the reference date.
func NewRuleFixture(opts ...RuleOption) RuleFixture {
	idx := atomic.AddUint64(&ruleCounter, 1)
	fixture := RuleFixture{
		ID:        fmt.Sprintf("rule-%03d", idx),
		Workplace: "Kitchen",
		Weekdays:  []time.Weekday{time.Monday},
		StartTime: "08:00",
		EndTime:   "16:00",
		EndDate:   ReferenceDate().AddDays(14),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(f *RuleFixture) {
		f.ID = id
	}
}

// WithRuleWorkplace overrides the workplace name.
func WithRuleWorkplace(name string) RuleOption {
	return func(f *RuleFixture) {
		f.Workplace = name
	}
}

// WithRuleWeekdays replaces the weekday set.
func WithRuleWeekdays(days ...time.Weekday) RuleOption {
	return func(f *RuleFixture) {
		f.Weekdays = append([]time.Weekday(nil), days...)
	}
}

// WithRuleTimes sets the "HH:MM" start and end.
func WithRuleTimes(start, end string) RuleOption {
	return func(f *RuleFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithRuleEndDate overrides the last day the rule generates for.
func WithRuleEndDate(date calendar.Date) RuleOption {
	return func(f *RuleFixture) {
		f.EndDate = date
	}
}

// Application returns the fixture as an application.RecurringRule value.
func (f RuleFixture) Application() application.RecurringRule {
	return application.RecurringRule{
		ID:        f.ID,
		Workplace: f.Workplace,
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartTime: mustTime(f.StartTime),
		EndTime:   mustTime(f.EndTime),
		EndDate:   f.EndDate,
		CreatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.RecurringRule value.
func (f RuleFixture) Persistence() persistence.RecurringRule {
	return persistence.RecurringRule{
		ID:        f.ID,
		Workplace: f.Workplace,
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartTime: mustTime(f.StartTime),
		EndTime:   mustTime(f.EndTime),
		EndDate:   f.EndDate,
		CreatedAt: f.CreatedAt,
	}
}

// Input returns the fixture as an application.RuleInput.
func (f RuleFixture) Input() application.RuleInput {
	weekdays := make([]int, 0, len(f.Weekdays))
	for _, day := range f.Weekdays {
		weekdays = append(weekdays, int(day))
	}
	return application.RuleInput{
		Workplace: f.Workplace,
		Weekdays:  weekdays,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		EndDate:   f.EndDate.String(),
	}
}
