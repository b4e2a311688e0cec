package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

// ShiftQuery narrows a shift listing. Zero values match everything.
type ShiftQuery struct {
	From       *calendar.Date
	To         *calendar.Date
	Position   string
	RuleID     string
	OccupantID string
}

// ShiftRepository captures the persistence operations needed by the shift and rule services.
type ShiftRepository interface {
	CreateShift(ctx context.Context, shift Shift) (Shift, error)
	GetShift(ctx context.Context, id string) (Shift, error)
	UpdateShift(ctx context.Context, shift Shift) (Shift, error)
	DeleteShift(ctx context.Context, id string) error
	ListShifts(ctx context.Context, query ShiftQuery) ([]Shift, error)
	AssignOccupant(ctx context.Context, shiftID, userID string, at time.Time) error
	ClearOccupant(ctx context.Context, shiftID, userID string, at time.Time) error
}

// ShiftService orchestrates shift administration and employee sign-ups.
type ShiftService struct {
	shifts      ShiftRepository
	workplaces  WorkplaceLister
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewShiftService constructs a shift service that evaluates "today" in UTC.
func NewShiftService(shifts ShiftRepository, workplaces WorkplaceLister, idGenerator func() string, now func() time.Time) *ShiftService {
	return NewShiftServiceWithLogger(shifts, workplaces, idGenerator, now, nil, nil)
}

// NewShiftServiceWithLogger constructs a shift service with a location and logger.
func NewShiftServiceWithLogger(shifts ShiftRepository, workplaces WorkplaceLister, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *ShiftService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ShiftService{
		shifts:      shifts,
		workplaces:  workplaces,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *ShiftService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ShiftService", operation, attrs...)
}

// CreateShift validates input and persists a manual shift. Manual shifts are
// not deduplicated against existing ones.
func (s *ShiftService) CreateShift(ctx context.Context, params CreateShiftParams) (shift Shift, err error) {
	if s == nil {
		err = fmt.Errorf("ShiftService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateShift",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create shift", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("shift_id", shift.ID, "date", shift.Date.String()).InfoContext(ctx, "shift created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	candidate, vErr := buildShift(params.Input)
	if err = s.checkPosition(ctx, vErr, &candidate); err != nil {
		return
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	shift = candidate
	shift.ID = s.idGenerator()
	shift.CreatedAt = s.now()
	shift.UpdatedAt = shift.CreatedAt

	if s.shifts == nil {
		return
	}

	var persisted Shift
	persisted, err = s.shifts.CreateShift(ctx, shift)
	if err != nil {
		err = mapShiftRepoError(err)
		return
	}

	shift = persisted
	return
}

// UpdateShift replaces the editable fields of a shift. The occupant is set or
// cleared from the input and Detach clears the rule link.
func (s *ShiftService) UpdateShift(ctx context.Context, params UpdateShiftParams) (shift Shift, err error) {
	if s == nil {
		err = fmt.Errorf("ShiftService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.shifts == nil {
		err = fmt.Errorf("shift repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateShift",
		"principal_id", params.Principal.UserID,
		"shift_id", params.ShiftID,
		"detach", params.Detach,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update shift", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("shift_id", shift.ID).InfoContext(ctx, "shift updated")
	}()

	var existing Shift
	existing, err = s.shifts.GetShift(ctx, params.ShiftID)
	if err != nil {
		err = mapShiftRepoError(err)
		return
	}

	candidate, vErr := buildShift(params.Input)
	if err = s.checkPosition(ctx, vErr, &candidate); err != nil {
		return
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Date = candidate.Date
	updated.StartTime = candidate.StartTime
	updated.EndTime = candidate.EndTime
	updated.Position = candidate.Position
	updated.OccupantID = candidate.OccupantID
	if params.Detach {
		updated.AutoGenerated = false
		updated.RuleID = ""
	}
	updated.UpdatedAt = s.now()

	shift, err = s.shifts.UpdateShift(ctx, updated)
	if err != nil {
		err = mapShiftRepoError(err)
		return
	}

	return
}

// DeleteShift removes a shift when requested by an administrator.
func (s *ShiftService) DeleteShift(ctx context.Context, principal Principal, shiftID string) error {
	if s == nil {
		return fmt.Errorf("ShiftService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.shifts == nil {
		return fmt.Errorf("shift repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteShift",
		"principal_id", principal.UserID,
		"shift_id", shiftID,
	)

	if err := s.shifts.DeleteShift(ctx, shiftID); err != nil {
		err = mapShiftRepoError(err)
		logger.ErrorContext(ctx, "failed to delete shift", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "shift deleted")
	return nil
}

// ListShifts returns shifts ordered by date, start time, and position.
func (s *ShiftService) ListShifts(ctx context.Context, params ListShiftsParams) (shifts []Shift, err error) {
	if s == nil {
		err = fmt.Errorf("ShiftService is nil")
		return
	}
	if s.shifts == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListShifts",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list shifts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(shifts)).InfoContext(ctx, "shifts listed")
	}()

	vErr := &ValidationError{}
	query := ShiftQuery{
		From:     parseOptionalDate(vErr, "from", params.From),
		To:       parseOptionalDate(vErr, "to", params.To),
		Position: strings.TrimSpace(params.Position),
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		vErr.add("to", "to must not be before from")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var raw []Shift
	raw, err = s.shifts.ListShifts(ctx, query)
	if err != nil {
		return
	}

	shifts = make([]Shift, len(raw))
	copy(shifts, raw)
	sortShifts(shifts)
	return
}

// SignUp assigns the principal to an open shift. Overlaps with other shifts the
// principal already holds are reported as warnings and do not block the sign-up.
func (s *ShiftService) SignUp(ctx context.Context, principal Principal, shiftID string) (result SignUpResult, err error) {
	if s == nil {
		err = fmt.Errorf("ShiftService is nil")
		return
	}
	if s.shifts == nil {
		err = fmt.Errorf("shift repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SignUp",
		"principal_id", principal.UserID,
		"shift_id", shiftID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to sign up", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("warning_count", len(result.Warnings)).InfoContext(ctx, "signed up for shift")
	}()

	if strings.TrimSpace(principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}

	var shift Shift
	shift, err = s.shifts.GetShift(ctx, shiftID)
	if err != nil {
		err = mapShiftRepoError(err)
		return
	}
	if !shift.IsOpen() {
		err = ErrShiftTaken
		return
	}

	// An overnight shift from the previous day can reach into this one and
	// this one can reach into the next day.
	from, to := shift.Date.AddDays(-1), shift.Date.AddDays(1)
	var held []Shift
	held, err = s.shifts.ListShifts(ctx, ShiftQuery{From: &from, To: &to, OccupantID: principal.UserID})
	if err != nil {
		return
	}

	now := s.now()
	if err = s.shifts.AssignOccupant(ctx, shift.ID, principal.UserID, now); err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			err = ErrShiftTaken
			return
		}
		err = mapShiftRepoError(err)
		return
	}

	shift.OccupantID = principal.UserID
	shift.UpdatedAt = now
	result = SignUpResult{Shift: shift, Warnings: overlapWarnings(held, shift)}
	return
}

// Cancel clears the occupant of a shift. Only the occupant or an administrator
// may cancel.
func (s *ShiftService) Cancel(ctx context.Context, principal Principal, shiftID string) (shift Shift, err error) {
	if s == nil {
		err = fmt.Errorf("ShiftService is nil")
		return
	}
	if s.shifts == nil {
		err = fmt.Errorf("shift repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"principal_id", principal.UserID,
		"shift_id", shiftID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel sign-up", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "sign-up cancelled")
	}()

	shift, err = s.shifts.GetShift(ctx, shiftID)
	if err != nil {
		err = mapShiftRepoError(err)
		return
	}
	if shift.IsOpen() {
		err = ErrNotSignedUp
		return
	}
	if shift.OccupantID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	if err = s.shifts.ClearOccupant(ctx, shift.ID, shift.OccupantID, now); err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			err = ErrNotSignedUp
			return
		}
		err = mapShiftRepoError(err)
		return
	}

	shift.OccupantID = ""
	shift.UpdatedAt = now
	return
}

// MonthGrid builds the calendar grid for a month with a shift count per day.
// Today is taken from the service clock in the configured location.
func (s *ShiftService) MonthGrid(ctx context.Context, params MonthGridParams) (grid calendar.Grid, err error) {
	if s == nil {
		err = fmt.Errorf("ShiftService is nil")
		return
	}

	logger := s.loggerWith(ctx, "MonthGrid",
		"principal_id", params.Principal.UserID,
		"year", params.Year,
		"month", int(params.Month),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build month grid", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("cell_count", len(grid.Cells)).DebugContext(ctx, "month grid built")
	}()

	vErr := &ValidationError{}
	if params.Year < 1 || params.Year > 9999 {
		vErr.add("year", "year is out of range")
	}
	if params.Month < time.January || params.Month > time.December {
		vErr.add("month", "month must be between 1 and 12")
	}
	var selected calendar.Date
	if value := parseOptionalDate(vErr, "selected", params.Selected); value != nil {
		selected = *value
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	today := calendar.Today(s.now(), s.location)
	grid = calendar.BuildGrid(params.Year, params.Month, selected, today)

	if s.shifts == nil {
		return
	}

	var shifts []Shift
	shifts, err = s.shifts.ListShifts(ctx, ShiftQuery{From: &grid.Start, To: &grid.End})
	if err != nil {
		return
	}
	for _, shift := range shifts {
		grid.AddShifts(shift.Date, 1)
	}
	return
}

// Today returns the current date in the configured location.
func (s *ShiftService) Today() calendar.Date {
	return calendar.Today(s.now(), s.location)
}

func (s *ShiftService) checkPosition(ctx context.Context, vErr *ValidationError, shift *Shift) error {
	if s.workplaces == nil || shift.Position == "" {
		return nil
	}
	workplaces, err := s.workplaces.ListWorkplaces(ctx)
	if err != nil {
		return err
	}
	workplace, ok := findWorkplace(workplaces, shift.Position)
	if !ok {
		vErr.add("position", "position must name an existing workplace")
		return nil
	}
	shift.Position = workplace.Name
	return nil
}

func buildShift(input ShiftInput) (Shift, *ValidationError) {
	vErr := &ValidationError{}
	shift := Shift{
		Position:   validateName(vErr, "position", input.Position),
		OccupantID: strings.TrimSpace(input.OccupantID),
	}

	shift.Date, _ = parseDateField(vErr, "date", input.Date)
	start, startOK := parseTimeField(vErr, "start_time", input.StartTime)
	end, endOK := parseTimeField(vErr, "end_time", input.EndTime)
	if startOK && endOK && start == end {
		vErr.add("end_time", "end_time must differ from start_time")
	}
	shift.StartTime = start
	shift.EndTime = end
	return shift, vErr
}

func overlapWarnings(held []Shift, candidate Shift) []ShiftWarning {
	slots := make([]scheduler.Slot, 0, len(held))
	for _, shift := range held {
		slots = append(slots, toSlot(shift))
	}

	conflicts := scheduler.DetectOverlaps(slots, toSlot(candidate))
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ShiftWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ShiftWarning{
			ShiftID:  conflict.WithShiftID,
			Type:     string(conflict.Type),
			UserID:   conflict.Occupant,
			Position: conflict.Position,
		})
	}
	return warnings
}

func toSlot(shift Shift) scheduler.Slot {
	return scheduler.Slot{
		ShiftID:   shift.ID,
		Occupant:  shift.OccupantID,
		Position:  shift.Position,
		Date:      shift.Date,
		StartTime: shift.StartTime,
		EndTime:   shift.EndTime,
	}
}

func sortShifts(shifts []Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if !strings.EqualFold(a.Position, b.Position) {
			return strings.ToLower(a.Position) < strings.ToLower(b.Position)
		}
		return a.ID < b.ID
	})
}

func mapShiftRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConflict) {
		return ErrShiftTaken
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("occupant_id", "occupant must reference an existing user")
		return vErr
	}
	return err
}
