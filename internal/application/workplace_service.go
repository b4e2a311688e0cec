package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/shift-scheduler/internal/persistence"
)

// WorkplaceRepository captures the persistence operations needed by the service.
type WorkplaceRepository interface {
	CreateWorkplace(ctx context.Context, workplace Workplace) (Workplace, error)
	GetWorkplace(ctx context.Context, id string) (Workplace, error)
	UpdateWorkplace(ctx context.Context, workplace Workplace) (Workplace, error)
	DeleteWorkplace(ctx context.Context, id string) error
	ListWorkplaces(ctx context.Context) ([]Workplace, error)
}

// WorkplaceLister is the read side other services use to resolve position names.
type WorkplaceLister interface {
	ListWorkplaces(ctx context.Context) ([]Workplace, error)
}

// ShiftCounter reports how many shifts reference a position name.
type ShiftCounter interface {
	CountShiftsByPosition(ctx context.Context, position string) (int, error)
}

// WorkplaceService orchestrates validation, authorization, and persistence for workplaces.
type WorkplaceService struct {
	workplaces  WorkplaceRepository
	shifts      ShiftCounter
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewWorkplaceService constructs a workplace service with the provided dependencies.
func NewWorkplaceService(workplaces WorkplaceRepository, shifts ShiftCounter, idGenerator func() string, now func() time.Time) *WorkplaceService {
	return NewWorkplaceServiceWithLogger(workplaces, shifts, idGenerator, now, nil)
}

// NewWorkplaceServiceWithLogger constructs a workplace service with a specified logger.
func NewWorkplaceServiceWithLogger(workplaces WorkplaceRepository, shifts ShiftCounter, idGenerator func() string, now func() time.Time, logger *slog.Logger) *WorkplaceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WorkplaceService{workplaces: workplaces, shifts: shifts, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *WorkplaceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WorkplaceService", operation, attrs...)
}

// CreateWorkplace validates input and persists a new workplace for administrators.
func (s *WorkplaceService) CreateWorkplace(ctx context.Context, params CreateWorkplaceParams) (workplace Workplace, err error) {
	if s == nil {
		err = fmt.Errorf("WorkplaceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateWorkplace",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create workplace", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("workplace_id", workplace.ID).InfoContext(ctx, "workplace created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	workplace, vErr := buildWorkplace(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	workplace.ID = s.idGenerator()
	workplace.CreatedAt = s.now()
	workplace.UpdatedAt = workplace.CreatedAt

	if s.workplaces == nil {
		return
	}

	if err = s.ensureUniqueName(ctx, workplace.Name, ""); err != nil {
		return
	}

	var persisted Workplace
	persisted, err = s.workplaces.CreateWorkplace(ctx, workplace)
	if err != nil {
		err = mapWorkplaceRepoError(err)
		return
	}

	workplace = persisted
	return
}

// UpdateWorkplace validates input and updates an existing workplace. Renaming
// does not touch shifts or rules that carry the old name.
func (s *WorkplaceService) UpdateWorkplace(ctx context.Context, params UpdateWorkplaceParams) (workplace Workplace, err error) {
	if s == nil {
		err = fmt.Errorf("WorkplaceService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.workplaces == nil {
		err = fmt.Errorf("workplace repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateWorkplace",
		"principal_id", params.Principal.UserID,
		"workplace_id", params.WorkplaceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update workplace", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("workplace_id", workplace.ID).InfoContext(ctx, "workplace updated")
	}()

	var existing Workplace
	existing, err = s.workplaces.GetWorkplace(ctx, params.WorkplaceID)
	if err != nil {
		err = mapWorkplaceRepoError(err)
		return
	}

	candidate, vErr := buildWorkplace(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if !sameName(existing.Name, candidate.Name) {
		if err = s.ensureUniqueName(ctx, candidate.Name, existing.ID); err != nil {
			return
		}
	}

	updated := existing
	updated.Name = candidate.Name
	updated.HasFixedHours = candidate.HasFixedHours
	updated.StartTime = candidate.StartTime
	updated.EndTime = candidate.EndTime
	updated.UpdatedAt = s.now()

	workplace, err = s.workplaces.UpdateWorkplace(ctx, updated)
	if err != nil {
		err = mapWorkplaceRepoError(err)
		return
	}

	return
}

// DeleteWorkplace removes a workplace that no shift refers to.
func (s *WorkplaceService) DeleteWorkplace(ctx context.Context, principal Principal, workplaceID string) error {
	if s == nil {
		return fmt.Errorf("WorkplaceService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.workplaces == nil {
		return fmt.Errorf("workplace repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteWorkplace",
		"principal_id", principal.UserID,
		"workplace_id", workplaceID,
	)

	fail := func(err error) error {
		logger.ErrorContext(ctx, "failed to delete workplace", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	existing, err := s.workplaces.GetWorkplace(ctx, workplaceID)
	if err != nil {
		return fail(mapWorkplaceRepoError(err))
	}

	if s.shifts != nil {
		count, err := s.shifts.CountShiftsByPosition(ctx, existing.Name)
		if err != nil {
			return fail(err)
		}
		if count > 0 {
			logger = logger.With("shift_count", count)
			return fail(ErrWorkplaceInUse)
		}
	}

	if err := s.workplaces.DeleteWorkplace(ctx, workplaceID); err != nil {
		return fail(mapWorkplaceRepoError(err))
	}

	logger.InfoContext(ctx, "workplace deleted")
	return nil
}

// ListWorkplaces returns every workplace for any authenticated user.
func (s *WorkplaceService) ListWorkplaces(ctx context.Context, principal Principal) (workplaces []Workplace, err error) {
	if s == nil {
		err = fmt.Errorf("WorkplaceService is nil")
		return
	}
	if s.workplaces == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListWorkplaces",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list workplaces", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(workplaces)).InfoContext(ctx, "workplaces listed")
	}()

	var raw []Workplace
	raw, err = s.workplaces.ListWorkplaces(ctx)
	if err != nil {
		return
	}

	workplaces = make([]Workplace, len(raw))
	copy(workplaces, raw)
	sortWorkplaces(workplaces)
	return
}

func (s *WorkplaceService) ensureUniqueName(ctx context.Context, name, selfID string) error {
	existing, err := s.workplaces.ListWorkplaces(ctx)
	if err != nil {
		return err
	}
	for _, workplace := range existing {
		if workplace.ID != selfID && sameName(workplace.Name, name) {
			return ErrAlreadyExists
		}
	}
	return nil
}

func sortWorkplaces(workplaces []Workplace) {
	sort.Slice(workplaces, func(i, j int) bool {
		return lessByName(workplaces[i].Name, workplaces[i].ID, workplaces[j].Name, workplaces[j].ID)
	})
}

// buildWorkplace validates input and returns the normalized attributes.
func buildWorkplace(input WorkplaceInput) (Workplace, *ValidationError) {
	vErr := &ValidationError{}
	workplace := Workplace{
		Name:          validateName(vErr, "name", input.Name),
		HasFixedHours: input.HasFixedHours,
	}

	if !input.HasFixedHours {
		return workplace, vErr
	}

	start, startOK := parseTimeField(vErr, "start_time", input.StartTime)
	end, endOK := parseTimeField(vErr, "end_time", input.EndTime)
	if startOK && endOK {
		if start == end {
			vErr.add("end_time", "end_time must differ from start_time")
		}
		workplace.StartTime = &start
		workplace.EndTime = &end
	}
	return workplace, vErr
}

// findWorkplace resolves a position name against the known workplaces.
func findWorkplace(workplaces []Workplace, name string) (Workplace, bool) {
	for _, workplace := range workplaces {
		if sameName(workplace.Name, name) {
			return workplace, true
		}
	}
	return Workplace{}, false
}

func mapWorkplaceRepoError(err error) error {
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
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("start_time", "fixed hours require both start_time and end_time")
		return vErr
	}
	return err
}
