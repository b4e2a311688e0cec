package main

import (
	"context"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/persistence"
)

type workplaceRepositoryAdapter struct {
	repo persistence.WorkplaceRepository
}

func newWorkplaceRepositoryAdapter(repo persistence.WorkplaceRepository) *workplaceRepositoryAdapter {
	return &workplaceRepositoryAdapter{repo: repo}
}

func (a *workplaceRepositoryAdapter) CreateWorkplace(ctx context.Context, workplace application.Workplace) (application.Workplace, error) {
	if err := a.repo.CreateWorkplace(ctx, toPersistenceWorkplace(workplace)); err != nil {
		return application.Workplace{}, err
	}
	return a.GetWorkplace(ctx, workplace.ID)
}

func (a *workplaceRepositoryAdapter) GetWorkplace(ctx context.Context, id string) (application.Workplace, error) {
	stored, err := a.repo.GetWorkplace(ctx, id)
	if err != nil {
		return application.Workplace{}, err
	}
	return toApplicationWorkplace(stored), nil
}

func (a *workplaceRepositoryAdapter) UpdateWorkplace(ctx context.Context, workplace application.Workplace) (application.Workplace, error) {
	if err := a.repo.UpdateWorkplace(ctx, toPersistenceWorkplace(workplace)); err != nil {
		return application.Workplace{}, err
	}
	return a.GetWorkplace(ctx, workplace.ID)
}

func (a *workplaceRepositoryAdapter) DeleteWorkplace(ctx context.Context, id string) error {
	return a.repo.DeleteWorkplace(ctx, id)
}

func (a *workplaceRepositoryAdapter) ListWorkplaces(ctx context.Context) ([]application.Workplace, error) {
	models, err := a.repo.ListWorkplaces(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	workplaces := make([]application.Workplace, 0, len(models))
	for _, model := range models {
		workplaces = append(workplaces, toApplicationWorkplace(model))
	}
	return workplaces, nil
}

type shiftRepositoryAdapter struct {
	repo persistence.ShiftRepository
}

func newShiftRepositoryAdapter(repo persistence.ShiftRepository) *shiftRepositoryAdapter {
	return &shiftRepositoryAdapter{repo: repo}
}

func (a *shiftRepositoryAdapter) CreateShift(ctx context.Context, shift application.Shift) (application.Shift, error) {
	if err := a.repo.CreateShift(ctx, toPersistenceShift(shift)); err != nil {
		return application.Shift{}, err
	}
	return a.GetShift(ctx, shift.ID)
}

func (a *shiftRepositoryAdapter) GetShift(ctx context.Context, id string) (application.Shift, error) {
	stored, err := a.repo.GetShift(ctx, id)
	if err != nil {
		return application.Shift{}, err
	}
	return toApplicationShift(stored), nil
}

func (a *shiftRepositoryAdapter) UpdateShift(ctx context.Context, shift application.Shift) (application.Shift, error) {
	if err := a.repo.UpdateShift(ctx, toPersistenceShift(shift)); err != nil {
		return application.Shift{}, err
	}
	return a.GetShift(ctx, shift.ID)
}

func (a *shiftRepositoryAdapter) DeleteShift(ctx context.Context, id string) error {
	return a.repo.DeleteShift(ctx, id)
}

func (a *shiftRepositoryAdapter) ListShifts(ctx context.Context, query application.ShiftQuery) ([]application.Shift, error) {
	models, err := a.repo.ListShifts(ctx, persistence.ShiftFilter{
		From:       query.From,
		To:         query.To,
		Position:   query.Position,
		RuleID:     query.RuleID,
		OccupantID: query.OccupantID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	shifts := make([]application.Shift, 0, len(models))
	for _, model := range models {
		shifts = append(shifts, toApplicationShift(model))
	}
	return shifts, nil
}

func (a *shiftRepositoryAdapter) AssignOccupant(ctx context.Context, shiftID, userID string, at time.Time) error {
	return a.repo.AssignOccupant(ctx, shiftID, userID, at)
}

func (a *shiftRepositoryAdapter) ClearOccupant(ctx context.Context, shiftID, userID string, at time.Time) error {
	return a.repo.ClearOccupant(ctx, shiftID, userID, at)
}

func (a *shiftRepositoryAdapter) CountShiftsByPosition(ctx context.Context, position string) (int, error) {
	return a.repo.CountShiftsByPosition(ctx, position)
}

type ruleRepositoryAdapter struct {
	repo persistence.RuleRepository
}

func newRuleRepositoryAdapter(repo persistence.RuleRepository) *ruleRepositoryAdapter {
	return &ruleRepositoryAdapter{repo: repo}
}

func (a *ruleRepositoryAdapter) CreateRule(ctx context.Context, rule application.RecurringRule) (application.RecurringRule, error) {
	if err := a.repo.CreateRule(ctx, toPersistenceRule(rule)); err != nil {
		return application.RecurringRule{}, err
	}
	return a.GetRule(ctx, rule.ID)
}

func (a *ruleRepositoryAdapter) GetRule(ctx context.Context, id string) (application.RecurringRule, error) {
	stored, err := a.repo.GetRule(ctx, id)
	if err != nil {
		return application.RecurringRule{}, err
	}
	return toApplicationRule(stored), nil
}

func (a *ruleRepositoryAdapter) DeleteRule(ctx context.Context, id string) error {
	return a.repo.DeleteRule(ctx, id)
}

func (a *ruleRepositoryAdapter) ListRules(ctx context.Context) ([]application.RecurringRule, error) {
	models, err := a.repo.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rules := make([]application.RecurringRule, 0, len(models))
	for _, model := range models {
		rules = append(rules, toApplicationRule(model))
	}
	return rules, nil
}

// userRepositoryAdapter also serves as the auth service's credential store.
type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByName(ctx context.Context, name string) (application.User, error) {
	stored, err := a.repo.GetUserByName(ctx, name)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) CountUsers(ctx context.Context) (int, error) {
	return a.repo.CountUsers(ctx)
}

func toApplicationWorkplace(model persistence.Workplace) application.Workplace {
	return application.Workplace{
		ID:            model.ID,
		Name:          model.Name,
		HasFixedHours: model.HasFixedHours,
		StartTime:     model.StartTime,
		EndTime:       model.EndTime,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceWorkplace(workplace application.Workplace) persistence.Workplace {
	return persistence.Workplace{
		ID:            workplace.ID,
		Name:          workplace.Name,
		HasFixedHours: workplace.HasFixedHours,
		StartTime:     workplace.StartTime,
		EndTime:       workplace.EndTime,
		CreatedAt:     workplace.CreatedAt,
		UpdatedAt:     workplace.UpdatedAt,
	}
}

func toApplicationShift(model persistence.Shift) application.Shift {
	return application.Shift{
		ID:            model.ID,
		Date:          model.Date,
		StartTime:     model.StartTime,
		EndTime:       model.EndTime,
		Position:      model.Position,
		OccupantID:    derefString(model.OccupantID),
		AutoGenerated: model.AutoGenerated,
		RuleID:        derefString(model.RuleID),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceShift(shift application.Shift) persistence.Shift {
	return persistence.Shift{
		ID:            shift.ID,
		Date:          shift.Date,
		StartTime:     shift.StartTime,
		EndTime:       shift.EndTime,
		Position:      shift.Position,
		OccupantID:    optionalString(shift.OccupantID),
		AutoGenerated: shift.AutoGenerated,
		RuleID:        optionalString(shift.RuleID),
		CreatedAt:     shift.CreatedAt,
		UpdatedAt:     shift.UpdatedAt,
	}
}

func toApplicationRule(model persistence.RecurringRule) application.RecurringRule {
	return application.RecurringRule{
		ID:        model.ID,
		Workplace: model.Workplace,
		Weekdays:  append([]time.Weekday(nil), model.Weekdays...),
		StartTime: model.StartTime,
		EndTime:   model.EndTime,
		EndDate:   model.EndDate,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceRule(rule application.RecurringRule) persistence.RecurringRule {
	return persistence.RecurringRule{
		ID:        rule.ID,
		Workplace: rule.Workplace,
		Weekdays:  append([]time.Weekday(nil), rule.Weekdays...),
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		EndDate:   rule.EndDate,
		CreatedAt: rule.CreatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Name:      model.Name,
		PINHash:   model.PINHash,
		IsAdmin:   model.IsAdmin,
		BuiltIn:   model.BuiltIn,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User) persistence.User {
	return persistence.User{
		ID:        user.ID,
		Name:      user.Name,
		PINHash:   user.PINHash,
		IsAdmin:   user.IsAdmin,
		BuiltIn:   user.BuiltIn,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	clone := value
	return &clone
}
