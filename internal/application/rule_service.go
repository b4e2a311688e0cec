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
	"github.com/example/shift-scheduler/internal/recurrence"
)

// RuleRepository captures the persistence operations needed by the rule service.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule RecurringRule) (RecurringRule, error)
	GetRule(ctx context.Context, id string) (RecurringRule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context) ([]RecurringRule, error)
}

// RuleObserver receives the outcome of materialization and cascade runs.
type RuleObserver interface {
	ObserveMaterialization(generated, failed int)
	ObserveCascade(deleted, failed int)
}

type nopRuleObserver struct{}

func (nopRuleObserver) ObserveMaterialization(int, int) {}
func (nopRuleObserver) ObserveCascade(int, int)         {}

// DefaultRuleHorizonDays is how far past today a rule may end when no
// horizon is configured.
const DefaultRuleHorizonDays = 366

// RuleService creates recurring rules, materializes their shifts, and cascades
// deletes to the shifts a rule generated.
type RuleService struct {
	rules      RuleRepository
	shifts     ShiftRepository
	workplaces WorkplaceLister
	engine     *recurrence.Engine
	now        func() time.Time
	location   *time.Location
	observer   RuleObserver
	horizon    int
	logger     *slog.Logger
}

// RuleServiceOptions carries the optional collaborators of a RuleService.
type RuleServiceOptions struct {
	Location *time.Location
	Observer RuleObserver
	Logger   *slog.Logger

	// HorizonDays caps EndDate at today plus this many days.
	HorizonDays int
}

// NewRuleService constructs a rule service. A nil engine generates UUIDs.
func NewRuleService(rules RuleRepository, shifts ShiftRepository, workplaces WorkplaceLister, engine *recurrence.Engine, now func() time.Time) *RuleService {
	return NewRuleServiceWithOptions(rules, shifts, workplaces, engine, now, RuleServiceOptions{})
}

// NewRuleServiceWithOptions constructs a rule service with a location, observer and logger.
func NewRuleServiceWithOptions(rules RuleRepository, shifts ShiftRepository, workplaces WorkplaceLister, engine *recurrence.Engine, now func() time.Time, opts RuleServiceOptions) *RuleService {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if now == nil {
		now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Observer == nil {
		opts.Observer = nopRuleObserver{}
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultRuleHorizonDays
	}
	return &RuleService{
		rules:      rules,
		shifts:     shifts,
		workplaces: workplaces,
		engine:     engine,
		now:        now,
		location:   opts.Location,
		observer:   opts.Observer,
		horizon:    opts.HorizonDays,
		logger:     defaultLogger(opts.Logger),
	}
}

func (s *RuleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RuleService", operation, attrs...)
}

// CreateRule validates and persists a rule, then materializes its shifts from
// today through the rule's end date. The rule stays persisted when some shifts
// fail to write; the returned error then matches ErrPartialFailure and
// MaterializeRule retries the remainder.
func (s *RuleService) CreateRule(ctx context.Context, params CreateRuleParams) (result RuleCreation, err error) {
	if s == nil {
		err = fmt.Errorf("RuleService is nil")
		return
	}
	if s.rules == nil || s.shifts == nil {
		err = fmt.Errorf("rule repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRule",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"rule_id", result.Rule.ID,
			"generated_count", result.GeneratedCount,
		).InfoContext(ctx, "rule created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	today := calendar.Today(s.now(), s.location)
	rule, vErr := buildRule(params.Input, today, today.AddDays(s.horizon))
	if err = s.checkWorkplace(ctx, vErr, &rule); err != nil {
		return
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	rule.ID = s.engine.NewID()
	rule.CreatedAt = s.now()

	result.Rule, err = s.rules.CreateRule(ctx, rule)
	if err != nil {
		err = mapRuleRepoError(err)
		return
	}

	result.Materialization, result.GeneratedCount, err = s.materialize(ctx, result.Rule, today)
	if err != nil && !errors.Is(err, ErrPartialFailure) {
		// The rule row exists; report it so MaterializeRule can be retried.
		err = fmt.Errorf("%w: rule %s saved without its shifts: %w", ErrPartialFailure, result.Rule.ID, err)
	}
	return
}

// MaterializeRule re-runs materialization of an existing rule against the
// current shifts. Only missing shifts are created.
func (s *RuleService) MaterializeRule(ctx context.Context, principal Principal, ruleID string) (result RuleCreation, err error) {
	if s == nil {
		err = fmt.Errorf("RuleService is nil")
		return
	}
	if s.rules == nil || s.shifts == nil {
		err = fmt.Errorf("rule repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "MaterializeRule",
		"principal_id", principal.UserID,
		"rule_id", ruleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to materialize rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("generated_count", result.GeneratedCount).InfoContext(ctx, "rule materialized")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	result.Rule, err = s.rules.GetRule(ctx, ruleID)
	if err != nil {
		err = mapRuleRepoError(err)
		return
	}

	result.Materialization, result.GeneratedCount, err = s.materialize(ctx, result.Rule, calendar.Today(s.now(), s.location))
	return
}

// DeleteRule deletes every shift the rule generated and then the rule itself.
// Detached shifts survive. When a shift delete fails the rule is kept so the
// call can be repeated, and the returned error matches ErrPartialFailure.
func (s *RuleService) DeleteRule(ctx context.Context, principal Principal, ruleID string) (result RuleDeletion, err error) {
	if s == nil {
		err = fmt.Errorf("RuleService is nil")
		return
	}
	if s.rules == nil || s.shifts == nil {
		err = fmt.Errorf("rule repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "DeleteRule",
		"principal_id", principal.UserID,
		"rule_id", ruleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("deleted_shifts", len(result.Shifts.Succeeded)).InfoContext(ctx, "rule deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	result.RuleID = ruleID
	if _, err = s.rules.GetRule(ctx, ruleID); err != nil {
		err = mapRuleRepoError(err)
		return
	}

	var shifts []Shift
	shifts, err = s.shifts.ListShifts(ctx, ShiftQuery{})
	if err != nil {
		return
	}

	cascade := recurrence.CascadeDelete(ruleID, shifts)
	for _, shift := range cascade.ShiftsToDelete {
		deleteErr := s.shifts.DeleteShift(ctx, shift.ID)
		if errors.Is(deleteErr, persistence.ErrNotFound) || errors.Is(deleteErr, ErrNotFound) {
			deleteErr = nil
		}
		result.Shifts.record(shift.ID, deleteErr)
	}
	s.observer.ObserveCascade(len(result.Shifts.Succeeded), len(result.Shifts.Failed))

	if err = result.Shifts.Err(); err != nil {
		return
	}

	if err = s.rules.DeleteRule(ctx, ruleID); err != nil {
		err = mapRuleRepoError(err)
		return
	}
	result.RuleDeleted = true
	return
}

// ListRules returns every rule ordered by workplace and creation time.
func (s *RuleService) ListRules(ctx context.Context, principal Principal) (rules []RecurringRule, err error) {
	if s == nil {
		err = fmt.Errorf("RuleService is nil")
		return
	}
	if s.rules == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRules",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rules", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rules)).InfoContext(ctx, "rules listed")
	}()

	var raw []RecurringRule
	raw, err = s.rules.ListRules(ctx)
	if err != nil {
		return
	}

	rules = make([]RecurringRule, len(raw))
	copy(rules, raw)
	sort.Slice(rules, func(i, j int) bool {
		if !strings.EqualFold(rules[i].Workplace, rules[j].Workplace) {
			return strings.ToLower(rules[i].Workplace) < strings.ToLower(rules[j].Workplace)
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
	return
}

// materialize stages the rule's missing shifts and writes them one at a time.
func (s *RuleService) materialize(ctx context.Context, rule RecurringRule, today calendar.Date) (BatchResult, int, error) {
	var batch BatchResult

	existing, err := s.shifts.ListShifts(ctx, ShiftQuery{From: &today, To: &rule.EndDate, Position: rule.Workplace})
	if err != nil {
		return batch, 0, err
	}

	staged, err := s.engine.Materialize(toEngineRule(rule), recurrence.KeysOf(existing), today)
	if err != nil {
		return batch, 0, ruleValidationError(err)
	}

	now := s.now()
	for _, generated := range staged.ToCreate {
		_, createErr := s.shifts.CreateShift(ctx, Shift{
			ID:            generated.ID,
			Date:          generated.Date,
			StartTime:     generated.StartTime,
			EndTime:       generated.EndTime,
			Position:      generated.Position,
			AutoGenerated: generated.AutoGenerated,
			RuleID:        generated.RuleID,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		batch.record(generated.ID, mapShiftRepoError(createErr))
	}
	s.observer.ObserveMaterialization(len(batch.Succeeded), len(batch.Failed))

	return batch, staged.GeneratedCount, batch.Err()
}

func (s *RuleService) checkWorkplace(ctx context.Context, vErr *ValidationError, rule *RecurringRule) error {
	if s.workplaces == nil || rule.Workplace == "" {
		return nil
	}
	workplaces, err := s.workplaces.ListWorkplaces(ctx)
	if err != nil {
		return err
	}
	workplace, ok := findWorkplace(workplaces, rule.Workplace)
	if !ok {
		vErr.add("workplace", "workplace must name an existing workplace")
		return nil
	}
	rule.Workplace = workplace.Name
	return nil
}

// buildRule parses input and applies the engine's rule validation. EndDate
// may not fall after latest.
func buildRule(input RuleInput, today, latest calendar.Date) (RecurringRule, *ValidationError) {
	vErr := &ValidationError{}
	rule := RecurringRule{Workplace: validateName(vErr, "workplace", input.Workplace)}

	seen := make(map[int]struct{}, len(input.Weekdays))
	for _, day := range input.Weekdays {
		if day < int(time.Sunday) || day > int(time.Saturday) {
			vErr.add("weekdays", "weekdays must be between 0 and 6")
			break
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		rule.Weekdays = append(rule.Weekdays, time.Weekday(day))
	}
	sort.Slice(rule.Weekdays, func(i, j int) bool { return rule.Weekdays[i] < rule.Weekdays[j] })

	var startOK, endOK, dateOK bool
	rule.StartTime, startOK = parseTimeField(vErr, "start_time", input.StartTime)
	rule.EndTime, endOK = parseTimeField(vErr, "end_time", input.EndTime)
	rule.EndDate, dateOK = parseDateField(vErr, "end_date", input.EndDate)
	if vErr.HasErrors() || !startOK || !endOK || !dateOK {
		return rule, vErr
	}

	if ruleErr, ok := ruleValidationError(recurrence.Validate(toEngineRule(rule), today)).(*ValidationError); ok {
		vErr.merge(ruleErr)
	}
	if rule.EndDate.After(latest) {
		vErr.add("end_date", "end_date exceeds the rule horizon")
	}
	return rule, vErr
}

// ruleValidationError converts engine rule errors into field errors.
func ruleValidationError(err error) error {
	if err == nil {
		return nil
	}
	ruleErrs := recurrence.RuleErrors(err)
	if len(ruleErrs) == 0 {
		return err
	}
	vErr := &ValidationError{}
	for _, ruleErr := range ruleErrs {
		vErr.add(ruleErr.Field, ruleErr.Field+" "+ruleErr.Reason)
	}
	return vErr
}

func toEngineRule(rule RecurringRule) recurrence.Rule {
	return recurrence.Rule{
		ID:        rule.ID,
		Workplace: rule.Workplace,
		Weekdays:  rule.Weekdays,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		EndDate:   rule.EndDate,
		CreatedAt: rule.CreatedAt,
	}
}

func mapRuleRepoError(err error) error {
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
		vErr.add("weekdays", "rule violates a storage constraint")
		return vErr
	}
	return err
}
