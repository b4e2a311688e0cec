package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/application"
)

type ruleService interface {
	CreateRule(ctx context.Context, params application.CreateRuleParams) (application.RuleCreation, error)
	MaterializeRule(ctx context.Context, principal application.Principal, ruleID string) (application.RuleCreation, error)
	DeleteRule(ctx context.Context, principal application.Principal, ruleID string) (application.RuleDeletion, error)
	ListRules(ctx context.Context, principal application.Principal) ([]application.RecurringRule, error)
}

// RuleHandler serves recurring rules. Creating, re-materializing and deleting
// a rule write many shifts; a partial failure answers 207 with the per-shift
// outcome.
type RuleHandler struct {
	service   ruleService
	responder responder
	logger    *slog.Logger
}

func NewRuleHandler(service ruleService, logger *slog.Logger) *RuleHandler {
	base := defaultLogger(logger)
	return &RuleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RuleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RuleHandler", operation, attrs...)
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "workplace", strings.TrimSpace(req.Workplace))

	result, err := h.service.CreateRule(r.Context(), application.CreateRuleParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logFailure(r.Context(), logger, "rule creation failed", err)
	} else {
		logger.InfoContext(r.Context(), "rule created", "rule_id", result.Rule.ID, "generated_count", result.GeneratedCount)
	}

	h.responder.writeBatch(r.Context(), w, http.StatusCreated, toRuleCreationResponse(result), err)
}

// Materialize re-runs generation for a rule. Shifts that already exist are
// skipped, which makes it the retry path after a partial failure.
func (h *RuleHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID := pathID(r)
	if ruleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Materialize", "rule_id", ruleID)

	result, err := h.service.MaterializeRule(r.Context(), principal, ruleID)
	if err != nil {
		logFailure(r.Context(), logger, "rule materialization failed", err)
	} else {
		logger.InfoContext(r.Context(), "rule materialized", "generated_count", result.GeneratedCount)
	}

	h.responder.writeBatch(r.Context(), w, http.StatusOK, toRuleCreationResponse(result), err)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID := pathID(r)
	if ruleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "rule_id", ruleID)

	result, err := h.service.DeleteRule(r.Context(), principal, ruleID)
	if err != nil {
		logFailure(r.Context(), logger, "rule delete failed", err)
	} else {
		logger.InfoContext(r.Context(), "rule deleted", "deleted_shifts", len(result.Shifts.Succeeded))
	}

	h.responder.writeBatch(r.Context(), w, http.StatusOK, ruleDeletionResponse{
		RuleID:      result.RuleID,
		RuleDeleted: result.RuleDeleted,
		Shifts:      toBatchDTO(result.Shifts),
	}, err)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	rules, err := h.service.ListRules(r.Context(), principal)
	if err != nil {
		logFailure(r.Context(), h.log(r.Context(), "List"), "rule list failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		dtos = append(dtos, toRuleDTO(rule))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRulesResponse{Rules: dtos})
}

type ruleRequest struct {
	Workplace string `json:"workplace"`
	Weekdays  []int  `json:"weekdays"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	EndDate   string `json:"end_date"`
}

func (r ruleRequest) toInput() application.RuleInput {
	return application.RuleInput{
		Workplace: strings.TrimSpace(r.Workplace),
		Weekdays:  append([]int(nil), r.Weekdays...),
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
		EndDate:   strings.TrimSpace(r.EndDate),
	}
}

type ruleDTO struct {
	ID        string `json:"id"`
	Workplace string `json:"workplace"`
	Weekdays  []int  `json:"weekdays"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	EndDate   string `json:"end_date"`
	CreatedAt string `json:"created_at"`
}

type listRulesResponse struct {
	Rules []ruleDTO `json:"rules"`
}

type batchFailureDTO struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type batchDTO struct {
	Succeeded []string          `json:"succeeded"`
	Failed    []batchFailureDTO `json:"failed"`
}

type ruleCreationResponse struct {
	Rule            ruleDTO  `json:"rule"`
	GeneratedCount  int      `json:"generated_count"`
	Materialization batchDTO `json:"materialization"`
}

type ruleDeletionResponse struct {
	RuleID      string   `json:"rule_id"`
	RuleDeleted bool     `json:"rule_deleted"`
	Shifts      batchDTO `json:"shifts"`
}

func toRuleDTO(rule application.RecurringRule) ruleDTO {
	weekdays := make([]int, 0, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdays = append(weekdays, int(day))
	}
	return ruleDTO{
		ID:        rule.ID,
		Workplace: rule.Workplace,
		Weekdays:  weekdays,
		StartTime: rule.StartTime.String(),
		EndTime:   rule.EndTime.String(),
		EndDate:   rule.EndDate.String(),
		CreatedAt: rule.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRuleCreationResponse(result application.RuleCreation) ruleCreationResponse {
	return ruleCreationResponse{
		Rule:            toRuleDTO(result.Rule),
		GeneratedCount:  result.GeneratedCount,
		Materialization: toBatchDTO(result.Materialization),
	}
}

func toBatchDTO(batch application.BatchResult) batchDTO {
	dto := batchDTO{
		Succeeded: append(make([]string, 0, len(batch.Succeeded)), batch.Succeeded...),
		Failed:    make([]batchFailureDTO, 0, len(batch.Failed)),
	}
	for _, failure := range batch.Failed {
		message := ""
		if failure.Err != nil {
			message = failure.Err.Error()
		}
		dto.Failed = append(dto.Failed, batchFailureDTO{ID: failure.ID, Message: message})
	}
	return dto
}
