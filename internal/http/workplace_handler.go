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

type workplaceService interface {
	CreateWorkplace(ctx context.Context, params application.CreateWorkplaceParams) (application.Workplace, error)
	UpdateWorkplace(ctx context.Context, params application.UpdateWorkplaceParams) (application.Workplace, error)
	DeleteWorkplace(ctx context.Context, principal application.Principal, workplaceID string) error
	ListWorkplaces(ctx context.Context, principal application.Principal) ([]application.Workplace, error)
}

// WorkplaceHandler serves the workplace catalog. Listing is open to every
// signed in user; mutations are checked by the service.
type WorkplaceHandler struct {
	service   workplaceService
	responder responder
	logger    *slog.Logger
}

func NewWorkplaceHandler(service workplaceService, logger *slog.Logger) *WorkplaceHandler {
	base := defaultLogger(logger)
	return &WorkplaceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WorkplaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WorkplaceHandler", operation, attrs...)
}

func (h *WorkplaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req workplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode workplace request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create")

	workplace, err := h.service.CreateWorkplace(r.Context(), application.CreateWorkplaceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logFailure(r.Context(), logger, "workplace creation failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "workplace created", "workplace_id", workplace.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, workplaceResponse{Workplace: toWorkplaceDTO(workplace)})
}

func (h *WorkplaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	workplaceID := pathID(r)
	if workplaceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWorkplaceID)
		return
	}

	var req workplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "workplace_id", workplaceID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode workplace update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "workplace_id", workplaceID)

	workplace, err := h.service.UpdateWorkplace(r.Context(), application.UpdateWorkplaceParams{
		Principal:   principal,
		WorkplaceID: workplaceID,
		Input:       req.toInput(),
	})
	if err != nil {
		logFailure(r.Context(), logger, "workplace update failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "workplace updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, workplaceResponse{Workplace: toWorkplaceDTO(workplace)})
}

func (h *WorkplaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	workplaceID := pathID(r)
	if workplaceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWorkplaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "workplace_id", workplaceID)
	if err := h.service.DeleteWorkplace(r.Context(), principal, workplaceID); err != nil {
		logFailure(r.Context(), logger, "workplace delete failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "workplace deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *WorkplaceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	workplaces, err := h.service.ListWorkplaces(r.Context(), principal)
	if err != nil {
		logFailure(r.Context(), h.log(r.Context(), "List"), "workplace list failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]workplaceDTO, 0, len(workplaces))
	for _, workplace := range workplaces {
		dtos = append(dtos, toWorkplaceDTO(workplace))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listWorkplacesResponse{Workplaces: dtos})
}

type workplaceRequest struct {
	Name          string `json:"name"`
	HasFixedHours bool   `json:"has_fixed_hours"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

func (r workplaceRequest) toInput() application.WorkplaceInput {
	return application.WorkplaceInput{
		Name:          strings.TrimSpace(r.Name),
		HasFixedHours: r.HasFixedHours,
		StartTime:     strings.TrimSpace(r.StartTime),
		EndTime:       strings.TrimSpace(r.EndTime),
	}
}

type workplaceResponse struct {
	Workplace workplaceDTO `json:"workplace"`
}

type listWorkplacesResponse struct {
	Workplaces []workplaceDTO `json:"workplaces"`
}

type workplaceDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HasFixedHours bool   `json:"has_fixed_hours"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toWorkplaceDTO(workplace application.Workplace) workplaceDTO {
	dto := workplaceDTO{
		ID:            workplace.ID,
		Name:          workplace.Name,
		HasFixedHours: workplace.HasFixedHours,
		CreatedAt:     workplace.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     workplace.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if workplace.StartTime != nil {
		dto.StartTime = workplace.StartTime.String()
	}
	if workplace.EndTime != nil {
		dto.EndTime = workplace.EndTime.String()
	}
	return dto
}
