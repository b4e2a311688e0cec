package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/calendar"
	"github.com/example/shift-scheduler/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type shiftService interface {
	CreateShift(ctx context.Context, params application.CreateShiftParams) (application.Shift, error)
	UpdateShift(ctx context.Context, params application.UpdateShiftParams) (application.Shift, error)
	DeleteShift(ctx context.Context, principal application.Principal, shiftID string) error
	ListShifts(ctx context.Context, params application.ListShiftsParams) ([]application.Shift, error)
	SignUp(ctx context.Context, principal application.Principal, shiftID string) (application.SignUpResult, error)
	Cancel(ctx context.Context, principal application.Principal, shiftID string) (application.Shift, error)
	Today() calendar.Date
}

// occupantDirectory resolves occupant ids to display names for the roster export.
type occupantDirectory interface {
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

type ShiftHandler struct {
	service   shiftService
	directory occupantDirectory
	responder responder
	logger    *slog.Logger
}

// NewShiftHandler wires the shift endpoints. directory may be nil, in which
// case exported rosters show occupant ids.
func NewShiftHandler(service shiftService, directory occupantDirectory, logger *slog.Logger) *ShiftHandler {
	base := defaultLogger(logger)
	return &ShiftHandler{service: service, directory: directory, responder: newResponder(base), logger: base}
}

func (h *ShiftHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ShiftHandler", operation, attrs...)
}

func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode shift request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create")

	shift, err := h.service.CreateShift(r.Context(), application.CreateShiftParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logFailure(r.Context(), logger, "shift creation failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift created", "shift_id", shift.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, shiftResponse{Shift: toShiftDTO(shift)})
}

func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	shiftID := pathID(r)
	if shiftID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}

	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "shift_id", shiftID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode shift update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "shift_id", shiftID, "detach", req.Detach)

	shift, err := h.service.UpdateShift(r.Context(), application.UpdateShiftParams{
		Principal: principal,
		ShiftID:   shiftID,
		Input:     req.toInput(),
		Detach:    req.Detach,
	})
	if err != nil {
		logFailure(r.Context(), logger, "shift update failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, shiftResponse{Shift: toShiftDTO(shift)})
}

func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	shiftID := pathID(r)
	if shiftID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "shift_id", shiftID)
	if err := h.service.DeleteShift(r.Context(), principal, shiftID); err != nil {
		logFailure(r.Context(), logger, "shift delete failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := listParamsFromQuery(principal, r)
	logger := h.log(r.Context(), "List", "from", params.From, "to", params.To, "position", params.Position)

	shifts, err := h.service.ListShifts(r.Context(), params)
	if err != nil {
		logFailure(r.Context(), logger, "shift list failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]shiftDTO, 0, len(shifts))
	for _, shift := range shifts {
		dtos = append(dtos, toShiftDTO(shift))
	}
	logger.DebugContext(r.Context(), "shifts listed", "result_count", len(dtos))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listShiftsResponse{Shifts: dtos})
}

// SignUp puts the caller on an open shift. Overlaps with shifts the caller
// already holds are reported as warnings and do not block the sign-up.
func (h *ShiftHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	shiftID := pathID(r)
	if shiftID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "SignUp", "shift_id", shiftID)

	result, err := h.service.SignUp(r.Context(), principal, shiftID)
	if err != nil {
		logFailure(r.Context(), logger, "shift sign-up failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	warnings := make([]warningDTO, 0, len(result.Warnings))
	for _, warning := range result.Warnings {
		warnings = append(warnings, warningDTO{
			ShiftID:  warning.ShiftID,
			Type:     warning.Type,
			UserID:   warning.UserID,
			Position: warning.Position,
			Message:  fmt.Sprintf("%s の別のシフトと時間が重なっています。", warning.Position),
		})
	}

	logger.InfoContext(r.Context(), "signed up for shift", "warning_count", len(warnings))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, signUpResponse{Shift: toShiftDTO(result.Shift), Warnings: warnings})
}

func (h *ShiftHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	shiftID := pathID(r)
	if shiftID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "shift_id", shiftID)

	shift, err := h.service.Cancel(r.Context(), principal, shiftID)
	if err != nil {
		logFailure(r.Context(), logger, "shift cancel failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift sign-up cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, shiftResponse{Shift: toShiftDTO(shift)})
}

// Export streams the shifts matching the list filters as an xlsx roster.
// Without from and to the roster covers the current month.
func (h *ShiftHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := listParamsFromQuery(principal, r)
	if params.From == "" && params.To == "" {
		today := h.service.Today()
		params.From = calendar.FirstOfMonth(today.Year, today.Month).String()
		params.To = calendar.LastOfMonth(today.Year, today.Month).String()
	}
	logger := h.log(r.Context(), "Export", "from", params.From, "to", params.To)

	if !principal.IsAdmin {
		logFailure(r.Context(), logger, "roster export rejected", application.ErrUnauthorized)
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	shifts, err := h.service.ListShifts(r.Context(), params)
	if err != nil {
		logFailure(r.Context(), logger, "roster export failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	names := map[string]string{}
	if h.directory != nil {
		users, err := h.directory.ListUsers(r.Context(), principal)
		if err != nil {
			logFailure(r.Context(), logger, "occupant lookup failed", err)
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		for _, user := range users {
			names[user.ID] = user.Name
		}
	}

	entries := make([]export.RosterEntry, 0, len(shifts))
	for _, shift := range shifts {
		occupant := shift.OccupantID
		if name, ok := names[occupant]; ok {
			occupant = name
		}
		entries = append(entries, export.RosterEntry{
			Date:          shift.Date.String(),
			Weekday:       shift.Date.Weekday().String(),
			StartTime:     shift.StartTime.String(),
			EndTime:       shift.EndTime.String(),
			Position:      shift.Position,
			Occupant:      occupant,
			AutoGenerated: shift.AutoGenerated,
		})
	}

	workbook, err := export.RosterWorkbook(entries)
	if err != nil {
		logFailure(r.Context(), logger, "roster rendering failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rosterFilename(params)))
	w.Header().Set("Content-Length", strconv.Itoa(len(workbook)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(workbook); err != nil {
		logger.ErrorContext(r.Context(), "failed to write roster", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "roster exported", "row_count", len(entries))
}

func listParamsFromQuery(principal application.Principal, r *http.Request) application.ListShiftsParams {
	query := r.URL.Query()
	return application.ListShiftsParams{
		Principal: principal,
		From:      strings.TrimSpace(query.Get("from")),
		To:        strings.TrimSpace(query.Get("to")),
		Position:  strings.TrimSpace(query.Get("position")),
	}
}

func rosterFilename(params application.ListShiftsParams) string {
	parts := []string{"roster"}
	if params.From != "" {
		parts = append(parts, params.From)
	}
	if params.To != "" {
		parts = append(parts, params.To)
	}
	return strings.Join(parts, "_") + ".xlsx"
}

type shiftRequest struct {
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Position   string `json:"position"`
	OccupantID string `json:"occupant_id"`
	Detach     bool   `json:"detach"`
}

func (r shiftRequest) toInput() application.ShiftInput {
	return application.ShiftInput{
		Date:       strings.TrimSpace(r.Date),
		StartTime:  strings.TrimSpace(r.StartTime),
		EndTime:    strings.TrimSpace(r.EndTime),
		Position:   strings.TrimSpace(r.Position),
		OccupantID: strings.TrimSpace(r.OccupantID),
	}
}

type shiftResponse struct {
	Shift shiftDTO `json:"shift"`
}

type listShiftsResponse struct {
	Shifts []shiftDTO `json:"shifts"`
}

type signUpResponse struct {
	Shift    shiftDTO     `json:"shift"`
	Warnings []warningDTO `json:"warnings"`
}

type shiftDTO struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	CrossesMidnight bool   `json:"crosses_midnight"`
	Position        string `json:"position"`
	OccupantID      string `json:"occupant_id,omitempty"`
	AutoGenerated   bool   `json:"auto_generated"`
	RuleID          string `json:"rule_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type warningDTO struct {
	ShiftID  string `json:"shift_id"`
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Position string `json:"position"`
	Message  string `json:"message"`
}

func toShiftDTO(shift application.Shift) shiftDTO {
	return shiftDTO{
		ID:              shift.ID,
		Date:            shift.Date.String(),
		StartTime:       shift.StartTime.String(),
		EndTime:         shift.EndTime.String(),
		CrossesMidnight: calendar.CrossesMidnight(shift.StartTime, shift.EndTime),
		Position:        shift.Position,
		OccupantID:      shift.OccupantID,
		AutoGenerated:   shift.AutoGenerated,
		RuleID:          shift.RuleID,
		CreatedAt:       shift.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       shift.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
