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

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID string) error
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

// UserHandler manages staff accounts. The router only mounts it behind the
// administrator check.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) unavailable(w http.ResponseWriter) bool {
	if h != nil && h.service != nil {
		return false
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	return true
}

// decode reads the account payload. On failure the 400 has already been
// written and ok is false.
func (h *UserHandler) decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (application.UserInput, bool) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "rejected user payload", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return application.UserInput{}, false
	}
	return req.toInput(), true
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Create")

	input, ok := h.decode(w, r, logger)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(ctx)
	user, err := h.service.CreateUser(ctx, application.CreateUserParams{Principal: principal, Input: input})
	if err != nil {
		logFailure(ctx, logger, "user creation failed", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", roleOf(user))
	h.responder.writeJSON(ctx, w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// Update replaces name and role. A blank PIN keeps the stored hash.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	ctx := r.Context()
	userID := pathID(r)
	if userID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidUserID)
		return
	}
	logger := h.log(ctx, "Update", "user_id", userID)

	input, ok := h.decode(w, r, logger)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(ctx)
	user, err := h.service.UpdateUser(ctx, application.UpdateUserParams{Principal: principal, UserID: userID, Input: input})
	if err != nil {
		logFailure(ctx, logger, "user update failed", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "user updated", "role", roleOf(user), "pin_changed", input.PIN != "")
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	ctx := r.Context()
	userID := pathID(r)
	if userID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	logger := h.log(ctx, "Delete", "user_id", userID)
	principal, _ := PrincipalFromContext(ctx)
	if err := h.service.DeleteUser(ctx, principal, userID); err != nil {
		logFailure(ctx, logger, "user delete failed", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "user deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "List")
	principal, _ := PrincipalFromContext(ctx)

	users, err := h.service.ListUsers(ctx, principal)
	if err != nil {
		logFailure(ctx, logger, "user list failed", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]userDTO, 0, len(users))
	admins := 0
	for _, user := range users {
		if user.IsAdmin {
			admins++
		}
		dtos = append(dtos, toUserDTO(user))
	}
	logger.DebugContext(ctx, "users listed", "result_count", len(dtos), "admin_count", admins)
	h.responder.writeJSON(ctx, w, http.StatusOK, listUsersResponse{Users: dtos})
}

type userRequest struct {
	Name    string `json:"name"`
	PIN     string `json:"pin"`
	IsAdmin bool   `json:"is_admin"`
}

func (r userRequest) toInput() application.UserInput {
	return application.UserInput{
		Name:    strings.TrimSpace(r.Name),
		PIN:     strings.TrimSpace(r.PIN),
		IsAdmin: r.IsAdmin,
	}
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

// userDTO has no PIN field at all, hashed or otherwise.
type userDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"is_admin"`
	BuiltIn   bool   `json:"built_in"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func roleOf(user application.User) string {
	if user.IsAdmin {
		return "admin"
	}
	return "employee"
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Name:      user.Name,
		Role:      roleOf(user),
		IsAdmin:   user.IsAdmin,
		BuiltIn:   user.BuiltIn,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
