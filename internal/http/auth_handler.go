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

const sessionCookieName = "session_token"

type authService interface {
	Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error)
}

// AuthHandler serves POST /sessions and DELETE /sessions/current.
type AuthHandler struct {
	service      authService
	responder    responder
	logger       *slog.Logger
	secureCookie bool
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base, secureCookie: true}
}

// WithInsecureCookie drops the Secure attribute so the cookie works over plain
// HTTP during local development.
func (h *AuthHandler) WithInsecureCookie() *AuthHandler {
	h.secureCookie = false
	return h
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

type loginRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

type principalDTO struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	Principal principalDTO `json:"principal"`
	User      userDTO      `json:"user"`
}

func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "CreateSession").WarnContext(ctx, "rejected login payload", "error", err, "error_kind", "bad_request")
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	params := application.LoginParams{Name: strings.TrimSpace(req.Name), PIN: req.PIN}
	logger := h.log(ctx, "CreateSession", "name", params.Name)

	result, err := h.service.Login(ctx, params)
	if err != nil {
		logFailure(ctx, logger, "login failed", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	issued := result.Session
	http.SetCookie(w, h.cookie(issued.Token, issued.ExpiresAt))
	w.Header().Set("X-Session-Token", issued.Token)
	logger.InfoContext(ctx, "session issued", "user_id", result.User.ID, "is_admin", issued.IsAdmin)

	h.responder.writeJSON(ctx, w, http.StatusCreated, loginResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
		Principal: principalDTO{UserID: issued.UserID, IsAdmin: issued.IsAdmin},
		User:      toUserDTO(result.User),
	})
}

// DeleteCurrentSession expires the session cookie. The token itself stays
// valid until its own expiry.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "DeleteCurrentSession")

	if sessionToken(r) == "" {
		logger.WarnContext(ctx, "logout without a session token", "error_kind", "unauthorized")
		h.responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	expired := h.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	logger.InfoContext(ctx, "session cookie cleared")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *AuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		c.Expires = expires.UTC()
	}
	return c
}

// sessionToken prefers a bearer Authorization header over the cookie.
func sessionToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
