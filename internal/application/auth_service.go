package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes user lookups required by the auth service.
type CredentialStore interface {
	GetUserByName(ctx context.Context, name string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// TokenIssuer signs and verifies stateless session tokens.
type TokenIssuer interface {
	Issue(userID string, isAdmin bool) (token string, expiresAt time.Time, err error)
	Verify(token string) (userID string, err error)
}

// AuthService coordinates login and session validation.
type AuthService struct {
	credentials CredentialStore
	tokens      TokenIssuer
	verifyPIN   PINVerifier
	logger      *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, tokens TokenIssuer, verify PINVerifier) *AuthService {
	return NewAuthServiceWithLogger(credentials, tokens, verify, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, tokens TokenIssuer, verify PINVerifier, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPIN
	}
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		verifyPIN:   verify,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies a name and PIN and issues a signed session token. Every
// mismatch is reported as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.tokens == nil {
		err = fmt.Errorf("auth dependencies not configured")
		return
	}

	name := strings.TrimSpace(params.Name)

	logger := s.loggerWith(ctx, "Login",
		"name", name,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"expires_at", result.Session.ExpiresAt,
		).InfoContext(ctx, "login succeeded")
	}()

	if name == "" || params.PIN == "" {
		err = ErrInvalidCredentials
		return
	}

	var user User
	user, err = s.credentials.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(mapUserRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPIN(user.PINHash, params.PIN); err != nil {
		err = ErrInvalidCredentials
		return
	}

	token, expiresAt, issueErr := s.tokens.Issue(user.ID, user.IsAdmin)
	if issueErr != nil {
		err = fmt.Errorf("issue session token: %w", issueErr)
		return
	}

	result = LoginResult{
		User: user,
		Session: Session{
			Token:     token,
			UserID:    user.ID,
			IsAdmin:   user.IsAdmin,
			ExpiresAt: expiresAt,
		},
	}
	return
}

// ValidateSession verifies a token and resolves the principal it belongs to.
// Admin rights are read from the current user record so a demotion takes effect
// before the token expires.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.tokens == nil {
		err = fmt.Errorf("auth dependencies not configured")
		return
	}

	token = strings.TrimSpace(token)
	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	userID, verifyErr := s.tokens.Verify(token)
	if verifyErr != nil {
		s.loggerWith(ctx, "ValidateSession").DebugContext(ctx, "session token rejected", "error", verifyErr)
		err = ErrInvalidCredentials
		return
	}

	user, getErr := s.credentials.GetUser(ctx, userID)
	if getErr != nil {
		if errors.Is(mapUserRepoError(getErr), ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = getErr
		return
	}

	principal = Principal{UserID: user.ID, IsAdmin: user.IsAdmin}
	return
}
