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

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users       UserRepository
	hashPIN     PINHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hashPIN PINHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hashPIN, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hashPIN PINHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPIN == nil {
		hashPIN = HashPIN
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPIN: hashPIN, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	user, err = s.newUser(params.Input, false)
	if err != nil {
		return
	}

	if s.users == nil {
		return
	}

	if err = s.ensureUniqueName(ctx, user.Name, ""); err != nil {
		return
	}

	var persisted User
	persisted, err = s.users.CreateUser(ctx, user)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	user = persisted
	return
}

// UpdateUser validates input and updates an existing user for administrators.
// An empty PIN keeps the stored hash. The built-in administrator keeps its
// admin rights.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	vErr := &ValidationError{}
	name := validateName(vErr, "name", params.Input.Name)
	if params.Input.PIN != "" && !ValidatePIN(params.Input.PIN) {
		vErr.add("pin", fmt.Sprintf("pin must be %d digits", PINLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if existing.BuiltIn && !params.Input.IsAdmin {
		err = ErrProtectedUser
		return
	}

	if !sameName(existing.Name, name) {
		if err = s.ensureUniqueName(ctx, name, existing.ID); err != nil {
			return
		}
	}

	updated := existing
	updated.Name = name
	updated.IsAdmin = params.Input.IsAdmin
	if params.Input.PIN != "" {
		updated.PINHash, err = s.hashPIN(params.Input.PIN)
		if err != nil {
			err = fmt.Errorf("hash pin: %w", err)
			return
		}
	}
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, updated)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	return
}

// DeleteUser removes a user. The built-in administrator and the acting
// principal cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)

	fail := func(err error) error {
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if userID == principal.UserID {
		return fail(ErrProtectedUser)
	}

	existing, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fail(mapUserRepoError(err))
	}
	if existing.BuiltIn {
		return fail(ErrProtectedUser)
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fail(mapUserRepoError(err))
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

// ListUsers returns all users sorted by name for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListUsers",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).InfoContext(ctx, "users listed")
	}()

	var raw []User
	raw, err = s.users.ListUsers(ctx)
	if err != nil {
		return
	}

	users = make([]User, len(raw))
	copy(users, raw)
	sort.Slice(users, func(i, j int) bool {
		return lessByName(users[i].Name, users[i].ID, users[j].Name, users[j].ID)
	})
	return
}

// EnsureBuiltInAdmin seeds the built-in administrator when no user exists yet.
// It reports whether a user was created.
func (s *UserService) EnsureBuiltInAdmin(ctx context.Context, name, pin string) (user User, created bool, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EnsureBuiltInAdmin")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed built-in admin", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if created {
			logger.With("user_id", user.ID).InfoContext(ctx, "built-in admin seeded")
		}
	}()

	var count int
	count, err = s.users.CountUsers(ctx)
	if err != nil {
		return
	}
	if count > 0 {
		return
	}

	user, err = s.newUser(UserInput{Name: name, PIN: pin, IsAdmin: true}, true)
	if err != nil {
		return
	}

	user, err = s.users.CreateUser(ctx, user)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	created = true
	return
}

func (s *UserService) newUser(input UserInput, builtIn bool) (User, error) {
	vErr := &ValidationError{}
	name := validateName(vErr, "name", input.Name)
	if !ValidatePIN(input.PIN) {
		vErr.add("pin", fmt.Sprintf("pin must be %d digits", PINLength))
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPIN(input.PIN)
	if err != nil {
		return User{}, fmt.Errorf("hash pin: %w", err)
	}

	now := s.now()
	return User{
		ID:        s.idGenerator(),
		Name:      name,
		PINHash:   hash,
		IsAdmin:   input.IsAdmin || builtIn,
		BuiltIn:   builtIn,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *UserService) ensureUniqueName(ctx context.Context, name, selfID string) error {
	existing, err := s.users.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(mapUserRepoError(err), ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrAlreadyExists
	}
	return nil
}

func mapUserRepoError(err error) error {
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
		vErr.add("name", "name is invalid")
		return vErr
	}
	return err
}
