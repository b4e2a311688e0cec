package sqlite

import (
	"context"

	"github.com/example/shift-scheduler/internal/persistence"
)

const userColumns = `id, name, pin_hash, is_admin, built_in, created_at, updated_at`

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	repository
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{repository: newRepository(pool, "user")}
}

// CreateUser inserts a new user. Duplicate names yield persistence.ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PINHash == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&user.CreatedAt, &user.UpdatedAt)

	_, err := r.exec(ctx, "create", `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Name,
		user.PINHash,
		boolToInt(user.IsAdmin),
		boolToInt(user.BuiltIn),
		formatTimestamp(user.CreatedAt),
		formatTimestamp(user.UpdatedAt),
	)
	return err
}

// UpdateUser updates an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrNotFound
	}
	if user.PINHash == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(nil, &user.UpdatedAt)

	return r.execExpectingRow(ctx, "update", `
		UPDATE users
		SET name = ?, pin_hash = ?, is_admin = ?, built_in = ?, updated_at = ?
		WHERE id = ?
	`,
		user.Name,
		user.PINHash,
		boolToInt(user.IsAdmin),
		boolToInt(user.BuiltIn),
		formatTimestamp(user.UpdatedAt),
		user.ID,
	)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "id", id)
}

// GetUserByName retrieves a user by exact name.
func (r *UserRepository) GetUserByName(ctx context.Context, name string) (persistence.User, error) {
	if name == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "name", name)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (persistence.User, error) {
	user, err := scanUser(r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value))
	if err != nil {
		return persistence.User{}, r.fail("get", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by CreatedAt ascending.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, r.fail("list", err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, r.fail("list", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list", err)
	}

	return users, nil
}

// DeleteUser removes a user. Shifts they occupied become open again.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.execExpectingRow(ctx, "delete", `DELETE FROM users WHERE id = ?`, id)
}

// CountUsers returns the number of stored users.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, r.fail("count", err)
	}
	return count, nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                       persistence.User
		isAdmin, builtIn           int
		createdAtStr, updatedAtStr string
	)

	if err := row.Scan(&user.ID, &user.Name, &user.PINHash, &isAdmin, &builtIn, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.User{}, err
	}

	var err error
	user.IsAdmin = isAdmin == 1
	user.BuiltIn = builtIn == 1
	if user.CreatedAt, err = parseTimestamp("created_at", createdAtStr); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTimestamp("updated_at", updatedAtStr); err != nil {
		return persistence.User{}, err
	}

	return user, nil
}
