package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/shift-scheduler/internal/persistence"
)

const workplaceColumns = `id, name, has_fixed_hours, start_time, end_time, created_at, updated_at`

// WorkplaceRepository implements persistence.WorkplaceRepository using SQLite
type WorkplaceRepository struct {
	repository
}

// NewWorkplaceRepository creates a new SQLite workplace repository
func NewWorkplaceRepository(pool *ConnectionPool) *WorkplaceRepository {
	return &WorkplaceRepository{repository: newRepository(pool, "workplace")}
}

// CreateWorkplace inserts a new workplace.
func (r *WorkplaceRepository) CreateWorkplace(ctx context.Context, workplace persistence.Workplace) error {
	if workplace.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&workplace.CreatedAt, &workplace.UpdatedAt)

	_, err := r.exec(ctx, "create", `
		INSERT INTO workplaces (`+workplaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		workplace.ID,
		workplace.Name,
		boolToInt(workplace.HasFixedHours),
		nullTimeOfDay(workplace.StartTime),
		nullTimeOfDay(workplace.EndTime),
		formatTimestamp(workplace.CreatedAt),
		formatTimestamp(workplace.UpdatedAt),
	)
	return err
}

// UpdateWorkplace replaces the mutable attributes of a workplace.
func (r *WorkplaceRepository) UpdateWorkplace(ctx context.Context, workplace persistence.Workplace) error {
	if workplace.ID == "" {
		return persistence.ErrNotFound
	}
	stampTimes(nil, &workplace.UpdatedAt)

	return r.execExpectingRow(ctx, "update", `
		UPDATE workplaces
		SET name = ?, has_fixed_hours = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ?
	`,
		workplace.Name,
		boolToInt(workplace.HasFixedHours),
		nullTimeOfDay(workplace.StartTime),
		nullTimeOfDay(workplace.EndTime),
		formatTimestamp(workplace.UpdatedAt),
		workplace.ID,
	)
}

// GetWorkplace retrieves a workplace by ID.
func (r *WorkplaceRepository) GetWorkplace(ctx context.Context, id string) (persistence.Workplace, error) {
	if id == "" {
		return persistence.Workplace{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+workplaceColumns+` FROM workplaces WHERE id = ?`, id)
	workplace, err := scanWorkplace(row)
	if err != nil {
		return persistence.Workplace{}, r.fail("get", err)
	}
	return workplace, nil
}

// ListWorkplaces returns all workplaces ordered by name then ID.
func (r *WorkplaceRepository) ListWorkplaces(ctx context.Context) ([]persistence.Workplace, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+workplaceColumns+`
		FROM workplaces
		ORDER BY name COLLATE NOCASE ASC, id ASC
	`)
	if err != nil {
		return nil, r.fail("list", err)
	}
	defer rows.Close()

	var workplaces []persistence.Workplace
	for rows.Next() {
		workplace, err := scanWorkplace(rows)
		if err != nil {
			return nil, r.fail("list", err)
		}
		workplaces = append(workplaces, workplace)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list", err)
	}

	return workplaces, nil
}

// DeleteWorkplace removes a workplace by ID. Reference checks belong to the caller.
func (r *WorkplaceRepository) DeleteWorkplace(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.execExpectingRow(ctx, "delete", `DELETE FROM workplaces WHERE id = ?`, id)
}

func scanWorkplace(row rowScanner) (persistence.Workplace, error) {
	var (
		workplace                  persistence.Workplace
		fixed                      int
		start, end                 sql.NullString
		createdAtStr, updatedAtStr string
	)

	if err := row.Scan(&workplace.ID, &workplace.Name, &fixed, &start, &end, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.Workplace{}, err
	}

	var err error
	workplace.HasFixedHours = fixed == 1
	if workplace.StartTime, err = timeOfDayPtr("start_time", start); err != nil {
		return persistence.Workplace{}, err
	}
	if workplace.EndTime, err = timeOfDayPtr("end_time", end); err != nil {
		return persistence.Workplace{}, err
	}
	if workplace.CreatedAt, err = parseTimestamp("created_at", createdAtStr); err != nil {
		return persistence.Workplace{}, err
	}
	if workplace.UpdatedAt, err = parseTimestamp("updated_at", updatedAtStr); err != nil {
		return persistence.Workplace{}, err
	}

	return workplace, nil
}
