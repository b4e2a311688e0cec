package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/persistence"
)

const shiftColumns = `id, date, start_time, end_time, position, occupant_id, auto_generated, rule_id, created_at, updated_at`

// ShiftRepository implements persistence.ShiftRepository using SQLite
type ShiftRepository struct {
	repository
}

// NewShiftRepository creates a new SQLite shift repository
func NewShiftRepository(pool *ConnectionPool) *ShiftRepository {
	return &ShiftRepository{repository: newRepository(pool, "shift")}
}

// CreateShift inserts a new shift.
func (r *ShiftRepository) CreateShift(ctx context.Context, shift persistence.Shift) error {
	if shift.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&shift.CreatedAt, &shift.UpdatedAt)

	_, err := r.exec(ctx, "create", `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		shift.ID,
		shift.Date.String(),
		shift.StartTime.String(),
		shift.EndTime.String(),
		shift.Position,
		nullString(shift.OccupantID),
		boolToInt(shift.AutoGenerated),
		nullString(shift.RuleID),
		formatTimestamp(shift.CreatedAt),
		formatTimestamp(shift.UpdatedAt),
	)
	return err
}

// UpdateShift replaces every mutable attribute of a shift, including its
// occupant and rule ownership.
func (r *ShiftRepository) UpdateShift(ctx context.Context, shift persistence.Shift) error {
	if shift.ID == "" {
		return persistence.ErrNotFound
	}
	stampTimes(nil, &shift.UpdatedAt)

	return r.execExpectingRow(ctx, "update", `
		UPDATE shifts
		SET date = ?, start_time = ?, end_time = ?, position = ?, occupant_id = ?,
		    auto_generated = ?, rule_id = ?, updated_at = ?
		WHERE id = ?
	`,
		shift.Date.String(),
		shift.StartTime.String(),
		shift.EndTime.String(),
		shift.Position,
		nullString(shift.OccupantID),
		boolToInt(shift.AutoGenerated),
		nullString(shift.RuleID),
		formatTimestamp(shift.UpdatedAt),
		shift.ID,
	)
}

// GetShift retrieves a shift by ID.
func (r *ShiftRepository) GetShift(ctx context.Context, id string) (persistence.Shift, error) {
	if id == "" {
		return persistence.Shift{}, persistence.ErrNotFound
	}

	shift, err := scanShift(r.helper.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id))
	if err != nil {
		return persistence.Shift{}, r.fail("get", err)
	}
	return shift, nil
}

// ListShifts returns shifts matching filter ordered by date, start time,
// position and ID. Both ends of the date range are inclusive.
func (r *ShiftRepository) ListShifts(ctx context.Context, filter persistence.ShiftFilter) ([]persistence.Shift, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.From != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.Position != "" {
		clauses = append(clauses, "position = ?")
		args = append(args, filter.Position)
	}
	if filter.RuleID != "" {
		clauses = append(clauses, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.OccupantID != "" {
		clauses = append(clauses, "occupant_id = ?")
		args = append(args, filter.OccupantID)
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date ASC, start_time ASC, position ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.fail("list", err)
	}
	defer rows.Close()

	var shifts []persistence.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, r.fail("list", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list", err)
	}

	return shifts, nil
}

// DeleteShift removes a shift by ID.
func (r *ShiftRepository) DeleteShift(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.execExpectingRow(ctx, "delete", `DELETE FROM shifts WHERE id = ?`, id)
}

// CountShiftsByPosition counts shifts whose position names the same
// workplace as name. Names compare case-insensitively after trimming, the
// same way workplace names are matched everywhere else.
func (r *ShiftRepository) CountShiftsByPosition(ctx context.Context, name string) (int, error) {
	rows, err := r.helper.Query(ctx, `SELECT position, COUNT(*) FROM shifts GROUP BY position`)
	if err != nil {
		return 0, r.fail("count", err)
	}
	defer rows.Close()

	want := strings.TrimSpace(name)
	total := 0
	for rows.Next() {
		var (
			position string
			count    int
		)
		if err := rows.Scan(&position, &count); err != nil {
			return 0, r.fail("count", err)
		}
		if strings.EqualFold(strings.TrimSpace(position), want) {
			total += count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, r.fail("count", err)
	}
	return total, nil
}

// AssignOccupant sets the occupant of an open shift.
func (r *ShiftRepository) AssignOccupant(ctx context.Context, shiftID, userID string, at time.Time) error {
	return r.conditionalUpdate(ctx, "assign", shiftID, `
		UPDATE shifts SET occupant_id = ?, updated_at = ?
		WHERE id = ? AND occupant_id IS NULL
	`, userID, formatTimestamp(at), shiftID)
}

// ClearOccupant empties a shift currently held by userID.
func (r *ShiftRepository) ClearOccupant(ctx context.Context, shiftID, userID string, at time.Time) error {
	return r.conditionalUpdate(ctx, "clear", shiftID, `
		UPDATE shifts SET occupant_id = NULL, updated_at = ?
		WHERE id = ? AND occupant_id = ?
	`, formatTimestamp(at), shiftID, userID)
}

// conditionalUpdate runs a guarded UPDATE. When no row matched, the existence
// check in the same transaction tells a missing shift (ErrNotFound) from a
// failed guard (ErrConflict).
func (r *ShiftRepository) conditionalUpdate(ctx context.Context, op, shiftID, query string, args ...any) error {
	return r.inTx(ctx, op, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := rowsAffected(result)
		if err != nil || n > 0 {
			return err
		}
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM shifts WHERE id = ?`, shiftID).Scan(&exists); err != nil {
			return err
		}
		return persistence.ErrConflict
	})
}

func scanShift(row rowScanner) (persistence.Shift, error) {
	var (
		shift                      persistence.Shift
		dateStr, startStr, endStr  string
		occupant, ruleID           sql.NullString
		autoGenerated              int
		createdAtStr, updatedAtStr string
	)

	if err := row.Scan(
		&shift.ID,
		&dateStr,
		&startStr,
		&endStr,
		&shift.Position,
		&occupant,
		&autoGenerated,
		&ruleID,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Shift{}, err
	}

	var err error
	if shift.Date, err = parseDate("date", dateStr); err != nil {
		return persistence.Shift{}, err
	}
	if shift.StartTime, err = parseTimeOfDay("start_time", startStr); err != nil {
		return persistence.Shift{}, err
	}
	if shift.EndTime, err = parseTimeOfDay("end_time", endStr); err != nil {
		return persistence.Shift{}, err
	}
	if shift.CreatedAt, err = parseTimestamp("created_at", createdAtStr); err != nil {
		return persistence.Shift{}, err
	}
	if shift.UpdatedAt, err = parseTimestamp("updated_at", updatedAtStr); err != nil {
		return persistence.Shift{}, err
	}
	shift.OccupantID = stringPtr(occupant)
	shift.RuleID = stringPtr(ruleID)
	shift.AutoGenerated = autoGenerated == 1

	return shift, nil
}
