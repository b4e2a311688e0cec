package sqlite

import (
	"context"

	"github.com/example/shift-scheduler/internal/persistence"
)

const ruleColumns = `id, workplace, weekdays, start_time, end_time, end_date, created_at`

// RuleRepository implements persistence.RuleRepository using SQLite
type RuleRepository struct {
	repository
}

// NewRuleRepository creates a new SQLite recurring rule repository
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{repository: newRepository(pool, "rule")}
}

// CreateRule inserts a new recurring rule. Weekdays are stored as a bitmask.
func (r *RuleRepository) CreateRule(ctx context.Context, rule persistence.RecurringRule) error {
	if rule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&rule.CreatedAt, nil)

	_, err := r.exec(ctx, "create", `
		INSERT INTO recurring_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rule.ID,
		rule.Workplace,
		encodeWeekdays(rule.Weekdays),
		rule.StartTime.String(),
		rule.EndTime.String(),
		rule.EndDate.String(),
		formatTimestamp(rule.CreatedAt),
	)
	return err
}

// UpdateRule replaces the stored attributes of a rule. It does not touch the
// shifts the rule already generated.
func (r *RuleRepository) UpdateRule(ctx context.Context, rule persistence.RecurringRule) error {
	if rule.ID == "" {
		return persistence.ErrNotFound
	}

	return r.execExpectingRow(ctx, "update", `
		UPDATE recurring_rules
		SET workplace = ?, weekdays = ?, start_time = ?, end_time = ?, end_date = ?
		WHERE id = ?
	`,
		rule.Workplace,
		encodeWeekdays(rule.Weekdays),
		rule.StartTime.String(),
		rule.EndTime.String(),
		rule.EndDate.String(),
		rule.ID,
	)
}

// GetRule retrieves a rule by ID.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (persistence.RecurringRule, error) {
	if id == "" {
		return persistence.RecurringRule{}, persistence.ErrNotFound
	}

	rule, err := scanRule(r.helper.QueryRow(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ?`, id))
	if err != nil {
		return persistence.RecurringRule{}, r.fail("get", err)
	}
	return rule, nil
}

// ListRules returns all rules ordered by creation time.
func (r *RuleRepository) ListRules(ctx context.Context) ([]persistence.RecurringRule, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM recurring_rules
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, r.fail("list", err)
	}
	defer rows.Close()

	var rules []persistence.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.fail("list", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list", err)
	}

	return rules, nil
}

// DeleteRule removes a rule by ID. Generated shifts are left alone.
func (r *RuleRepository) DeleteRule(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.execExpectingRow(ctx, "delete", `DELETE FROM recurring_rules WHERE id = ?`, id)
}

func scanRule(row rowScanner) (persistence.RecurringRule, error) {
	var (
		rule                      persistence.RecurringRule
		weekdayMask               int64
		startStr, endStr, endDate string
		createdAtStr              string
	)

	if err := row.Scan(&rule.ID, &rule.Workplace, &weekdayMask, &startStr, &endStr, &endDate, &createdAtStr); err != nil {
		return persistence.RecurringRule{}, err
	}

	var err error
	rule.Weekdays = decodeWeekdays(weekdayMask)
	if rule.StartTime, err = parseTimeOfDay("start_time", startStr); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.EndTime, err = parseTimeOfDay("end_time", endStr); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.EndDate, err = parseDate("end_date", endDate); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.CreatedAt, err = parseTimestamp("created_at", createdAtStr); err != nil {
		return persistence.RecurringRule{}, err
	}

	return rule, nil
}
