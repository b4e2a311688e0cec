package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/persistence"
)

var referenceNow = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return referenceNow }

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type workplaceRepoStub struct {
	items     []Workplace
	createErr error
	deleteErr error
	deleted   []string
}

func (r *workplaceRepoStub) CreateWorkplace(ctx context.Context, workplace Workplace) (Workplace, error) {
	if r.createErr != nil {
		return Workplace{}, r.createErr
	}
	r.items = append(r.items, workplace)
	return workplace, nil
}

func (r *workplaceRepoStub) GetWorkplace(ctx context.Context, id string) (Workplace, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Workplace{}, persistence.ErrNotFound
}

func (r *workplaceRepoStub) UpdateWorkplace(ctx context.Context, workplace Workplace) (Workplace, error) {
	for i, item := range r.items {
		if item.ID == workplace.ID {
			r.items[i] = workplace
			return workplace, nil
		}
	}
	return Workplace{}, persistence.ErrNotFound
}

func (r *workplaceRepoStub) DeleteWorkplace(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *workplaceRepoStub) ListWorkplaces(ctx context.Context) ([]Workplace, error) {
	if len(r.items) == 0 {
		return nil, nil
	}
	out := make([]Workplace, len(r.items))
	copy(out, r.items)
	return out, nil
}

// shiftRepoStub keeps shifts in insertion order. failCreate and failDelete
// make individual writes fail by shift id.
type shiftRepoStub struct {
	items      []Shift
	failCreate map[string]error
	failDelete map[string]error
	listErr    error
	queries    []ShiftQuery
}

func (r *shiftRepoStub) CreateShift(ctx context.Context, shift Shift) (Shift, error) {
	if err := r.failCreate[shift.ID]; err != nil {
		return Shift{}, err
	}
	r.items = append(r.items, shift)
	return shift, nil
}

func (r *shiftRepoStub) GetShift(ctx context.Context, id string) (Shift, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Shift{}, persistence.ErrNotFound
}

func (r *shiftRepoStub) UpdateShift(ctx context.Context, shift Shift) (Shift, error) {
	for i, item := range r.items {
		if item.ID == shift.ID {
			r.items[i] = shift
			return shift, nil
		}
	}
	return Shift{}, persistence.ErrNotFound
}

func (r *shiftRepoStub) DeleteShift(ctx context.Context, id string) error {
	if err := r.failDelete[id]; err != nil {
		return err
	}
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *shiftRepoStub) ListShifts(ctx context.Context, query ShiftQuery) ([]Shift, error) {
	r.queries = append(r.queries, query)
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Shift
	for _, item := range r.items {
		if query.From != nil && item.Date.Before(*query.From) {
			continue
		}
		if query.To != nil && item.Date.After(*query.To) {
			continue
		}
		if query.Position != "" && item.Position != query.Position {
			continue
		}
		if query.RuleID != "" && item.RuleID != query.RuleID {
			continue
		}
		if query.OccupantID != "" && item.OccupantID != query.OccupantID {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *shiftRepoStub) CountShiftsByPosition(ctx context.Context, position string) (int, error) {
	count := 0
	for _, item := range r.items {
		if sameName(item.Position, position) {
			count++
		}
	}
	return count, nil
}

func (r *shiftRepoStub) AssignOccupant(ctx context.Context, shiftID, userID string, at time.Time) error {
	for i, item := range r.items {
		if item.ID != shiftID {
			continue
		}
		if item.OccupantID != "" {
			return persistence.ErrConflict
		}
		r.items[i].OccupantID = userID
		r.items[i].UpdatedAt = at
		return nil
	}
	return persistence.ErrNotFound
}

func (r *shiftRepoStub) ClearOccupant(ctx context.Context, shiftID, userID string, at time.Time) error {
	for i, item := range r.items {
		if item.ID != shiftID {
			continue
		}
		if item.OccupantID != userID {
			return persistence.ErrConflict
		}
		r.items[i].OccupantID = ""
		r.items[i].UpdatedAt = at
		return nil
	}
	return persistence.ErrNotFound
}

type ruleRepoStub struct {
	items   []RecurringRule
	deleted []string
}

func (r *ruleRepoStub) CreateRule(ctx context.Context, rule RecurringRule) (RecurringRule, error) {
	r.items = append(r.items, rule)
	return rule, nil
}

func (r *ruleRepoStub) GetRule(ctx context.Context, id string) (RecurringRule, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return RecurringRule{}, persistence.ErrNotFound
}

func (r *ruleRepoStub) DeleteRule(ctx context.Context, id string) error {
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *ruleRepoStub) ListRules(ctx context.Context) ([]RecurringRule, error) {
	out := make([]RecurringRule, len(r.items))
	copy(out, r.items)
	return out, nil
}

type userRepoStub struct {
	items []User
}

func (r *userRepoStub) CreateUser(ctx context.Context, user User) (User, error) {
	for _, item := range r.items {
		if item.Name == user.Name {
			return User{}, persistence.ErrDuplicate
		}
	}
	r.items = append(r.items, user)
	return user, nil
}

func (r *userRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (r *userRepoStub) GetUserByName(ctx context.Context, name string) (User, error) {
	for _, item := range r.items {
		if strings.EqualFold(item.Name, name) {
			return item, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (r *userRepoStub) UpdateUser(ctx context.Context, user User) (User, error) {
	for i, item := range r.items {
		if item.ID == user.ID {
			r.items[i] = user
			return user, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (r *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *userRepoStub) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *userRepoStub) CountUsers(ctx context.Context) (int, error) {
	return len(r.items), nil
}

// plainHash stands in for argon2 so tests stay fast.
func plainHash(pin string) (string, error) { return "hash:" + pin, nil }

func plainVerify(hash, pin string) error {
	if hash != "hash:"+pin {
		return ErrInvalidCredentials
	}
	return nil
}

var (
	admin    = Principal{UserID: "admin-1", IsAdmin: true}
	employee = Principal{UserID: "user-1"}
)
