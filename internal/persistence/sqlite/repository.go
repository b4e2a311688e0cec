package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/shift-scheduler/internal/persistence"
)

// repository bundles the helpers every table repository needs.
type repository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	kind   string
}

func newRepository(pool *ConnectionPool, kind string) repository {
	return repository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		kind:   kind,
	}
}

// exec runs a write, retrying while the database is locked.
func (r repository) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, persistence.WrapStorageError(op, r.kind, err)
	}
	return result, nil
}

// execExpectingRow runs a write that must touch exactly one row.
func (r repository) execExpectingRow(ctx context.Context, op, query string, args ...any) error {
	result, err := r.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	n, err := rowsAffected(result)
	if err != nil {
		return persistence.WrapStorageError(op, r.kind, err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// inTx runs fn in one transaction, retrying the whole transaction while the
// database is locked.
func (r repository) inTx(ctx context.Context, op string, fn TransactionFunc) error {
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, fn)
	})
	return persistence.WrapStorageError(op, r.kind, err)
}

func (r repository) fail(op string, err error) error {
	return persistence.WrapStorageError(op, r.kind, r.mapper.MapError(err))
}
