package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/sqlite/migration"
)

// ConnectionPool owns the *sql.DB opened for a SQLiteConfig.
type ConnectionPool struct {
	db     *sql.DB
	config migration.SQLiteConfig
}

func NewConnectionPool(config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.NewConnectionManager(config).GetConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &ConnectionPool{db: db, config: config}, nil
}

func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

func (cp *ConnectionPool) Close() error {
	if cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc is the body of a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction commits when fn returns nil and rolls back on an error or a
// panic. The panic is re-raised after the rollback.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// QueryHelper runs single statements against the pool.
type QueryHelper struct {
	pool *ConnectionPool
}

func NewQueryHelper(pool *ConnectionPool) *QueryHelper {
	return &QueryHelper{pool: pool}
}

func (qh *QueryHelper) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qh.pool.db.QueryRowContext(ctx, query, args...)
}

func (qh *QueryHelper) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qh.pool.db.QueryContext(ctx, query, args...)
}

func (qh *QueryHelper) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qh.pool.db.ExecContext(ctx, query, args...)
}

// sqliteErrorClasses maps driver message fragments to persistence sentinels.
// modernc.org/sqlite reports constraint failures only through the message.
var sqliteErrorClasses = []struct {
	fragments []string
	target    error
}{
	{[]string{"UNIQUE constraint failed", "PRIMARY KEY constraint failed"}, persistence.ErrDuplicate},
	{[]string{"FOREIGN KEY constraint failed", "CHECK constraint failed", "NOT NULL constraint failed"}, persistence.ErrConstraintViolation},
}

// ErrorMapper translates driver errors into persistence sentinels.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError returns unknown errors unchanged.
func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	message := err.Error()
	for _, class := range sqliteErrorClasses {
		if containsAny(message, class.fragments...) {
			return fmt.Errorf("%w: %v", class.target, err)
		}
	}
	return err
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// RetryConfig bounds the exponential backoff used while SQLite is busy.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) next(delay time.Duration) time.Duration {
	grown := time.Duration(float64(delay) * c.BackoffFactor)
	if grown > c.MaxDelay {
		return c.MaxDelay
	}
	return grown
}

// RetryHelper re-runs operations that failed on a locked database.
type RetryHelper struct {
	config RetryConfig
	mapper *ErrorMapper
}

func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config, mapper: NewErrorMapper()}
}

type RetryableFunc func() error

// WithRetry returns the mapped error of the last attempt.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn RetryableFunc) error {
	delay := rh.config.InitialDelay
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isRetryableError(err) {
			return rh.mapper.MapError(err)
		}
		if attempt == rh.config.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = rh.config.next(delay)
	}
	return fmt.Errorf("operation failed after %d retries: %w", rh.config.MaxRetries, rh.mapper.MapError(err))
}

func isRetryableError(err error) bool {
	return err != nil && containsAny(err.Error(), "database is locked", "database table is locked", "SQLITE_BUSY")
}
