package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// Executor is the query surface shared by *pgxpool.Pool and pgx.Tx.
// Data-access functions take an Executor so the caller decides the
// transaction scope instead of the repository holding hidden state.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SQLSTATE codes Postgres raises when repeatable-read transactions collide.
// Callers may retry the whole transaction on shared.ErrConflict.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// MapConflict translates serialization and deadlock aborts into
// shared.ErrConflict so callers see the same retryable error as a stale
// version check. Other errors pass through unchanged.
func MapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected {
			return fmt.Errorf("platform/db: transaction aborted by concurrent writer: %w: %w", err, shared.ErrConflict)
		}
	}
	return err
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return MapConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MapConflict(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}
