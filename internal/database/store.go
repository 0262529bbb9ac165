package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by callers that translate pgx.ErrNoRows.
var ErrNotFound = pgx.ErrNoRows

// Store is a Querier that can also run a function inside one transaction.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// SQLStore backs Store with a pgx pool.
type SQLStore struct {
	*Queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *SQLStore {
	return &SQLStore{Queries: New(pool), pool: pool}
}

// ExecTx runs fn in a transaction, committing when fn returns nil.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(Querier) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.ErrorContext(ctx, "Error rolling back transaction", slog.Any("rollback_error", rbErr), slog.Any("original_error", err))
			}
		} else if cmErr := tx.Commit(ctx); cmErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cmErr)
		}
	}()

	return fn(s.WithTx(tx))
}

// IsNotFound reports whether err means "no row matched".
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ Store = (*SQLStore)(nil)
