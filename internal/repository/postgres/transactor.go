package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/graphetch/graphetch/internal/domain/auth"
)

// Transactor runs a function inside a single database transaction. The tx is
// carried in the context so repository calls made within fn share it; nested
// WithTx calls join the outer transaction.
var _ auth.Transactor = (*Transactor)(nil)

type Transactor struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactor(db *DB, logger *zap.Logger) *Transactor {
	return &Transactor{db: db, logger: logger}
}

func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	if _, err := extractTx(ctx); err == nil {
		return fn(ctx)
	}

	tx, err := t.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ctxWithTx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if txErr != nil {
			if err := tx.Rollback(ctxWithTx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				t.logger.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := tx.Commit(ctxWithTx); err != nil {
			t.logger.Error("commit", zap.Error(err))
			txErr = fmt.Errorf("commit tx: %w", err)
		}
	}()

	return fn(ctxWithTx)
}

type txKey struct{}

var ErrTxNotFound = errors.New("tx not found in context")

func extractTx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// execQueryer resolves to the in-flight transaction when one is in the
// context, the pool otherwise.
func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, err := extractTx(ctx); err == nil && tx != nil {
		return tx
	}
	return db.Pool
}
