package acceptance

import (
	"context"
	"database/sql"
	"fmt"

	"assent/pkg/platform/tx"
)

// TxRunner draws the atomic boundary around the ledger insert and its audit
// outbox entry.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLTxRunner runs the function inside a database transaction carried through
// context, so tx-aware stores join it.
type SQLTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

func (r *SQLTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin acceptance transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit acceptance transaction: %w", err)
	}
	return nil
}

// NoopTxRunner backs the memory stores, which are individually atomic.
type NoopTxRunner struct{}

func (NoopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
