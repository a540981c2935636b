package main

import (
	"context"
	"database/sql"
	"time"

	"provchain/internal/provenance/service"
	dErrors "provchain/pkg/domain-errors"
	txcontext "provchain/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// postgresTx commits one engine operation as a single database transaction.
// Stores pick the transaction out of the context, so the ledger append and
// the owner update are visible together or not at all.
type postgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTx(db *sql.DB) *postgresTx {
	return &postgresTx{db: db}
}

var _ service.TxRunner = (*postgresTx)(nil)

func (t *postgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
