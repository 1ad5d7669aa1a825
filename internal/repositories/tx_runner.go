package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxRunner runs fn with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is an open unit of work.
type Tx interface {
	Repos() Repositories
	// Savepoint runs fn in a nested transaction. A failure inside fn only
	// discards fn's writes; the outer transaction stays usable.
	Savepoint(ctx context.Context, fn func(repos Repositories) error) error
}

type pgTxRunner struct {
	db TxBeginner
}

func NewTxRunner(db TxBeginner) TxRunner {
	return &pgTxRunner{db: db}
}

func (r *pgTxRunner) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapPgError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapPgError(err))
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Repos() Repositories {
	return NewRepositories(t.tx)
}

func (t *pgTx) Savepoint(ctx context.Context, fn func(repos Repositories) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", mapPgError(err))
	}
	if err := fn(NewRepositories(sp)); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", mapPgError(err))
	}
	return nil
}
