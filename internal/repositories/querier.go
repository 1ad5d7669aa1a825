package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools, so every
// repository can run on a pool or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a Querier that can open a transaction.
type TxBeginner interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories groups the ledger repositories bound to one Querier.
type Repositories struct {
	Locations LocationRepository
	Stock     StockRepository
	Transfers TransferRecordRepository
	Units     UnitRepository
}

// NewRepositories binds every Postgres repository to q.
func NewRepositories(q Querier) Repositories {
	return Repositories{
		Locations: NewLocationRepo(q),
		Stock:     NewStockRepo(q),
		Transfers: NewTransferRecordRepo(q),
		Units:     NewUnitRepo(q),
	}
}
