package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"fleetledger/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxRunner_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	itemID, loc := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO stock_entries`)).
		WithArgs(itemID, loc, 2).
		WillReturnRows(pgxmock.NewRows([]string{"quantity", "version", "updated_at"}).AddRow(2, int64(1), time.Now()))
	mock.ExpectCommit()

	err = NewTxRunner(mock).RunInTx(context.Background(), func(tx Tx) error {
		_, err := tx.Repos().Stock.Adjust(context.Background(), itemID, loc, 2)
		return err
	})
	assert.NoError(t, err)
}

func TestTxRunner_RollbackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = NewTxRunner(mock).RunInTx(context.Background(), func(Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_SavepointFailureKeepsOuterTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	record := &models.TransferRecord{ID: uuid.New(), ItemID: uuid.New(), ToLocationID: uuid.New(), Quantity: 1}
	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transfer_records`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("audit insert failed"))
	mock.ExpectRollback()
	mock.ExpectCommit()

	var auditErr error
	err = NewTxRunner(mock).RunInTx(context.Background(), func(tx Tx) error {
		auditErr = tx.Savepoint(context.Background(), func(r Repositories) error {
			return r.Transfers.Create(context.Background(), record)
		})
		return nil
	})
	assert.NoError(t, err)
	assert.ErrorContains(t, auditErr, "audit insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_BeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err = NewTxRunner(mock).RunInTx(context.Background(), func(Tx) error { return nil })
	assert.ErrorContains(t, err, "begin transaction")
}
