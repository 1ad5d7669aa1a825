package repositories

import (
	"errors"
	"testing"

	"fleetledger/internal/models"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	plain := errors.New("network down")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: pgx.ErrNoRows, want: models.ErrNotFound},
		{name: "unit code", in: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: unitCodeConstraint}, want: models.ErrDuplicateCode},
		{name: "primary key", in: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "locations_pkey"}, want: models.ErrConflict},
		{name: "foreign key", in: &pgconn.PgError{Code: pgForeignKeyViolation}, want: models.ErrInvalidLocation},
		{name: "check", in: &pgconn.PgError{Code: pgCheckViolation}, want: models.ErrInsufficientStock},
		{name: "out of range", in: &pgconn.PgError{Code: pgNumericOutOfRange}, want: models.ErrInvalidQuantity},
		{name: "serialization", in: &pgconn.PgError{Code: pgSerializationFailure}, want: models.ErrConflict},
		{name: "deadlock", in: &pgconn.PgError{Code: pgDeadlockDetected}, want: models.ErrConflict},
		{name: "other", in: plain, want: plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError(tt.in), tt.want)
		})
	}
	assert.NoError(t, mapPgError(nil))
	assert.NotErrorIs(t, mapPgError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "transfer_records_pkey"}), models.ErrDuplicateCode)
}
