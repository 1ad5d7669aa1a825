package repositories

import (
	"errors"
	"fmt"

	"fleetledger/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgNumericOutOfRange    = "22003"

	unitCodeConstraint = "individual_units_code_key"
)

// mapPgError translates Postgres failures into ledger sentinels, keeping the
// driver error in the chain.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		// Only unit codes are caller-chosen; any other key collision is a
		// conflicting write.
		if pgErr.ConstraintName == unitCodeConstraint {
			return fmt.Errorf("%w: %v", models.ErrDuplicateCode, err)
		}
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %v", models.ErrInvalidLocation, err)
	case pgCheckViolation:
		return fmt.Errorf("%w: %v", models.ErrInsufficientStock, err)
	case pgNumericOutOfRange:
		return fmt.Errorf("%w: %v", models.ErrInvalidQuantity, err)
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	}
	return err
}
