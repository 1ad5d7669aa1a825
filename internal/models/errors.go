package models

import "errors"

// Ledger error taxonomy. Services wrap these with context; callers match
// them with errors.Is.
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidLocation   = errors.New("invalid location")
	ErrSameLocation      = errors.New("source and destination location are the same")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("concurrent modification, retry limit exhausted")
	ErrAuditWriteFailed  = errors.New("transfer record could not be written")
	ErrDuplicateCode     = errors.New("duplicate unit code")
	ErrInvalidCode       = errors.New("invalid unit code")
	ErrInvalidStatus     = errors.New("invalid unit status")
	ErrOutcomeUnknown    = errors.New("operation timed out, outcome unknown")

	ErrAllocationMismatch  = errors.New("allocated quantity does not match requested total")
	ErrExceedsAvailability = errors.New("allocation exceeds available quantity")
	ErrEmptyStocking       = errors.New("stocking allocation must place at least one unit")
	ErrInvalidMode         = errors.New("invalid mode")
)

// IsValidationError reports whether err is a caller error that should be
// surfaced as a validation message.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, ErrSameLocation) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrAllocationMismatch) ||
		errors.Is(err, ErrExceedsAvailability) ||
		errors.Is(err, ErrEmptyStocking) ||
		errors.Is(err, ErrInvalidMode)
}
