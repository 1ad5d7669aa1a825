package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetledger/internal/models"
)

const DefaultOpTimeout = 5 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultOpTimeout
	}
	return context.WithTimeout(ctx, d)
}

// mutationError marks a timed-out mutation as having an unknown outcome:
// the store may have committed before the deadline was observed.
func mutationError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrOutcomeUnknown, err)
	}
	return err
}

// checkMagnitude rejects quantities and deltas that cannot be stored.
func checkMagnitude(what string, n int) error {
	if n > models.MaxQuantity || n < -models.MaxQuantity {
		return fmt.Errorf("%s %d exceeds %d: %w", what, n, models.MaxQuantity, models.ErrInvalidQuantity)
	}
	return nil
}

// detached returns a context for cleanup work that must run even when the
// caller's context has expired.
func detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return withTimeout(context.WithoutCancel(ctx), d)
}
