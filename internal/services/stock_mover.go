package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stockMove struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Delta      int
}

// stockMover applies a set of stock moves as one unit of work. With a
// TxRunner every move runs in one transaction; without one, applied moves
// are reversed when a later move fails.
type stockMover struct {
	repos     repositories.Repositories
	txRunner  repositories.TxRunner
	cache     caching.CacheService
	opTimeout time.Duration
	logger    zerolog.Logger
}

// moveResult carries the outcome of the record append that follows the moves.
type moveResult struct {
	auditErr error
}

// apply runs moves and then appends records. A failed record write never
// undoes the moves; it is reported in moveResult.auditErr instead.
func (m *stockMover) apply(ctx context.Context, moves []stockMove, records []*models.TransferRecord) (moveResult, error) {
	ctx, cancel := withTimeout(ctx, m.opTimeout)
	defer cancel()

	var (
		res moveResult
		err error
	)
	if m.txRunner != nil {
		res, err = m.applyInTx(ctx, moves, records)
	} else {
		res, err = m.applyWithCompensation(ctx, moves, records)
	}
	if err != nil {
		return moveResult{}, mutationError(ctx, err)
	}

	m.invalidate(ctx, moves)
	return res, nil
}

func (m *stockMover) applyInTx(ctx context.Context, moves []stockMove, records []*models.TransferRecord) (moveResult, error) {
	var res moveResult
	err := m.txRunner.RunInTx(ctx, func(tx repositories.Tx) error {
		stock := tx.Repos().Stock
		for _, mv := range lockOrder(moves) {
			if _, err := stock.Adjust(ctx, mv.ItemID, mv.LocationID, mv.Delta); err != nil {
				return err
			}
		}
		if len(records) > 0 {
			res.auditErr = tx.Savepoint(ctx, func(r repositories.Repositories) error {
				return appendRecords(ctx, r.Transfers, records)
			})
		}
		return nil
	})
	if err != nil {
		return moveResult{}, err
	}
	return res, nil
}

func (m *stockMover) applyWithCompensation(ctx context.Context, moves []stockMove, records []*models.TransferRecord) (moveResult, error) {
	applied := make([]stockMove, 0, len(moves))
	for _, mv := range debitsFirst(moves) {
		if _, err := m.repos.Stock.Adjust(ctx, mv.ItemID, mv.LocationID, mv.Delta); err != nil {
			if compErr := m.compensate(ctx, applied); compErr != nil {
				return moveResult{}, fmt.Errorf("%w (compensation failed: %v)", err, compErr)
			}
			return moveResult{}, err
		}
		applied = append(applied, mv)
	}
	if len(records) == 0 {
		return moveResult{}, nil
	}
	return moveResult{auditErr: appendRecords(ctx, m.repos.Transfers, records)}, nil
}

// compensate reverses applied moves newest first. It runs on a detached
// context so an expired request still gets its state restored.
func (m *stockMover) compensate(ctx context.Context, applied []stockMove) error {
	if len(applied) == 0 {
		return nil
	}
	cctx, cancel := detached(ctx, m.opTimeout)
	defer cancel()

	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		mv := applied[i]
		if _, err := m.repos.Stock.Adjust(cctx, mv.ItemID, mv.LocationID, -mv.Delta); err != nil {
			m.logger.Error().Err(err).
				Str("item_id", mv.ItemID.String()).
				Str("location_id", mv.LocationID.String()).
				Int("delta", -mv.Delta).
				Msg("compensating stock move failed, manual correction required")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// invalidate bumps each touched item's stock generation once.
func (m *stockMover) invalidate(ctx context.Context, moves []stockMove) {
	seen := make(map[uuid.UUID]bool, len(moves))
	for _, mv := range moves {
		if seen[mv.ItemID] {
			continue
		}
		seen[mv.ItemID] = true
		generation, err := m.cache.InvalidateStock(ctx, mv.ItemID)
		if err != nil {
			m.logger.Warn().Err(err).
				Str("item_id", mv.ItemID.String()).
				Msg("stock cache invalidation failed")
			continue
		}
		m.logger.Trace().Str("item_id", mv.ItemID.String()).Int64("generation", generation).Msg("stock generation bumped")
	}
}

func appendRecords(ctx context.Context, repo repositories.TransferRecordRepository, records []*models.TransferRecord) error {
	for _, rec := range records {
		if err := repo.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// lockOrder sorts moves by location then item so concurrent transactions
// take row locks in the same order.
func lockOrder(moves []stockMove) []stockMove {
	sorted := append([]stockMove(nil), moves...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.LocationID != b.LocationID {
			return a.LocationID.String() < b.LocationID.String()
		}
		return a.ItemID.String() < b.ItemID.String()
	})
	return sorted
}

// debitsFirst orders moves so every debit, which can fail on stock, runs
// before any credit.
func debitsFirst(moves []stockMove) []stockMove {
	sorted := append([]stockMove(nil), moves...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Delta < 0 && sorted[j].Delta >= 0
	})
	return sorted
}
