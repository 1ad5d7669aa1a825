package services

import (
	"context"
	"errors"
	"sync"

	"fleetledger/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type viewKey struct {
	item     uuid.UUID
	location uuid.UUID
}

type viewCell struct {
	quantity int
	pending  int
}

// SpeculativeLedger keeps a local view of quantities for optimistic display.
// Adjust shows the delta immediately, then settles the view on the value the
// ledger returned or reverts it when the ledger rejected the change.
type SpeculativeLedger struct {
	ledger LedgerService
	logger zerolog.Logger

	mu   sync.Mutex
	view map[viewKey]*viewCell
}

func NewSpeculativeLedger(ledger LedgerService, logger zerolog.Logger) *SpeculativeLedger {
	return &SpeculativeLedger{
		ledger: ledger,
		logger: logger.With().Str("component", "speculative_ledger").Logger(),
		view:   make(map[viewKey]*viewCell),
	}
}

// View returns the locally displayed quantity and the number of in-flight
// adjustments for the cell. ok is false when the cell was never loaded.
func (s *SpeculativeLedger) View(itemID, locationID uuid.UUID) (quantity, pending int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.view[viewKey{itemID, locationID}]
	if !ok {
		return 0, 0, false
	}
	return cell.quantity, cell.pending, true
}

// Load replaces the local view of a cell with the ledger's value.
func (s *SpeculativeLedger) Load(ctx context.Context, itemID, locationID uuid.UUID) (int, error) {
	entry, err := s.ledger.GetEntry(ctx, itemID, locationID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cell := s.cell(viewKey{itemID, locationID})
	if cell.pending == 0 {
		cell.quantity = entry.Quantity
	}
	return cell.quantity, nil
}

func (s *SpeculativeLedger) Adjust(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error) {
	key := viewKey{itemID, locationID}

	s.mu.Lock()
	cell := s.cell(key)
	cell.quantity += delta
	cell.pending++
	s.mu.Unlock()

	entry, err := s.ledger.Adjust(ctx, itemID, locationID, delta)

	s.mu.Lock()
	cell.pending--
	switch {
	case err == nil:
		if cell.pending == 0 {
			cell.quantity = entry.Quantity
		}
	case errors.Is(err, models.ErrOutcomeUnknown):
		// The change may have landed; only a fresh read can tell.
		delete(s.view, key)
	default:
		cell.quantity -= delta
	}
	s.mu.Unlock()

	if errors.Is(err, models.ErrOutcomeUnknown) {
		s.logger.Warn().Err(err).
			Str("item_id", itemID.String()).
			Str("location_id", locationID.String()).
			Msg("speculative adjust outcome unknown, view dropped")
		rctx, cancel := detached(ctx, DefaultOpTimeout)
		defer cancel()
		if _, lerr := s.Load(rctx, itemID, locationID); lerr != nil {
			s.logger.Warn().Err(lerr).Msg("speculative view reload failed")
		}
	}
	return entry, err
}

func (s *SpeculativeLedger) cell(key viewKey) *viewCell {
	cell, ok := s.view[key]
	if !ok {
		cell = &viewCell{}
		s.view[key] = cell
	}
	return cell
}
