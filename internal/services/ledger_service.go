package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerService holds quantity-per-location state. Adjust is the only
// mutation safe for concurrent callers; SetQuantity is an absolute override.
type LedgerService interface {
	GetQuantity(ctx context.Context, itemID, locationID uuid.UUID) (int, error)
	GetEntry(ctx context.Context, itemID, locationID uuid.UUID) (*models.StockEntry, error)
	SetQuantity(ctx context.Context, itemID, locationID uuid.UUID, quantity int) (*models.StockEntry, error)
	Adjust(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error)
	AdjustWithReason(ctx context.Context, itemID, locationID uuid.UUID, delta int, reason string) (*models.StockEntry, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) (map[uuid.UUID]int, error)
	TotalForItem(ctx context.Context, itemID uuid.UUID) (int, error)
	ItemStock(ctx context.Context, itemID uuid.UUID) (*models.ItemStock, error)
	BulkAdjust(ctx context.Context, req *models.StockBulkAdjust) (*models.BulkOperationResult, error)
}

type LedgerOptions struct {
	OpTimeout time.Duration
	StockTTL  time.Duration // display breakdown cache only
}

type ledgerService struct {
	stock     repositories.StockRepository
	locations LocationService
	cache     caching.CacheService
	opts      LedgerOptions
	logger    zerolog.Logger
}

func NewLedgerService(stock repositories.StockRepository, locations LocationService, cache caching.CacheService, opts LedgerOptions, logger zerolog.Logger) LedgerService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	return &ledgerService{
		stock:     stock,
		locations: locations,
		cache:     cache,
		opts:      opts,
		logger:    logger.With().Str("component", "ledger").Logger(),
	}
}

func (s *ledgerService) GetQuantity(ctx context.Context, itemID, locationID uuid.UUID) (int, error) {
	entry, err := s.GetEntry(ctx, itemID, locationID)
	if err != nil {
		return 0, err
	}
	return entry.Quantity, nil
}

// GetEntry returns a zero entry when the item was never stocked at the location.
func (s *ledgerService) GetEntry(ctx context.Context, itemID, locationID uuid.UUID) (*models.StockEntry, error) {
	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	entry, err := s.stock.Get(ctx, itemID, locationID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.StockEntry{ItemID: itemID, LocationID: locationID}, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) SetQuantity(ctx context.Context, itemID, locationID uuid.UUID, quantity int) (*models.StockEntry, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}
	if err := checkMagnitude("quantity", quantity); err != nil {
		return nil, err
	}
	if err := requireExists(ctx, s.locations, locationID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	entry, err := s.stock.Set(ctx, itemID, locationID, quantity)
	if err != nil {
		return nil, mutationError(ctx, err)
	}
	s.invalidate(ctx, itemID, locationID)
	s.logger.Info().
		Str("item_id", itemID.String()).
		Str("location_id", locationID.String()).
		Int("quantity", entry.Quantity).
		Msg("stock set")
	return entry, nil
}

// Adjust applies delta atomically in the store. Credits need an active
// location; debits only need the location to exist.
func (s *ledgerService) Adjust(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error) {
	return s.AdjustWithReason(ctx, itemID, locationID, delta, "")
}

// AdjustWithReason is Adjust with a free-text reason; a non-empty reason is
// logged at info level with the resulting quantity.
func (s *ledgerService) AdjustWithReason(ctx context.Context, itemID, locationID uuid.UUID, delta int, reason string) (*models.StockEntry, error) {
	if delta == 0 {
		return s.GetEntry(ctx, itemID, locationID)
	}
	if err := checkMagnitude("delta", delta); err != nil {
		return nil, err
	}
	check := requireExists
	if delta > 0 {
		check = requireActive
	}
	if err := check(ctx, s.locations, locationID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	entry, err := s.stock.Adjust(ctx, itemID, locationID, delta)
	if err != nil {
		return nil, mutationError(ctx, err)
	}
	s.invalidate(ctx, itemID, locationID)
	ev := s.logger.Debug()
	if reason != "" {
		ev = s.logger.Info().Str("reason", reason)
	}
	ev.Str("item_id", itemID.String()).
		Str("location_id", locationID.String()).
		Int("delta", delta).
		Int("quantity", entry.Quantity).
		Msg("stock adjusted")
	return entry, nil
}

// ListByItem always reads the store; use it before planning a mutation.
func (s *ledgerService) ListByItem(ctx context.Context, itemID uuid.UUID) (map[uuid.UUID]int, error) {
	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	entries, err := s.stock.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(entries))
	for _, e := range entries {
		if e.Quantity > 0 {
			out[e.LocationID] = e.Quantity
		}
	}
	return out, nil
}

func (s *ledgerService) TotalForItem(ctx context.Context, itemID uuid.UUID) (int, error) {
	byLocation, err := s.ListByItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, q := range byLocation {
		total += q
	}
	return total, nil
}

// ItemStock is the display breakdown. It may be served from cache and must
// not feed a mutation. A cached breakdown is only served while the item's
// stock generation still matches the one it was read under.
func (s *ledgerService) ItemStock(ctx context.Context, itemID uuid.UUID) (*models.ItemStock, error) {
	useCache := s.opts.StockTTL > 0
	var generation int64
	if useCache {
		var err error
		if generation, err = s.cache.StockGeneration(ctx, itemID); err != nil {
			s.logger.Warn().Err(err).Str("item_id", itemID.String()).Msg("stock generation read failed")
			useCache = false
		}
	}
	if useCache {
		cached, cachedGen, err := s.cache.GetItemStock(ctx, itemID)
		if err != nil {
			s.logger.Warn().Err(err).Str("item_id", itemID.String()).Msg("stock cache read failed")
		}
		if cached != nil && cachedGen == generation {
			return cached, nil
		}
		if cached != nil {
			s.logger.Debug().
				Str("item_id", itemID.String()).
				Int64("cached_generation", cachedGen).
				Int64("generation", generation).
				Msg("discarding stale stock breakdown")
		}
	}

	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	entries, err := s.stock.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	stock := &models.ItemStock{ItemID: itemID, Locations: make([]models.LocationQuantity, 0, len(entries))}
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		stock.Locations = append(stock.Locations, models.LocationQuantity{LocationID: e.LocationID, Quantity: e.Quantity})
		stock.Total += e.Quantity
	}

	if useCache {
		if err := s.cache.SetItemStock(ctx, stock, generation, s.opts.StockTTL); err != nil {
			s.logger.Warn().Err(err).Str("item_id", itemID.String()).Msg("stock cache write failed")
		}
	}
	return stock, nil
}

// BulkAdjust applies each adjustment on its own. In strict mode the first
// failure stops the batch and the remaining rows are skipped; adjustments
// already applied stay applied.
func (s *ledgerService) BulkAdjust(ctx context.Context, req *models.StockBulkAdjust) (*models.BulkOperationResult, error) {
	if req == nil || len(req.Adjustments) == 0 {
		return nil, fmt.Errorf("no adjustments: %w", models.ErrInvalidQuantity)
	}
	mode := req.ValidationMode
	if mode == "" {
		mode = models.ValidationModeStrict
	}
	if mode != models.ValidationModeStrict && mode != models.ValidationModeSkipInvalid {
		return nil, fmt.Errorf("validation mode %q: %w", mode, models.ErrInvalidMode)
	}

	result := models.NewBulkOperationResult(len(req.Adjustments))
	stopped := false
	for i, adj := range req.Adjustments {
		key := adj.ItemID.String() + "@" + adj.LocationID.String()
		if stopped {
			result.Skip(i, key)
			continue
		}
		if _, err := s.AdjustWithReason(ctx, adj.ItemID, adj.LocationID, adj.Delta, adj.Reason); err != nil {
			result.Fail(i, key, err)
			if mode == models.ValidationModeStrict {
				stopped = true
			}
			continue
		}
		result.Succeed(i, key)
	}
	result.Finish()

	s.logger.Info().
		Str("operation_id", result.OperationID).
		Int("processed", result.ProcessedItems).
		Int("failed", result.FailedItems).
		Msg("bulk adjust finished")
	return result, nil
}

func (s *ledgerService) invalidate(ctx context.Context, itemID, locationID uuid.UUID) {
	generation, err := s.cache.InvalidateStock(ctx, itemID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("item_id", itemID.String()).
			Str("location_id", locationID.String()).
			Msg("stock cache invalidation failed")
		return
	}
	s.logger.Trace().Str("item_id", itemID.String()).Int64("generation", generation).Msg("stock generation bumped")
}
