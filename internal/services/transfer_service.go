package services

import (
	"context"
	"fmt"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TransferService interface {
	Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error)
	ListTransfers(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.TransferRecord, error)
}

type transferService struct {
	mover     *stockMover
	transfers repositories.TransferRecordRepository
	locations LocationService
	now       func() time.Time
	logger    zerolog.Logger
}

// NewTransferService builds the orchestrator. A nil txRunner selects
// compensating rollback instead of a transaction.
func NewTransferService(repos repositories.Repositories, txRunner repositories.TxRunner, locations LocationService, cache caching.CacheService, opTimeout time.Duration, logger zerolog.Logger) TransferService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	logger = logger.With().Str("component", "transfers").Logger()
	return &transferService{
		mover: &stockMover{
			repos:     repos,
			txRunner:  txRunner,
			cache:     cache,
			opTimeout: opTimeout,
			logger:    logger,
		},
		transfers: repos.Transfers,
		locations: locations,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

func (s *transferService) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("transfer quantity %d: %w", req.Quantity, models.ErrInvalidQuantity)
	}
	if err := checkMagnitude("transfer quantity", req.Quantity); err != nil {
		return nil, err
	}
	if req.FromLocationID != nil && *req.FromLocationID == req.ToLocationID {
		return nil, fmt.Errorf("location %s: %w", req.ToLocationID, models.ErrSameLocation)
	}
	if err := requireActive(ctx, s.locations, req.ToLocationID); err != nil {
		return nil, err
	}

	moves := make([]stockMove, 0, 2)
	if req.FromLocationID != nil {
		if err := requireExists(ctx, s.locations, *req.FromLocationID); err != nil {
			return nil, err
		}
		moves = append(moves, stockMove{ItemID: req.ItemID, LocationID: *req.FromLocationID, Delta: -req.Quantity})
	}
	moves = append(moves, stockMove{ItemID: req.ItemID, LocationID: req.ToLocationID, Delta: req.Quantity})

	record := &models.TransferRecord{
		ID:             uuid.New(),
		ItemID:         req.ItemID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Quantity:       req.Quantity,
		OccurredAt:     s.now(),
		Notes:          req.Notes,
		Actor:          req.Actor,
	}

	res, err := s.mover.apply(ctx, moves, []*models.TransferRecord{record})
	if err != nil {
		s.logger.Info().Err(err).
			Str("item_id", req.ItemID.String()).
			Str("to_location_id", req.ToLocationID.String()).
			Int("quantity", req.Quantity).
			Msg("transfer rejected")
		return nil, err
	}

	result := &models.TransferResult{Record: record}
	if res.auditErr != nil {
		record.ID = uuid.Nil
		result.Degraded = true
		result.AuditErr = fmt.Errorf("%w: %v", models.ErrAuditWriteFailed, res.auditErr)
		s.logger.Warn().Err(res.auditErr).
			Str("item_id", req.ItemID.String()).
			Str("to_location_id", req.ToLocationID.String()).
			Int("quantity", req.Quantity).
			Msg("transfer applied but audit record was not written")
		return result, nil
	}

	s.logger.Info().
		Str("transfer_id", record.ID.String()).
		Str("item_id", req.ItemID.String()).
		Str("to_location_id", req.ToLocationID.String()).
		Int("quantity", req.Quantity).
		Msg("transfer applied")
	return result, nil
}

func (s *transferService) ListTransfers(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.TransferRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.transfers.ListByItem(ctx, itemID, limit, offset)
}
