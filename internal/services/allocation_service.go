package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fleetledger/internal/allocation"
	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AllocationService feeds the planner with fresh availability and commits
// reviewed allocations to the ledger.
type AllocationService interface {
	Propose(ctx context.Context, itemID uuid.UUID, total int, existing []models.Allocation) (*models.AllocationPlan, error)
	Commit(ctx context.Context, req *models.AllocationRequest) (*models.AllocationCommitResult, error)
}

type allocationService struct {
	ledger    LedgerService
	locations LocationService
	mover     *stockMover
	now       func() time.Time
	logger    zerolog.Logger
}

func NewAllocationService(ledger LedgerService, locations LocationService, repos repositories.Repositories, txRunner repositories.TxRunner, cache caching.CacheService, opTimeout time.Duration, logger zerolog.Logger) AllocationService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	logger = logger.With().Str("component", "allocations").Logger()
	return &allocationService{
		ledger:    ledger,
		locations: locations,
		mover: &stockMover{
			repos:     repos,
			txRunner:  txRunner,
			cache:     cache,
			opTimeout: opTimeout,
			logger:    logger,
		},
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (s *allocationService) candidates(ctx context.Context, itemID uuid.UUID) ([]models.Candidate, map[uuid.UUID]int, error) {
	availability, err := s.ledger.ListByItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	candidates := make([]models.Candidate, 0, len(availability))
	for loc, q := range availability {
		candidates = append(candidates, models.Candidate{LocationID: loc, Available: q})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Available != candidates[j].Available {
			return candidates[i].Available > candidates[j].Available
		}
		return candidates[i].LocationID.String() < candidates[j].LocationID.String()
	})
	return candidates, availability, nil
}

func (s *allocationService) Propose(ctx context.Context, itemID uuid.UUID, total int, existing []models.Allocation) (*models.AllocationPlan, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total %d: %w", total, models.ErrInvalidQuantity)
	}
	if err := checkMagnitude("total", total); err != nil {
		return nil, err
	}
	candidates, _, err := s.candidates(ctx, itemID)
	if err != nil {
		return nil, err
	}
	allocs := allocation.Plan(total, candidates, existing)
	return &models.AllocationPlan{
		ItemID:              itemID,
		TotalQuantityNeeded: total,
		Allocations:         allocs,
		Candidates:          candidates,
		Remaining:           allocation.Remaining(total, allocs),
	}, nil
}

// Commit validates req against current stock and applies it as one unit of
// work. Consumption debits every row; stocking credits every row and writes
// one transfer record per row with no source location.
func (s *allocationService) Commit(ctx context.Context, req *models.AllocationRequest) (*models.AllocationCommitResult, error) {
	if req == nil {
		return nil, fmt.Errorf("empty allocation: %w", models.ErrInvalidQuantity)
	}

	var (
		moves   []stockMove
		records []*models.TransferRecord
	)
	switch req.Mode {
	case models.AllocationConsumption:
		_, availability, err := s.candidates(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}
		if err := allocation.ValidateConsumption(req.TotalQuantityNeeded, req.Allocations, availability); err != nil {
			return nil, err
		}
		for _, a := range req.Allocations {
			if a.Quantity > 0 {
				moves = append(moves, stockMove{ItemID: req.ItemID, LocationID: a.LocationID, Delta: -a.Quantity})
			}
		}
	case models.AllocationStocking:
		if err := allocation.ValidateStocking(req.Allocations); err != nil {
			return nil, err
		}
		now := s.now()
		for _, a := range req.Allocations {
			if a.Quantity == 0 {
				continue
			}
			if err := requireActive(ctx, s.locations, a.LocationID); err != nil {
				return nil, err
			}
			moves = append(moves, stockMove{ItemID: req.ItemID, LocationID: a.LocationID, Delta: a.Quantity})
			records = append(records, &models.TransferRecord{
				ID:           uuid.New(),
				ItemID:       req.ItemID,
				ToLocationID: a.LocationID,
				Quantity:     a.Quantity,
				OccurredAt:   now,
				Notes:        req.Notes,
				Actor:        req.Actor,
			})
		}
	default:
		return nil, fmt.Errorf("allocation mode %q: %w", req.Mode, models.ErrInvalidMode)
	}

	res, err := s.mover.apply(ctx, moves, records)
	if err != nil {
		return nil, err
	}

	result := &models.AllocationCommitResult{
		ItemID:      req.ItemID,
		Mode:        req.Mode,
		Allocations: req.Allocations,
		Records:     records,
	}
	if res.auditErr != nil {
		result.Degraded = true
		for _, r := range records {
			r.ID = uuid.Nil
		}
		s.logger.Warn().Err(res.auditErr).Str("item_id", req.ItemID.String()).Msg("stocking applied but audit records were not written")
	}
	s.logger.Info().
		Str("item_id", req.ItemID.String()).
		Str("mode", string(req.Mode)).
		Int("total", allocation.Sum(req.Allocations)).
		Msg("allocation committed")
	return result, nil
}
