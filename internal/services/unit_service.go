package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultCodeCategory = "default"

// UnitService tracks individually coded units. Unit moves do not touch bulk
// stock unless the caller asks for it; keeping both in step is best-effort.
type UnitService interface {
	CreateUnits(ctx context.Context, itemID, locationID uuid.UUID, count int, codeCategory string, gen CodeGenerator) ([]*models.IndividualUnit, error)
	GetUnit(ctx context.Context, unitID uuid.UUID) (*models.IndividualUnit, error)
	ListUnits(ctx context.Context, itemID uuid.UUID, filter models.UnitFilter) ([]*models.IndividualUnit, error)
	TransferUnit(ctx context.Context, unitID, toLocationID uuid.UUID) (*models.IndividualUnit, error)
	SetStatus(ctx context.Context, unitID uuid.UUID, status models.UnitStatus) (*models.IndividualUnit, error)
	BulkTransferUnits(ctx context.Context, req *models.UnitBulkTransfer) (*models.BulkOperationResult, error)
}

type unitService struct {
	repos     repositories.Repositories
	txRunner  repositories.TxRunner
	locations LocationService
	transfers TransferService
	mover     *stockMover
	opTimeout time.Duration
	logger    zerolog.Logger
}

func NewUnitService(repos repositories.Repositories, txRunner repositories.TxRunner, locations LocationService, transfers TransferService, cache caching.CacheService, opTimeout time.Duration, logger zerolog.Logger) UnitService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	logger = logger.With().Str("component", "units").Logger()
	return &unitService{
		repos:     repos,
		txRunner:  txRunner,
		locations: locations,
		transfers: transfers,
		mover: &stockMover{
			repos:     repos,
			cache:     cache,
			opTimeout: opTimeout,
			logger:    logger,
		},
		opTimeout: opTimeout,
		logger:    logger,
	}
}

// CreateUnits stores count new available units at locationID and credits
// the bulk entry by count. With a transaction both writes commit together.
// Without one, a failed credit returns the stored units alongside the error
// so the caller can see what was written.
func (s *unitService) CreateUnits(ctx context.Context, itemID, locationID uuid.UUID, count int, codeCategory string, gen CodeGenerator) ([]*models.IndividualUnit, error) {
	if count <= 0 || count > models.MaxQuantity {
		return nil, fmt.Errorf("unit count %d: %w", count, models.ErrInvalidQuantity)
	}
	if gen == nil {
		gen = RandomCodeGenerator{}
	}
	codeCategory = strings.TrimSpace(codeCategory)
	if codeCategory == "" {
		codeCategory = DefaultCodeCategory
	}
	if err := requireActive(ctx, s.locations, locationID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opTimeout)
	defer cancel()

	codes, err := gen.Codes(ctx, codeCategory, count)
	if err != nil {
		return nil, fmt.Errorf("generate codes: %w", err)
	}
	if len(codes) != count {
		return nil, fmt.Errorf("generator returned %d codes for %d units", len(codes), count)
	}
	if err := s.checkCodes(ctx, codeCategory, codes); err != nil {
		return nil, err
	}

	units := make([]*models.IndividualUnit, count)
	for i, code := range codes {
		units[i] = &models.IndividualUnit{
			ID:                uuid.New(),
			ItemID:            itemID,
			CodeCategory:      codeCategory,
			Code:              code,
			Status:            models.UnitStatusAvailable,
			CurrentLocationID: locationID,
		}
	}

	if s.txRunner != nil {
		err = s.txRunner.RunInTx(ctx, func(tx repositories.Tx) error {
			r := tx.Repos()
			if err := r.Units.CreateBatch(ctx, units); err != nil {
				return err
			}
			_, err := r.Stock.Adjust(ctx, itemID, locationID, count)
			return err
		})
		if err != nil {
			return nil, mutationError(ctx, err)
		}
		s.mover.invalidate(ctx, []stockMove{{ItemID: itemID, LocationID: locationID, Delta: count}})
	} else {
		if err := s.repos.Units.CreateBatch(ctx, units); err != nil {
			return nil, mutationError(ctx, err)
		}
		if _, err := s.mover.apply(ctx, []stockMove{{ItemID: itemID, LocationID: locationID, Delta: count}}, nil); err != nil {
			s.logger.Error().Err(err).
				Str("item_id", itemID.String()).
				Str("location_id", locationID.String()).
				Int("count", count).
				Msg("units created but bulk stock was not credited")
			return units, fmt.Errorf("units created, bulk stock not credited: %w", err)
		}
	}

	s.logger.Info().
		Str("item_id", itemID.String()).
		Str("location_id", locationID.String()).
		Str("code_category", codeCategory).
		Int("count", count).
		Msg("units created")
	return units, nil
}

func (s *unitService) checkCodes(ctx context.Context, category string, codes []string) error {
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("empty code in %s: %w", category, models.ErrInvalidCode)
		}
		if seen[code] {
			return fmt.Errorf("code %s/%s repeated in batch: %w", category, code, models.ErrDuplicateCode)
		}
		seen[code] = true
	}
	taken, err := s.repos.Units.CodesInUse(ctx, category, codes)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return fmt.Errorf("codes %s already used in %s: %w", strings.Join(taken, ", "), category, models.ErrDuplicateCode)
	}
	return nil
}

func (s *unitService) GetUnit(ctx context.Context, unitID uuid.UUID) (*models.IndividualUnit, error) {
	return s.repos.Units.GetByID(ctx, unitID)
}

func (s *unitService) ListUnits(ctx context.Context, itemID uuid.UUID, filter models.UnitFilter) ([]*models.IndividualUnit, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("status %q: %w", *filter.Status, models.ErrInvalidStatus)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repos.Units.ListByItem(ctx, itemID, filter)
}

// TransferUnit moves one unit. Status is not consulted.
func (s *unitService) TransferUnit(ctx context.Context, unitID, toLocationID uuid.UUID) (*models.IndividualUnit, error) {
	if _, err := s.repos.Units.GetByID(ctx, unitID); err != nil {
		return nil, err
	}
	if err := requireActive(ctx, s.locations, toLocationID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opTimeout)
	defer cancel()

	unit, err := s.repos.Units.UpdateLocation(ctx, unitID, toLocationID)
	if err != nil {
		return nil, mutationError(ctx, err)
	}
	return unit, nil
}

// SetStatus allows any transition between the known statuses.
func (s *unitService) SetStatus(ctx context.Context, unitID uuid.UUID, status models.UnitStatus) (*models.IndividualUnit, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, models.ErrInvalidStatus)
	}

	ctx, cancel := withTimeout(ctx, s.opTimeout)
	defer cancel()

	unit, err := s.repos.Units.UpdateStatus(ctx, unitID, status)
	if err != nil {
		return nil, mutationError(ctx, err)
	}
	s.logger.Info().Str("unit_id", unitID.String()).Str("status", string(status)).Msg("unit status changed")
	return unit, nil
}

type unitGroup struct {
	itemID uuid.UUID
	from   uuid.UUID
}

// BulkTransferUnits moves each unit individually, then, when SyncBulk is
// set, issues one bulk transfer per (item, source) group for the units that
// actually moved. The two representations are not updated atomically; a
// failed bulk transfer is reported as a warning with the units left moved.
func (s *unitService) BulkTransferUnits(ctx context.Context, req *models.UnitBulkTransfer) (*models.BulkOperationResult, error) {
	if req == nil || len(req.UnitIDs) == 0 {
		return nil, fmt.Errorf("no units: %w", models.ErrInvalidQuantity)
	}
	mode := req.ValidationMode
	if mode == "" {
		mode = models.ValidationModeStrict
	}
	if mode != models.ValidationModeStrict && mode != models.ValidationModeSkipInvalid {
		return nil, fmt.Errorf("validation mode %q: %w", mode, models.ErrInvalidMode)
	}
	if err := requireActive(ctx, s.locations, req.ToLocationID); err != nil {
		return nil, err
	}

	result := models.NewBulkOperationResult(len(req.UnitIDs))
	units := make([]*models.IndividualUnit, len(req.UnitIDs))
	var invalid bool
	for i, id := range req.UnitIDs {
		unit, err := s.repos.Units.GetByID(ctx, id)
		if err != nil {
			result.Fail(i, id.String(), err)
			invalid = true
			continue
		}
		units[i] = unit
	}
	if invalid && mode == models.ValidationModeStrict {
		for i, unit := range units {
			if unit != nil {
				result.Skip(i, unit.ID.String())
			}
		}
		result.Finish()
		return result, nil
	}

	moved := make(map[unitGroup]int)
	var order []unitGroup
	for i, unit := range units {
		if unit == nil {
			continue
		}
		from := unit.CurrentLocationID
		if _, err := s.TransferUnit(ctx, unit.ID, req.ToLocationID); err != nil {
			result.Fail(i, unit.ID.String(), err)
			continue
		}
		result.Succeed(i, unit.ID.String())
		if from == req.ToLocationID {
			continue
		}
		g := unitGroup{itemID: unit.ItemID, from: from}
		if _, ok := moved[g]; !ok {
			order = append(order, g)
		}
		moved[g]++
	}

	if req.SyncBulk {
		for _, g := range order {
			from := g.from
			_, err := s.transfers.Transfer(ctx, models.TransferRequest{
				ItemID:         g.itemID,
				FromLocationID: &from,
				ToLocationID:   req.ToLocationID,
				Quantity:       moved[g],
				Notes:          req.Notes,
				Actor:          req.Actor,
			})
			if err != nil {
				msg := fmt.Sprintf("units of item %s moved from %s but bulk stock was not: %v", g.itemID, from, err)
				result.Warnings = append(result.Warnings, msg)
				s.logger.Warn().Err(err).
					Str("item_id", g.itemID.String()).
					Str("from_location_id", from.String()).
					Int("count", moved[g]).
					Msg("bulk stock out of step with unit moves")
			}
		}
	}

	result.Finish()
	return result, nil
}
