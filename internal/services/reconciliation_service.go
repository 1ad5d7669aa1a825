package services

import (
	"context"
	"sort"
	"time"

	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconciliationService compares bulk stock with individually tracked units.
// It reports drift and never corrects it.
type ReconciliationService interface {
	Report(ctx context.Context, itemID uuid.UUID) (*models.ReconciliationReport, error)
	TrackedItems(ctx context.Context) ([]uuid.UUID, error)
}

type reconciliationService struct {
	stock     repositories.StockRepository
	units     repositories.UnitRepository
	opTimeout time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewReconciliationService(stock repositories.StockRepository, units repositories.UnitRepository, opTimeout time.Duration, logger zerolog.Logger) ReconciliationService {
	return &reconciliationService{
		stock:     stock,
		units:     units,
		opTimeout: opTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With().Str("component", "reconciliation").Logger(),
	}
}

func (s *reconciliationService) TrackedItems(ctx context.Context) ([]uuid.UUID, error) {
	return s.units.ListTrackedItemIDs(ctx)
}

func (s *reconciliationService) Report(ctx context.Context, itemID uuid.UUID) (*models.ReconciliationReport, error) {
	ctx, cancel := withTimeout(ctx, s.opTimeout)
	defer cancel()

	entries, err := s.stock.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	counts, err := s.units.CountByLocation(ctx, itemID)
	if err != nil {
		return nil, err
	}

	lines := make(map[uuid.UUID]*models.ReconciliationLine)
	line := func(loc uuid.UUID) *models.ReconciliationLine {
		l, ok := lines[loc]
		if !ok {
			l = &models.ReconciliationLine{LocationID: loc}
			lines[loc] = l
		}
		return l
	}
	for _, e := range entries {
		line(e.LocationID).BulkQuantity = e.Quantity
	}
	for _, c := range counts {
		l := line(c.LocationID)
		l.TrackedUnits += c.Count
		if c.Status == models.UnitStatusAvailable {
			l.AvailableUnits += c.Count
		}
	}

	report := &models.ReconciliationReport{ItemID: itemID, GeneratedAt: s.now()}
	for _, l := range lines {
		l.Difference = l.BulkQuantity - l.TrackedUnits
		l.State = classify(l)
		if l.State != models.ReconciliationConsistent {
			report.Discrepancies++
		}
		report.BulkTotal += l.BulkQuantity
		report.AvailableUnits += l.AvailableUnits
		report.Lines = append(report.Lines, *l)
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		return report.Lines[i].LocationID.String() < report.Lines[j].LocationID.String()
	})

	if report.Discrepancies > 0 {
		s.logger.Warn().
			Str("item_id", itemID.String()).
			Int("discrepancies", report.Discrepancies).
			Msg("bulk stock and tracked units disagree")
	}
	return report, nil
}

// classify flags a location where available units exceed bulk stock (the
// soft invariant) or where the tracked population and bulk count differ.
func classify(l *models.ReconciliationLine) models.ReconciliationState {
	switch {
	case l.AvailableUnits > l.BulkQuantity || l.TrackedUnits > l.BulkQuantity:
		return models.ReconciliationUnitExceedsBulk
	case l.BulkQuantity > l.TrackedUnits:
		return models.ReconciliationBulkExceedsUnit
	default:
		return models.ReconciliationConsistent
	}
}
