package memory

import (
	"context"
	"fmt"
	"sort"

	"fleetledger/internal/models"

	"github.com/google/uuid"
)

func codeKey(category, code string) string {
	return category + "\x00" + code
}

type unitStore struct{ s *Store }

// CreateBatch is all-or-nothing: every code is checked before any unit is stored.
func (u *unitStore) CreateBatch(_ context.Context, units []*models.IndividualUnit) error {
	for _, unit := range units {
		if err := u.s.injected(OpUnitCreate, unit.ItemID, unit.CurrentLocationID); err != nil {
			return err
		}
		if !u.s.locationExists(unit.CurrentLocationID) {
			return fmt.Errorf("location %s: %w", unit.CurrentLocationID, models.ErrInvalidLocation)
		}
	}

	u.s.unitMu.Lock()
	defer u.s.unitMu.Unlock()
	batch := make(map[string]bool, len(units))
	for _, unit := range units {
		key := codeKey(unit.CodeCategory, unit.Code)
		if _, taken := u.s.unitCodes[key]; taken || batch[key] {
			return fmt.Errorf("create unit %s/%s: %w", unit.CodeCategory, unit.Code, models.ErrDuplicateCode)
		}
		batch[key] = true
	}
	now := u.s.now()
	for _, unit := range units {
		unit.CreatedAt, unit.UpdatedAt = now, now
		u.s.units[unit.ID] = *unit
		u.s.unitCodes[codeKey(unit.CodeCategory, unit.Code)] = unit.ID
	}
	return nil
}

func (u *unitStore) GetByID(_ context.Context, id uuid.UUID) (*models.IndividualUnit, error) {
	u.s.unitMu.RLock()
	defer u.s.unitMu.RUnlock()
	unit, ok := u.s.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", id, models.ErrNotFound)
	}
	return &unit, nil
}

func (u *unitStore) CodesInUse(_ context.Context, codeCategory string, codes []string) ([]string, error) {
	u.s.unitMu.RLock()
	defer u.s.unitMu.RUnlock()
	var taken []string
	for _, code := range codes {
		if _, ok := u.s.unitCodes[codeKey(codeCategory, code)]; ok {
			taken = append(taken, code)
		}
	}
	return taken, nil
}

func (u *unitStore) update(id uuid.UUID, fn func(*models.IndividualUnit)) (*models.IndividualUnit, error) {
	if err := u.s.injected(OpUnitUpdate, id); err != nil {
		return nil, err
	}
	u.s.unitMu.Lock()
	defer u.s.unitMu.Unlock()
	unit, ok := u.s.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", id, models.ErrNotFound)
	}
	fn(&unit)
	unit.UpdatedAt = u.s.now()
	u.s.units[id] = unit
	return &unit, nil
}

func (u *unitStore) UpdateLocation(_ context.Context, id, locationID uuid.UUID) (*models.IndividualUnit, error) {
	if !u.s.locationExists(locationID) {
		return nil, fmt.Errorf("location %s: %w", locationID, models.ErrInvalidLocation)
	}
	return u.update(id, func(unit *models.IndividualUnit) { unit.CurrentLocationID = locationID })
}

func (u *unitStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.UnitStatus) (*models.IndividualUnit, error) {
	return u.update(id, func(unit *models.IndividualUnit) { unit.Status = status })
}

func (u *unitStore) ListByItem(_ context.Context, itemID uuid.UUID, filter models.UnitFilter) ([]*models.IndividualUnit, error) {
	u.s.unitMu.RLock()
	var out []*models.IndividualUnit
	for _, unit := range u.s.units {
		if unit.ItemID != itemID {
			continue
		}
		if filter.LocationID != nil && unit.CurrentLocationID != *filter.LocationID {
			continue
		}
		if filter.Status != nil && unit.Status != *filter.Status {
			continue
		}
		unit := unit
		out = append(out, &unit)
	}
	u.s.unitMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CodeCategory != out[j].CodeCategory {
			return out[i].CodeCategory < out[j].CodeCategory
		}
		return out[i].Code < out[j].Code
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	return paginate(out, limit, filter.Offset), nil
}

func (u *unitStore) CountByLocation(_ context.Context, itemID uuid.UUID) ([]models.UnitLocationCount, error) {
	type key struct {
		loc    uuid.UUID
		status models.UnitStatus
	}
	counts := make(map[key]int)
	u.s.unitMu.RLock()
	for _, unit := range u.s.units {
		if unit.ItemID == itemID {
			counts[key{unit.CurrentLocationID, unit.Status}]++
		}
	}
	u.s.unitMu.RUnlock()

	out := make([]models.UnitLocationCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.UnitLocationCount{LocationID: k.loc, Status: k.status, Count: n})
	}
	return out, nil
}

func (u *unitStore) ListTrackedItemIDs(_ context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	u.s.unitMu.RLock()
	for _, unit := range u.s.units {
		seen[unit.ItemID] = struct{}{}
	}
	u.s.unitMu.RUnlock()

	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
