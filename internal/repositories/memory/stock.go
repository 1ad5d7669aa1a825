package memory

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"fleetledger/internal/models"

	"github.com/google/uuid"
)

// stockCell holds an immutable snapshot; writers swap in a new one.
type stockCell struct {
	entry atomic.Pointer[models.StockEntry]
}

func (s *Store) lookupCell(itemID, locationID uuid.UUID) *stockCell {
	s.stockMu.RLock()
	defer s.stockMu.RUnlock()
	return s.stock[itemID][locationID]
}

func (s *Store) ensureCell(itemID, locationID uuid.UUID) *stockCell {
	if c := s.lookupCell(itemID, locationID); c != nil {
		return c
	}
	s.stockMu.Lock()
	defer s.stockMu.Unlock()
	byLoc, ok := s.stock[itemID]
	if !ok {
		byLoc = make(map[uuid.UUID]*stockCell)
		s.stock[itemID] = byLoc
	}
	c, ok := byLoc[locationID]
	if !ok {
		c = &stockCell{}
		c.entry.Store(&models.StockEntry{ItemID: itemID, LocationID: locationID})
		byLoc[locationID] = c
	}
	return c
}

type stockStore struct{ s *Store }

func (st *stockStore) Get(_ context.Context, itemID, locationID uuid.UUID) (*models.StockEntry, error) {
	c := st.s.lookupCell(itemID, locationID)
	if c == nil {
		return nil, fmt.Errorf("stock %s@%s: %w", itemID, locationID, models.ErrNotFound)
	}
	e := *c.entry.Load()
	return &e, nil
}

func (st *stockStore) Set(_ context.Context, itemID, locationID uuid.UUID, quantity int) (*models.StockEntry, error) {
	if err := st.s.injected(OpStockSet, itemID, locationID); err != nil {
		return nil, err
	}
	if quantity < 0 || quantity > models.MaxQuantity {
		return nil, fmt.Errorf("set stock %d: %w", quantity, models.ErrInvalidQuantity)
	}
	if !st.s.locationExists(locationID) {
		return nil, fmt.Errorf("location %s: %w", locationID, models.ErrInvalidLocation)
	}
	return st.s.swap(st.s.ensureCell(itemID, locationID), func(int) (int, error) { return quantity, nil })
}

func (st *stockStore) Adjust(_ context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error) {
	if err := st.s.injected(OpStockAdjust, itemID, locationID); err != nil {
		return nil, err
	}
	var c *stockCell
	if delta > 0 {
		if !st.s.locationExists(locationID) {
			return nil, fmt.Errorf("location %s: %w", locationID, models.ErrInvalidLocation)
		}
		c = st.s.ensureCell(itemID, locationID)
	} else if c = st.s.lookupCell(itemID, locationID); c == nil {
		if delta == 0 {
			return &models.StockEntry{ItemID: itemID, LocationID: locationID}, nil
		}
		return nil, fmt.Errorf("debit %d at location %s: %w", -delta, locationID, models.ErrInsufficientStock)
	}

	return st.s.swap(c, func(current int) (int, error) {
		if delta > models.MaxQuantity-current {
			return 0, fmt.Errorf("credit %d at location %s (have %d): %w", delta, locationID, current, models.ErrInvalidQuantity)
		}
		next := current + delta
		if next < 0 {
			return 0, fmt.Errorf("debit %d at location %s (have %d): %w", -delta, locationID, current, models.ErrInsufficientStock)
		}
		return next, nil
	})
}

// swap runs the optimistic read-modify-write loop on c.
func (s *Store) swap(c *stockCell, apply func(current int) (int, error)) (*models.StockEntry, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		cur := c.entry.Load()
		qty, err := apply(cur.Quantity)
		if err != nil {
			return nil, err
		}
		if s.beforeSwap != nil {
			s.beforeSwap(c)
		}
		next := *cur
		next.Quantity = qty
		next.Version = cur.Version + 1
		next.UpdatedAt = s.now()
		if c.entry.CompareAndSwap(cur, &next) {
			out := next
			return &out, nil
		}
	}
	return nil, fmt.Errorf("stock update after %d attempts: %w", s.maxRetries, models.ErrConflict)
}

func (st *stockStore) ListByItem(_ context.Context, itemID uuid.UUID) ([]*models.StockEntry, error) {
	st.s.stockMu.RLock()
	cells := make([]*stockCell, 0, len(st.s.stock[itemID]))
	for _, c := range st.s.stock[itemID] {
		cells = append(cells, c)
	}
	st.s.stockMu.RUnlock()

	var entries []*models.StockEntry
	for _, c := range cells {
		e := *c.entry.Load()
		if e.Quantity > 0 {
			entries = append(entries, &e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Quantity != entries[j].Quantity {
			return entries[i].Quantity > entries[j].Quantity
		}
		return entries[i].LocationID.String() < entries[j].LocationID.String()
	})
	return entries, nil
}
