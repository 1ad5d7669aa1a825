// Package memory is an in-process implementation of the ledger repositories.
// It has no transactions, so transfers over it use compensating rollback.
// Stock cells are updated with compare-and-swap and a bounded retry count.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
)

const DefaultMaxRetries = 5

// FaultFunc lets callers inject store failures. It is consulted before each
// mutation with the operation name and the ids it touches; a non-nil return
// aborts the mutation with that error.
type FaultFunc func(op string, ids ...uuid.UUID) error

const (
	OpStockAdjust    = "stock.adjust"
	OpStockSet       = "stock.set"
	OpTransferCreate = "transfers.create"
	OpUnitCreate     = "units.create"
	OpUnitUpdate     = "units.update"
)

type Option func(*Store)

// WithMaxRetries bounds the compare-and-swap loop of Adjust and Set.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithFault(fn FaultFunc) Option {
	return func(s *Store) { s.fault = fn }
}

type Store struct {
	maxRetries int
	now        func() time.Time

	faultMu sync.RWMutex
	fault   FaultFunc

	// beforeSwap runs between reading a cell and swapping it; tests use it
	// to race a writer against the compare-and-swap.
	beforeSwap func(c *stockCell)

	locMu     sync.RWMutex
	locations map[uuid.UUID]models.Location

	stockMu sync.RWMutex
	stock   map[uuid.UUID]map[uuid.UUID]*stockCell

	recMu   sync.RWMutex
	records []models.TransferRecord

	unitMu    sync.RWMutex
	units     map[uuid.UUID]models.IndividualUnit
	unitCodes map[string]uuid.UUID
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		maxRetries: DefaultMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		locations:  make(map[uuid.UUID]models.Location),
		stock:      make(map[uuid.UUID]map[uuid.UUID]*stockCell),
		units:      make(map[uuid.UUID]models.IndividualUnit),
		unitCodes:  make(map[string]uuid.UUID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault replaces the fault hook. Pass nil to clear it.
func (s *Store) SetFault(fn FaultFunc) {
	s.faultMu.Lock()
	s.fault = fn
	s.faultMu.Unlock()
}

func (s *Store) injected(op string, ids ...uuid.UUID) error {
	s.faultMu.RLock()
	fn := s.fault
	s.faultMu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(op, ids...)
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repositories.Repositories {
	return repositories.Repositories{
		Locations: &locationStore{s},
		Stock:     &stockStore{s},
		Transfers: &transferStore{s},
		Units:     &unitStore{s},
	}
}

func (s *Store) locationExists(id uuid.UUID) bool {
	s.locMu.RLock()
	defer s.locMu.RUnlock()
	_, ok := s.locations[id]
	return ok
}

type locationStore struct{ s *Store }

func (l *locationStore) Create(_ context.Context, location *models.Location) error {
	l.s.locMu.Lock()
	defer l.s.locMu.Unlock()
	if _, ok := l.s.locations[location.ID]; ok {
		return fmt.Errorf("location %s already exists", location.ID)
	}
	now := l.s.now()
	location.CreatedAt, location.UpdatedAt = now, now
	l.s.locations[location.ID] = *location
	return nil
}

func (l *locationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Location, error) {
	l.s.locMu.RLock()
	defer l.s.locMu.RUnlock()
	loc, ok := l.s.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, models.ErrNotFound)
	}
	return &loc, nil
}

func (l *locationStore) List(_ context.Context, activeOnly bool, limit, offset int) ([]*models.Location, error) {
	l.s.locMu.RLock()
	all := make([]*models.Location, 0, len(l.s.locations))
	for _, loc := range l.s.locations {
		if activeOnly && !loc.Active {
			continue
		}
		loc := loc
		all = append(all, &loc)
	}
	l.s.locMu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, limit, offset), nil
}

func (l *locationStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	l.s.locMu.Lock()
	defer l.s.locMu.Unlock()
	loc, ok := l.s.locations[id]
	if !ok {
		return fmt.Errorf("location %s: %w", id, models.ErrNotFound)
	}
	loc.Active = active
	loc.UpdatedAt = l.s.now()
	l.s.locations[id] = loc
	return nil
}

type transferStore struct{ s *Store }

func (t *transferStore) Create(_ context.Context, record *models.TransferRecord) error {
	if err := t.s.injected(OpTransferCreate, record.ItemID, record.ToLocationID); err != nil {
		return err
	}
	t.s.recMu.Lock()
	t.s.records = append(t.s.records, *record)
	t.s.recMu.Unlock()
	return nil
}

func (t *transferStore) ListByItem(_ context.Context, itemID uuid.UUID, limit, offset int) ([]*models.TransferRecord, error) {
	t.s.recMu.RLock()
	var out []*models.TransferRecord
	for i := len(t.s.records) - 1; i >= 0; i-- {
		if t.s.records[i].ItemID == itemID {
			rec := t.s.records[i]
			out = append(out, &rec)
		}
	}
	t.s.recMu.RUnlock()
	return paginate(out, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
