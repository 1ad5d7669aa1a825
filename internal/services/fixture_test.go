package services

import (
	"context"
	"testing"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"
	"fleetledger/internal/repositories/memory"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// ledgerFixture wires every service over one memory store, the same way
// the server does when STORE_DRIVER=memory.
type ledgerFixture struct {
	store       *memory.Store
	repos       repositories.Repositories
	locations   LocationService
	ledger      LedgerService
	transfers   TransferService
	allocations AllocationService
	units       UnitService
	recon       ReconciliationService
}

func newLedgerFixture(t *testing.T, opts ...memory.Option) *ledgerFixture {
	t.Helper()
	store := memory.NewStore(opts...)
	repos := store.Repositories()
	cache := caching.NewNoopCacheService()
	logger := zerolog.Nop()
	timeout := 2 * time.Second

	locations := NewLocationService(repos.Locations, cache, time.Minute, logger)
	ledger := NewLedgerService(repos.Stock, locations, cache, LedgerOptions{OpTimeout: timeout}, logger)
	transfers := NewTransferService(repos, nil, locations, cache, timeout, logger)
	return &ledgerFixture{
		store:       store,
		repos:       repos,
		locations:   locations,
		ledger:      ledger,
		transfers:   transfers,
		allocations: NewAllocationService(ledger, locations, repos, nil, cache, timeout, logger),
		units:       NewUnitService(repos, nil, locations, transfers, cache, timeout, logger),
		recon:       NewReconciliationService(repos.Stock, repos.Units, timeout, logger),
	}
}

func (f *ledgerFixture) location(t *testing.T, name string) uuid.UUID {
	t.Helper()
	loc, err := f.locations.Create(context.Background(), name, true)
	require.NoError(t, err)
	return loc.ID
}

func (f *ledgerFixture) stock(t *testing.T, item, loc uuid.UUID, qty int) {
	t.Helper()
	_, err := f.ledger.SetQuantity(context.Background(), item, loc, qty)
	require.NoError(t, err)
}

func (f *ledgerFixture) quantity(t *testing.T, item, loc uuid.UUID) int {
	t.Helper()
	q, err := f.ledger.GetQuantity(context.Background(), item, loc)
	require.NoError(t, err)
	return q
}

func (f *ledgerFixture) records(t *testing.T, item uuid.UUID) []*models.TransferRecord {
	t.Helper()
	recs, err := f.transfers.ListTransfers(context.Background(), item, 500, 0)
	require.NoError(t, err)
	return recs
}

func strPtr(s string) *string { return &s }
