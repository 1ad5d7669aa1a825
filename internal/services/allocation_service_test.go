package services

import (
	"context"
	"errors"
	"testing"

	"fleetledger/internal/models"
	"fleetledger/internal/repositories/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationProposeLargestFirst(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	item := uuid.New()
	a, b := f.location(t, "A"), f.location(t, "B")
	f.stock(t, item, a, 7)
	f.stock(t, item, b, 5)

	plan, err := f.allocations.Propose(ctx, item, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Allocation{
		{LocationID: a, Quantity: 7},
		{LocationID: b, Quantity: 3},
	}, plan.Allocations)
	assert.Equal(t, 0, plan.Remaining)
	require.Len(t, plan.Candidates, 2)
	assert.Equal(t, 5, plan.Candidates[1].Available)

	_, err = f.allocations.Propose(ctx, item, 0, nil)
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
}

func TestAllocationProposeShortfall(t *testing.T) {
	f := newLedgerFixture(t)
	item := uuid.New()
	a := f.location(t, "A")
	f.stock(t, item, a, 4)

	plan, err := f.allocations.Propose(context.Background(), item, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, plan.Remaining)
}

func TestAllocationCommitConsumption(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	item := uuid.New()
	a, b := f.location(t, "A"), f.location(t, "B")
	f.stock(t, item, a, 7)
	f.stock(t, item, b, 5)

	req := func(allocs ...models.Allocation) *models.AllocationRequest {
		return &models.AllocationRequest{
			ItemID:              item,
			TotalQuantityNeeded: 10,
			Mode:                models.AllocationConsumption,
			Allocations:         allocs,
		}
	}

	_, err := f.allocations.Commit(ctx, req(models.Allocation{LocationID: a, Quantity: 7}))
	assert.ErrorIs(t, err, models.ErrAllocationMismatch)

	_, err = f.allocations.Commit(ctx, req(models.Allocation{LocationID: b, Quantity: 10}))
	assert.ErrorIs(t, err, models.ErrExceedsAvailability)

	result, err := f.allocations.Commit(ctx, req(
		models.Allocation{LocationID: a, Quantity: 7},
		models.Allocation{LocationID: b, Quantity: 3},
	))
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, f.quantity(t, item, a))
	assert.Equal(t, 2, f.quantity(t, item, b))
}

func TestAllocationCommitConsumptionRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	item := uuid.New()
	a, b := f.location(t, "A"), f.location(t, "B")
	f.stock(t, item, a, 7)
	f.stock(t, item, b, 5)

	boom := errors.New("write failed")
	calls := 0
	f.store.SetFault(func(op string, _ ...uuid.UUID) error {
		if op != memory.OpStockAdjust {
			return nil
		}
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	_, err := f.allocations.Commit(ctx, &models.AllocationRequest{
		ItemID:              item,
		TotalQuantityNeeded: 10,
		Mode:                models.AllocationConsumption,
		Allocations: []models.Allocation{
			{LocationID: a, Quantity: 7},
			{LocationID: b, Quantity: 3},
		},
	})
	assert.ErrorIs(t, err, boom)

	f.store.SetFault(nil)
	total, err := f.ledger.TotalForItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
}

func TestAllocationCommitStocking(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	item := uuid.New()
	a, b := f.location(t, "A"), f.location(t, "B")

	result, err := f.allocations.Commit(ctx, &models.AllocationRequest{
		ItemID: item,
		Mode:   models.AllocationStocking,
		Allocations: []models.Allocation{
			{LocationID: a, Quantity: 4},
			{LocationID: b, Quantity: 0},
			{LocationID: b, Quantity: 2},
		},
		Notes: strPtr("initial delivery"),
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	for _, rec := range result.Records {
		assert.Nil(t, rec.FromLocationID)
	}
	assert.Equal(t, 4, f.quantity(t, item, a))
	assert.Equal(t, 2, f.quantity(t, item, b))
	assert.Len(t, f.records(t, item), 2)
}

func TestAllocationCommitStockingRejects(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	item := uuid.New()
	a := f.location(t, "A")
	closed, err := f.locations.Create(ctx, "Closed", false)
	require.NoError(t, err)

	_, err = f.allocations.Commit(ctx, &models.AllocationRequest{
		ItemID:      item,
		Mode:        models.AllocationStocking,
		Allocations: []models.Allocation{{LocationID: a, Quantity: 0}},
	})
	assert.ErrorIs(t, err, models.ErrEmptyStocking)

	_, err = f.allocations.Commit(ctx, &models.AllocationRequest{
		ItemID:      item,
		Mode:        models.AllocationStocking,
		Allocations: []models.Allocation{{LocationID: closed.ID, Quantity: 3}},
	})
	assert.ErrorIs(t, err, models.ErrInvalidLocation)

	_, err = f.allocations.Commit(ctx, &models.AllocationRequest{
		ItemID:      item,
		Mode:        "transfer",
		Allocations: []models.Allocation{{LocationID: a, Quantity: 3}},
	})
	assert.ErrorIs(t, err, models.ErrInvalidMode)

	assert.Equal(t, 0, f.quantity(t, item, a))
}
