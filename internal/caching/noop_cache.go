package caching

import (
	"context"
	"time"

	"fleetledger/internal/models"

	"github.com/google/uuid"
)

// noopCacheService is used when no Redis address is configured. Every read
// is a miss and every write succeeds.
type noopCacheService struct{}

func NewNoopCacheService() CacheService { return noopCacheService{} }

func (noopCacheService) GetLocation(context.Context, uuid.UUID) (*models.Location, error) {
	return nil, nil
}

func (noopCacheService) SetLocation(context.Context, *models.Location, time.Duration) error {
	return nil
}

func (noopCacheService) DeleteLocation(context.Context, uuid.UUID) error { return nil }

func (noopCacheService) GetItemStock(context.Context, uuid.UUID) (*models.ItemStock, int64, error) {
	return nil, 0, nil
}

func (noopCacheService) SetItemStock(context.Context, *models.ItemStock, int64, time.Duration) error {
	return nil
}

func (noopCacheService) InvalidateStock(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (noopCacheService) StockGeneration(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (noopCacheService) Ping(context.Context) error { return nil }
