package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetledger/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CacheService caches the location registry and display breakdowns of stock.
// Stock mutations bump a generation counter scoped to the item they touched
// and drop only that item's breakdown. A breakdown is cached together with
// the generation it was read under, so a fill that raced a mutation is
// detectable on the next read.
type CacheService interface {
	GetLocation(ctx context.Context, locationID uuid.UUID) (*models.Location, error)
	SetLocation(ctx context.Context, location *models.Location, ttl time.Duration) error
	DeleteLocation(ctx context.Context, locationID uuid.UUID) error

	GetItemStock(ctx context.Context, itemID uuid.UUID) (*models.ItemStock, int64, error)
	SetItemStock(ctx context.Context, stock *models.ItemStock, generation int64, ttl time.Duration) error

	InvalidateStock(ctx context.Context, itemID uuid.UUID) (int64, error)
	StockGeneration(ctx context.Context, itemID uuid.UUID) (int64, error)

	Ping(ctx context.Context) error
}

const keyPrefix = "fleetledger"

func locationKey(locationID uuid.UUID) string {
	return fmt.Sprintf("%s:location:%s", keyPrefix, locationID.String())
}

func itemStockKey(itemID uuid.UUID) string {
	return fmt.Sprintf("%s:stock:%s", keyPrefix, itemID.String())
}

func stockGenerationKey(itemID uuid.UUID) string {
	return fmt.Sprintf("%s:stockgen:%s", keyPrefix, itemID.String())
}

// cachedItemStock is the stored form of a breakdown.
type cachedItemStock struct {
	Stock      *models.ItemStock `json:"stock"`
	Generation int64             `json:"generation"`
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int, logger zerolog.Logger) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	} else {
		logger.Debug().Str("addr", parsedAddr).Msg("redis connection established")
	}

	return &redisCacheService{client: client}
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetLocation(ctx context.Context, locationID uuid.UUID) (*models.Location, error) {
	var location models.Location
	found, err := r.getJSON(ctx, locationKey(locationID), &location)
	if err != nil || !found {
		return nil, err
	}
	return &location, nil
}

func (r *redisCacheService) SetLocation(ctx context.Context, location *models.Location, ttl time.Duration) error {
	return r.setJSON(ctx, locationKey(location.ID), location, ttl)
}

func (r *redisCacheService) DeleteLocation(ctx context.Context, locationID uuid.UUID) error {
	return r.client.Del(ctx, locationKey(locationID)).Err()
}

func (r *redisCacheService) GetItemStock(ctx context.Context, itemID uuid.UUID) (*models.ItemStock, int64, error) {
	var cached cachedItemStock
	found, err := r.getJSON(ctx, itemStockKey(itemID), &cached)
	if err != nil || !found || cached.Stock == nil {
		return nil, 0, err
	}
	return cached.Stock, cached.Generation, nil
}

func (r *redisCacheService) SetItemStock(ctx context.Context, stock *models.ItemStock, generation int64, ttl time.Duration) error {
	return r.setJSON(ctx, itemStockKey(stock.ItemID), cachedItemStock{Stock: stock, Generation: generation}, ttl)
}

func (r *redisCacheService) InvalidateStock(ctx context.Context, itemID uuid.UUID) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, stockGenerationKey(itemID))
	pipe.Del(ctx, itemStockKey(itemID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisCacheService) StockGeneration(ctx context.Context, itemID uuid.UUID) (int64, error) {
	v, err := r.client.Get(ctx, stockGenerationKey(itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
