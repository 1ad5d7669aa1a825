package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocationService is the location registry. Lookups are read-mostly and
// served from the cache when possible.
type LocationService interface {
	Create(ctx context.Context, name string, active bool) (*models.Location, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Location, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Location, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type locationService struct {
	repo   repositories.LocationRepository
	cache  caching.CacheService
	ttl    time.Duration
	logger zerolog.Logger
}

func NewLocationService(repo repositories.LocationRepository, cache caching.CacheService, ttl time.Duration, logger zerolog.Logger) LocationService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	return &locationService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "location_registry").Logger(),
	}
}

func (s *locationService) Create(ctx context.Context, name string, active bool) (*models.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("location name is required: %w", models.ErrInvalidLocation)
	}
	location := &models.Location{ID: uuid.New(), Name: name, Active: active}
	if err := s.repo.Create(ctx, location); err != nil {
		return nil, err
	}
	s.logger.Info().Str("location_id", location.ID.String()).Str("name", name).Msg("location created")
	return location, nil
}

func (s *locationService) Get(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	cached, err := s.cache.GetLocation(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("location_id", id.String()).Msg("location cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	location, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetLocation(ctx, location, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("location_id", id.String()).Msg("location cache write failed")
	}
	return location, nil
}

func (s *locationService) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Location, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, activeOnly, limit, offset)
}

func (s *locationService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if err := s.cache.DeleteLocation(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("location_id", id.String()).Msg("location cache invalidation failed")
	}
	s.logger.Info().Str("location_id", id.String()).Bool("active", active).Msg("location active flag updated")
	return nil
}

func (s *locationService) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	location, err := s.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return location.Active, nil
}

func (s *locationService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// requireActive fails with ErrInvalidLocation unless id is a known, active location.
func requireActive(ctx context.Context, locations LocationService, id uuid.UUID) error {
	ok, err := locations.IsActive(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("location %s is unknown or inactive: %w", id, models.ErrInvalidLocation)
	}
	return nil
}

func requireExists(ctx context.Context, locations LocationService, id uuid.UUID) error {
	ok, err := locations.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("location %s: %w", id, models.ErrInvalidLocation)
	}
	return nil
}
