package repositories

import (
	"context"
	"fmt"

	"fleetledger/internal/models"

	"github.com/google/uuid"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Location, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type locationRepo struct {
	db Querier
}

func NewLocationRepo(db Querier) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, location *models.Location) error {
	query := `
		INSERT INTO locations (id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, location.ID, location.Name, location.Active).Scan(&location.CreatedAt, &location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create location: %w", mapPgError(err))
	}
	return nil
}

func (r *locationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	location := &models.Location{}
	query := `
		SELECT id, name, active, created_at, updated_at
		FROM locations
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&location.ID, &location.Name, &location.Active, &location.CreatedAt, &location.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", id, mapPgError(err))
	}
	return location, nil
}

func (r *locationRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Location, error) {
	query := `
		SELECT id, name, active, created_at, updated_at
		FROM locations
		WHERE (NOT $1::boolean OR active)
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, activeOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", mapPgError(err))
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		location := &models.Location{}
		if err := rows.Scan(&location.ID, &location.Name, &location.Active, &location.CreatedAt, &location.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

// SetActive is a targeted field update; there is no whole-row replace.
func (r *locationRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE locations SET active = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set location active: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %s: %w", id, models.ErrNotFound)
	}
	return nil
}
