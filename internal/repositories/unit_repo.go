package repositories

import (
	"context"
	"fmt"

	"fleetledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UnitRepository interface {
	CreateBatch(ctx context.Context, units []*models.IndividualUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IndividualUnit, error)
	CodesInUse(ctx context.Context, codeCategory string, codes []string) ([]string, error)
	UpdateLocation(ctx context.Context, id, locationID uuid.UUID) (*models.IndividualUnit, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UnitStatus) (*models.IndividualUnit, error)
	ListByItem(ctx context.Context, itemID uuid.UUID, filter models.UnitFilter) ([]*models.IndividualUnit, error)
	CountByLocation(ctx context.Context, itemID uuid.UUID) ([]models.UnitLocationCount, error)
	ListTrackedItemIDs(ctx context.Context) ([]uuid.UUID, error)
}

type unitRepo struct {
	db Querier
}

func NewUnitRepo(db Querier) UnitRepository {
	return &unitRepo{db: db}
}

const unitColumns = `id, item_id, code_category, code, status, current_location_id, created_at, updated_at`

func scanUnit(row pgx.Row) (*models.IndividualUnit, error) {
	unit := &models.IndividualUnit{}
	var status string
	if err := row.Scan(&unit.ID, &unit.ItemID, &unit.CodeCategory, &unit.Code, &status, &unit.CurrentLocationID, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
		return nil, err
	}
	unit.Status = models.UnitStatus(status)
	return unit, nil
}

// CreateBatch inserts units one statement at a time. Run it inside a
// transaction to make the batch all-or-nothing.
func (r *unitRepo) CreateBatch(ctx context.Context, units []*models.IndividualUnit) error {
	query := `
		INSERT INTO individual_units (id, item_id, code_category, code, status, current_location_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	for _, unit := range units {
		_, err := r.db.Exec(ctx, query, unit.ID, unit.ItemID, unit.CodeCategory, unit.Code, string(unit.Status), unit.CurrentLocationID)
		if err != nil {
			return fmt.Errorf("create unit %s/%s: %w", unit.CodeCategory, unit.Code, mapPgError(err))
		}
	}
	return nil
}

func (r *unitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.IndividualUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM individual_units WHERE id = $1`
	unit, err := scanUnit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", id, mapPgError(err))
	}
	return unit, nil
}

func (r *unitRepo) CodesInUse(ctx context.Context, codeCategory string, codes []string) ([]string, error) {
	query := `
		SELECT code
		FROM individual_units
		WHERE code_category = $1 AND code = ANY($2)
	`
	rows, err := r.db.Query(ctx, query, codeCategory, codes)
	if err != nil {
		return nil, fmt.Errorf("check unit codes: %w", mapPgError(err))
	}
	defer rows.Close()

	var taken []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		taken = append(taken, code)
	}
	return taken, rows.Err()
}

func (r *unitRepo) UpdateLocation(ctx context.Context, id, locationID uuid.UUID) (*models.IndividualUnit, error) {
	query := `
		UPDATE individual_units
		SET current_location_id = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + unitColumns
	unit, err := scanUnit(r.db.QueryRow(ctx, query, locationID, id))
	if err != nil {
		return nil, fmt.Errorf("move unit %s: %w", id, mapPgError(err))
	}
	return unit, nil
}

func (r *unitRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UnitStatus) (*models.IndividualUnit, error) {
	query := `
		UPDATE individual_units
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + unitColumns
	unit, err := scanUnit(r.db.QueryRow(ctx, query, string(status), id))
	if err != nil {
		return nil, fmt.Errorf("set unit %s status: %w", id, mapPgError(err))
	}
	return unit, nil
}

func (r *unitRepo) ListByItem(ctx context.Context, itemID uuid.UUID, filter models.UnitFilter) ([]*models.IndividualUnit, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	query := `SELECT ` + unitColumns + ` FROM individual_units WHERE item_id = $1`
	args := []interface{}{itemID}
	conditionCount := 1

	if filter.LocationID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND current_location_id = $%d`, conditionCount)
		args = append(args, *filter.LocationID)
	}
	if filter.Status != nil {
		conditionCount++
		query += fmt.Sprintf(` AND status = $%d`, conditionCount)
		args = append(args, string(*filter.Status))
	}

	query += fmt.Sprintf(` ORDER BY code_category, code LIMIT $%d OFFSET $%d`, conditionCount+1, conditionCount+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", mapPgError(err))
	}
	defer rows.Close()

	var units []*models.IndividualUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (r *unitRepo) CountByLocation(ctx context.Context, itemID uuid.UUID) ([]models.UnitLocationCount, error) {
	query := `
		SELECT current_location_id, status, COUNT(*)
		FROM individual_units
		WHERE item_id = $1
		GROUP BY current_location_id, status
	`
	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("count units: %w", mapPgError(err))
	}
	defer rows.Close()

	var counts []models.UnitLocationCount
	for rows.Next() {
		var (
			c      models.UnitLocationCount
			status string
			n      int64
		)
		if err := rows.Scan(&c.LocationID, &status, &n); err != nil {
			return nil, err
		}
		c.Status = models.UnitStatus(status)
		c.Count = int(n)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *unitRepo) ListTrackedItemIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT item_id FROM individual_units ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("list tracked items: %w", mapPgError(err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
