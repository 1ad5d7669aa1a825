package repositories

import (
	"context"
	"errors"
	"fmt"

	"fleetledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type StockRepository interface {
	Get(ctx context.Context, itemID, locationID uuid.UUID) (*models.StockEntry, error)
	Set(ctx context.Context, itemID, locationID uuid.UUID, quantity int) (*models.StockEntry, error)
	Adjust(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*models.StockEntry, error)
}

type stockRepo struct {
	db Querier
}

func NewStockRepo(db Querier) StockRepository {
	return &stockRepo{db: db}
}

func (r *stockRepo) Get(ctx context.Context, itemID, locationID uuid.UUID) (*models.StockEntry, error) {
	entry := &models.StockEntry{}
	query := `
		SELECT item_id, location_id, quantity, version, updated_at
		FROM stock_entries
		WHERE item_id = $1 AND location_id = $2
	`
	err := r.db.QueryRow(ctx, query, itemID, locationID).Scan(&entry.ItemID, &entry.LocationID, &entry.Quantity, &entry.Version, &entry.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return entry, nil
}

func (r *stockRepo) Set(ctx context.Context, itemID, locationID uuid.UUID, quantity int) (*models.StockEntry, error) {
	entry := &models.StockEntry{ItemID: itemID, LocationID: locationID}
	query := `
		INSERT INTO stock_entries (item_id, location_id, quantity, version, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (item_id, location_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, version = stock_entries.version + 1, updated_at = NOW()
		RETURNING quantity, version, updated_at
	`
	err := r.db.QueryRow(ctx, query, itemID, locationID, quantity).Scan(&entry.Quantity, &entry.Version, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("set stock: %w", mapPgError(err))
	}
	return entry, nil
}

// Adjust applies delta in a single statement. Credits upsert; debits only
// match a row that stays non-negative, so a missing row means the stock was
// not there.
func (r *stockRepo) Adjust(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error) {
	if delta > 0 {
		return r.credit(ctx, itemID, locationID, delta)
	}
	return r.debit(ctx, itemID, locationID, delta)
}

func (r *stockRepo) credit(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error) {
	entry := &models.StockEntry{ItemID: itemID, LocationID: locationID}
	query := `
		INSERT INTO stock_entries (item_id, location_id, quantity, version, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (item_id, location_id) DO UPDATE
		SET quantity = stock_entries.quantity + EXCLUDED.quantity, version = stock_entries.version + 1, updated_at = NOW()
		RETURNING quantity, version, updated_at
	`
	err := r.db.QueryRow(ctx, query, itemID, locationID, delta).Scan(&entry.Quantity, &entry.Version, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("credit stock: %w", mapPgError(err))
	}
	return entry, nil
}

func (r *stockRepo) debit(ctx context.Context, itemID, locationID uuid.UUID, delta int) (*models.StockEntry, error) {
	entry := &models.StockEntry{ItemID: itemID, LocationID: locationID}
	query := `
		UPDATE stock_entries
		SET quantity = quantity + $3, version = version + 1, updated_at = NOW()
		WHERE item_id = $1 AND location_id = $2 AND quantity + $3 >= 0
		RETURNING quantity, version, updated_at
	`
	err := r.db.QueryRow(ctx, query, itemID, locationID, delta).Scan(&entry.Quantity, &entry.Version, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("debit %d at location %s: %w", -delta, locationID, models.ErrInsufficientStock)
	}
	if err != nil {
		return nil, fmt.Errorf("debit stock: %w", mapPgError(err))
	}
	return entry, nil
}

func (r *stockRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*models.StockEntry, error) {
	query := `
		SELECT item_id, location_id, quantity, version, updated_at
		FROM stock_entries
		WHERE item_id = $1 AND quantity > 0
		ORDER BY quantity DESC, location_id ASC
	`
	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", mapPgError(err))
	}
	defer rows.Close()

	var entries []*models.StockEntry
	for rows.Next() {
		entry := &models.StockEntry{}
		if err := rows.Scan(&entry.ItemID, &entry.LocationID, &entry.Quantity, &entry.Version, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
