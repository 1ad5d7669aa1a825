package repositories

import (
	"context"
	"fmt"

	"fleetledger/internal/models"

	"github.com/google/uuid"
)

// TransferRecordRepository is append-only: there is no update or delete.
type TransferRecordRepository interface {
	Create(ctx context.Context, record *models.TransferRecord) error
	ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.TransferRecord, error)
}

type transferRecordRepo struct {
	db Querier
}

func NewTransferRecordRepo(db Querier) TransferRecordRepository {
	return &transferRecordRepo{db: db}
}

func (r *transferRecordRepo) Create(ctx context.Context, record *models.TransferRecord) error {
	query := `
		INSERT INTO transfer_records (id, item_id, from_location_id, to_location_id, quantity, occurred_at, notes, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, record.ID, record.ItemID, record.FromLocationID, record.ToLocationID, record.Quantity, record.OccurredAt, record.Notes, record.Actor)
	if err != nil {
		return fmt.Errorf("insert transfer record: %w", mapPgError(err))
	}
	return nil
}

func (r *transferRecordRepo) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.TransferRecord, error) {
	query := `
		SELECT id, item_id, from_location_id, to_location_id, quantity, occurred_at, notes, actor
		FROM transfer_records
		WHERE item_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, itemID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transfer records: %w", mapPgError(err))
	}
	defer rows.Close()

	var records []*models.TransferRecord
	for rows.Next() {
		record := &models.TransferRecord{}
		if err := rows.Scan(&record.ID, &record.ItemID, &record.FromLocationID, &record.ToLocationID, &record.Quantity, &record.OccurredAt, &record.Notes, &record.Actor); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
