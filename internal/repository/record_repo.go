package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
	"go.uber.org/zap"
)

// RecordRepository implements port.RecordRepository: an upsert-by-id
// collection store holding the final decorated payloads of settled
// transactions.
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record store repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) port.RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

// Upsert stores the payload under (transactionType, id), replacing any
// previous version
func (r *RecordRepository) Upsert(ctx context.Context, transactionType, id string, payload *entity.Transaction) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal record payload: %w", err)
	}

	query := `
		INSERT INTO records (transaction_type, record_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(transaction_type, record_id)
		DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	_, err = executorFrom(ctx, r.db).ExecContext(ctx, query,
		transactionType, id, string(data), time.Now())
	if err != nil {
		r.logger.Error("Failed to upsert record",
			zap.String("transaction_type", transactionType),
			zap.String("record_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// Get retrieves a stored payload, or nil when absent
func (r *RecordRepository) Get(ctx context.Context, transactionType, id string) (*entity.Transaction, error) {
	var data string
	err := executorFrom(ctx, r.db).QueryRowContext(ctx,
		"SELECT payload FROM records WHERE transaction_type = ? AND record_id = ?",
		transactionType, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var payload entity.Transaction
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record payload: %w", err)
	}
	return &payload, nil
}

// Verify interface compliance
var _ port.RecordRepository = (*RecordRepository)(nil)
