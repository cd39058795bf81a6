package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
	"go.uber.org/zap"
)

// QueueRepository implements port.QueueRepository over SQLite, so in-flight
// workflow items survive a process restart.
type QueueRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQueueRepository creates a new workflow queue repository
func NewQueueRepository(db *sql.DB, logger *zap.Logger) port.QueueRepository {
	return &QueueRepository{db: db, logger: logger}
}

// Enqueue inserts a new pending workflow item
func (r *QueueRepository) Enqueue(ctx context.Context, item *entity.WorkflowItem) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	chain, err := json.Marshal(item.ApproverChain)
	if err != nil {
		return fmt.Errorf("failed to marshal approver chain: %w", err)
	}

	query := `
		INSERT INTO workflow_items (
			id, transaction_type, payload, status, approver_chain,
			current_approver, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = executorFrom(ctx, r.db).ExecContext(ctx, query,
		item.ID,
		item.TransactionType,
		string(payload),
		item.Status,
		string(chain),
		item.CurrentApprover,
		item.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to enqueue workflow item",
			zap.String("id", item.ID),
			zap.Error(err))
		return fmt.Errorf("failed to enqueue workflow item: %w", err)
	}
	return nil
}

// GetByID retrieves a workflow item by id, or nil when unknown or settled
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*entity.WorkflowItem, error) {
	query := `
		SELECT id, transaction_type, payload, status, approver_chain,
			current_approver, created_at
		FROM workflow_items
		WHERE id = ?
	`
	item, err := scanItem(executorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow item",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow item: %w", err)
	}
	return item, nil
}

// Remove deletes a workflow item by id, reporting whether a row was deleted
func (r *QueueRepository) Remove(ctx context.Context, id string) (bool, error) {
	result, err := executorFrom(ctx, r.db).ExecContext(ctx,
		"DELETE FROM workflow_items WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to remove workflow item",
			zap.String("id", id),
			zap.Error(err))
		return false, fmt.Errorf("failed to remove workflow item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListPendingByRole returns pending items for the role, oldest first; an
// empty role returns all pending items
func (r *QueueRepository) ListPendingByRole(ctx context.Context, role string) ([]*entity.WorkflowItem, error) {
	query := `
		SELECT id, transaction_type, payload, status, approver_chain,
			current_approver, created_at
		FROM workflow_items
		WHERE status = ? AND (? = '' OR current_approver = ?)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, entity.StatusPending, role, role)
	if err != nil {
		r.logger.Error("Failed to list pending workflow items",
			zap.String("role", role),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list pending workflow items: %w", err)
	}
	defer rows.Close()

	var items []*entity.WorkflowItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountPending returns the number of in-flight workflow items
func (r *QueueRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := executorFrom(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workflow_items WHERE status = ?", entity.StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending items: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*entity.WorkflowItem, error) {
	var item entity.WorkflowItem
	var payload, chain string

	if err := row.Scan(
		&item.ID,
		&item.TransactionType,
		&payload,
		&item.Status,
		&chain,
		&item.CurrentApprover,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &item.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if err := json.Unmarshal([]byte(chain), &item.ApproverChain); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approver chain: %w", err)
	}
	return &item, nil
}

// Verify interface compliance
var _ port.QueueRepository = (*QueueRepository)(nil)
