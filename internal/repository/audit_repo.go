package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
	"go.uber.org/zap"
)

// AuditRepository implements port.AuditRepository as an append-only trail.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit trail repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Append writes one audit entry
func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			transaction_type, transaction_id, action, performed_by, notes, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.TransactionType,
		entry.TransactionID,
		entry.Action,
		entry.PerformedBy,
		entry.Notes,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("transaction_id", entry.TransactionID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListFor returns the trail for one record, oldest first
func (r *AuditRepository) ListFor(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, transaction_type, transaction_id, action, performed_by, notes, timestamp
		FROM audit_log
		WHERE transaction_type = ? AND transaction_id = ?
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, transactionType, transactionID)
	if err != nil {
		r.logger.Error("Failed to list audit trail",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list audit trail: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var entry entity.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TransactionType,
			&entry.TransactionID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.Notes,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// CountByAction returns how many entries carry the given action
func (r *AuditRepository) CountByAction(ctx context.Context, action string) (int, error) {
	var count int
	err := executorFrom(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_log WHERE action = ?", action).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
