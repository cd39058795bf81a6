package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository: a durable
// per-recipient mailbox consumed by polling. There is no delivery guarantee,
// retry, or expiry.
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification outbox repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Push appends a new unread entry to the recipient's mailbox
func (r *NotificationRepository) Push(ctx context.Context, entry *entity.NotificationEntry) error {
	query := `
		INSERT INTO notifications (
			id, recipient, kind, title, message, payload_ref, created_at, is_read
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`
	_, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.Recipient,
		entry.Kind,
		entry.Title,
		entry.Message,
		entry.PayloadRef,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to push notification",
			zap.String("recipient", entry.Recipient),
			zap.Error(err))
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

// UnreadFor returns the recipient's unread entries, oldest first
func (r *NotificationRepository) UnreadFor(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error) {
	query := `
		SELECT id, recipient, kind, title, message, payload_ref, created_at, is_read
		FROM notifications
		WHERE recipient = ? AND is_read = 0
		ORDER BY created_at ASC, id ASC
	`
	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, recipient)
	if err != nil {
		r.logger.Error("Failed to list unread notifications",
			zap.String("recipient", recipient),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list unread notifications: %w", err)
	}
	defer rows.Close()

	var entries []*entity.NotificationEntry
	for rows.Next() {
		var entry entity.NotificationEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Recipient,
			&entry.Kind,
			&entry.Title,
			&entry.Message,
			&entry.PayloadRef,
			&entry.CreatedAt,
			&entry.Read,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// MarkRead marks one entry as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	_, err := executorFrom(ctx, r.db).ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to mark notification read",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
