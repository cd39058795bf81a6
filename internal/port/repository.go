package port

import (
	"context"
	"time"

	"github.com/garyjia/approval-engine/internal/domain/entity"
)

// QueueRepository defines persistence operations for the workflow queue, the
// authoritative set of in-flight (non-terminal) workflow items.
type QueueRepository interface {
	// Enqueue inserts a new pending item.
	Enqueue(ctx context.Context, item *entity.WorkflowItem) error

	// GetByID retrieves an item by id, or nil when it is unknown or settled.
	GetByID(ctx context.Context, id string) (*entity.WorkflowItem, error)

	// Remove deletes an item by id, reporting whether a row was deleted.
	Remove(ctx context.Context, id string) (bool, error)

	// ListPendingByRole returns pending items whose current approver matches
	// the role, oldest first. An empty role returns all pending items.
	ListPendingByRole(ctx context.Context, role string) ([]*entity.WorkflowItem, error)

	// CountPending returns the number of in-flight items.
	CountPending(ctx context.Context) (int, error)
}

// NotificationRepository defines persistence operations for the per-recipient
// notification outbox.
type NotificationRepository interface {
	Push(ctx context.Context, entry *entity.NotificationEntry) error
	UnreadFor(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error)
	MarkRead(ctx context.Context, id string) error
}

// AuditRepository defines append-only persistence for the audit trail.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListFor(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error)
	CountByAction(ctx context.Context, action string) (int, error)
}

// RecordRepository defines the external record store collaborator: an
// upsert-by-id collection store for settled transaction payloads.
type RecordRepository interface {
	Upsert(ctx context.Context, transactionType, id string, payload *entity.Transaction) error
	Get(ctx context.Context, transactionType, id string) (*entity.Transaction, error)
}

// HistoryRepository defines persistence for the submission history that
// powers the duplicate and unusual-activity checks.
type HistoryRepository interface {
	// RecordSubmission appends one submission event.
	RecordSubmission(ctx context.Context, submitter, transactionType, variant string, at time.Time) error

	// CountSince returns how many submissions the submitter made for the
	// transaction type after the given instant.
	CountSince(ctx context.Context, submitter, transactionType string, since time.Time) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
