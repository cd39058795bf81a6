package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
	"github.com/garyjia/approval-engine/internal/validation"
	"go.uber.org/zap"
)

// systemApprover is stamped as the approver of auto-approved transactions.
const systemApprover = "system_auto"

// Config holds the engine's decision thresholds.
type Config struct {
	// AutoApproveCeiling is the hard amount ceiling for automatic
	// settlement: a matched auto-approve band above it still routes to a
	// human.
	AutoApproveCeiling float64
}

func (c Config) withDefaults() Config {
	if c.AutoApproveCeiling <= 0 {
		c.AutoApproveCeiling = 10000
	}
	return c
}

// Engine is the approval workflow decision engine. It combines the rule
// catalog and the validation battery to route incoming transactions, and
// tracks queued items through to a terminal decision. All dependencies are
// injected; the actor is passed per call, never read from ambient state.
type Engine struct {
	catalog   *catalog.Catalog
	validator *validation.Engine
	queue     port.QueueRepository
	outbox    port.NotificationRepository
	audit     port.AuditRepository
	records   port.RecordRepository
	history   port.HistoryRepository
	txManager port.TransactionManager
	cfg       Config
	logger    *zap.Logger

	// locksMu guards locks, which serializes concurrent Decide calls for the
	// same workflow id so exactly one settles and the rest observe NotFound.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates the engine with its injected collaborators.
func New(
	cat *catalog.Catalog,
	validator *validation.Engine,
	queue port.QueueRepository,
	outbox port.NotificationRepository,
	audit port.AuditRepository,
	records port.RecordRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		catalog:   cat,
		validator: validator,
		queue:     queue,
		outbox:    outbox,
		audit:     audit,
		records:   records,
		history:   history,
		txManager: txManager,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// ListPendingFor returns the in-flight items awaiting the given role, oldest
// first. An empty role returns every pending item.
func (e *Engine) ListPendingFor(ctx context.Context, role string) ([]*entity.WorkflowItem, error) {
	items, err := e.queue.ListPendingByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list pending workflow items: %w", err)
	}
	return items, nil
}

// Stats reports workflow volume: queue depth plus settled counts from the
// audit trail.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	pending, err := e.queue.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending items: %w", err)
	}
	approved, err := e.audit.CountByAction(ctx, entity.AuditActionApproved)
	if err != nil {
		return nil, fmt.Errorf("count approved: %w", err)
	}
	autoApproved, err := e.audit.CountByAction(ctx, entity.AuditActionAutoApproved)
	if err != nil {
		return nil, fmt.Errorf("count auto-approved: %w", err)
	}
	rejected, err := e.audit.CountByAction(ctx, entity.AuditActionRejected)
	if err != nil {
		return nil, fmt.Errorf("count rejected: %w", err)
	}

	stats := &Stats{
		Pending:  pending,
		Approved: approved + autoApproved,
		Rejected: rejected,
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

// UnreadNotificationsFor returns the recipient's unread mailbox entries.
func (e *Engine) UnreadNotificationsFor(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error) {
	entries, err := e.outbox.UnreadFor(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return entries, nil
}

// MarkNotificationRead marks one mailbox entry as read.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	if err := e.outbox.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// AuditTrailFor returns the append-only audit trail for one record.
func (e *Engine) AuditTrailFor(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error) {
	entries, err := e.audit.ListFor(ctx, transactionType, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list audit trail: %w", err)
	}
	return entries, nil
}

// lockFor returns the per-item mutex, creating it on first use.
func (e *Engine) lockFor(id string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	return lock
}

// forgetLock drops the per-item mutex once the item is settled. Late callers
// holding the old mutex simply find the item gone.
func (e *Engine) forgetLock(id string) {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	delete(e.locks, id)
}

// appendAudit writes an audit entry and logs a warning on failure; audit is
// fire-and-forget and must not veto a completed transition.
func (e *Engine) appendAudit(ctx context.Context, transactionType, transactionID, action, performedBy, notes string) {
	entry := &entity.AuditEntry{
		TransactionType: transactionType,
		TransactionID:   transactionID,
		Action:          action,
		PerformedBy:     performedBy,
		Notes:           notes,
		Timestamp:       time.Now(),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Warn("Failed to write audit entry",
			zap.String("transaction_id", transactionID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// notify pushes an outbox entry and logs a warning on failure; the mailbox
// carries no delivery guarantee.
func (e *Engine) notify(ctx context.Context, entry *entity.NotificationEntry) {
	if entry.Recipient == "" {
		return
	}
	if err := e.outbox.Push(ctx, entry); err != nil {
		e.logger.Warn("Failed to push notification",
			zap.String("recipient", entry.Recipient),
			zap.String("kind", entry.Kind),
			zap.Error(err))
	}
}

// recordSubmission appends to the submission history powering the duplicate
// and volume heuristics; best effort.
func (e *Engine) recordSubmission(ctx context.Context, txn *entity.Transaction) {
	if txn.SubmittedBy == "" {
		return
	}
	if err := e.history.RecordSubmission(ctx, txn.SubmittedBy, txn.Type, txn.Variant, time.Now()); err != nil {
		e.logger.Warn("Failed to record submission history",
			zap.String("submitter", txn.SubmittedBy),
			zap.String("transaction_type", txn.Type),
			zap.Error(err))
	}
}
