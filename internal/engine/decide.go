package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Decide transitions a queued workflow item to a terminal state. Concurrent
// calls for the same id are serialized; only the first settles, later ones
// observe ErrNotFound. Failed authority checks leave the item pending.
func (e *Engine) Decide(ctx context.Context, workflowID string, action Action, approver *entity.Actor, comments string) (*DecideResult, error) {
	var trigger workflow.Trigger
	switch action {
	case ActionApprove:
		trigger = workflow.TriggerApprove
	case ActionReject:
		trigger = workflow.TriggerReject
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	lock := e.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	item, err := e.queue.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("lookup workflow item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, workflowID)
	}

	if approver == nil || (approver.Role != item.CurrentApprover && approver.Role != e.catalog.OverrideRole) {
		return nil, fmt.Errorf("%w: item %s awaits role %s", ErrPermissionDenied, workflowID, item.CurrentApprover)
	}

	result, err := e.settle(ctx, item, trigger, approver, comments)
	if err != nil {
		return nil, err
	}
	e.forgetLock(workflowID)
	return result, nil
}

// settle is the single transition routine shared by both decision branches:
// stamp the payload, fire the state machine, atomically remove the item and
// persist the record, then audit and notify the submitter.
func (e *Engine) settle(ctx context.Context, item *entity.WorkflowItem, trigger workflow.Trigger, approver *entity.Actor, comments string) (*DecideResult, error) {
	machine, err := workflow.NewSettlementMachine(workflow.State(item.Status))
	if err != nil {
		return nil, fmt.Errorf("workflow item %s: %w", item.ID, err)
	}
	if err := machine.Fire(trigger); err != nil {
		return nil, fmt.Errorf("workflow item %s: %w", item.ID, err)
	}
	outcome := machine.State()

	now := time.Now()
	payload := item.Payload
	payload.SetField("approval_status", outcome.String())
	if outcome == workflow.StateApproved {
		payload.SetField("approved_by", approver.Username)
		payload.SetField("approved_at", now.Format(time.RFC3339))
		if comments != "" {
			payload.SetField("approval_comments", comments)
		}
	} else {
		payload.SetField("rejected_by", approver.Username)
		payload.SetField("rejected_at", now.Format(time.RFC3339))
		if comments != "" {
			payload.SetField("rejection_reason", comments)
		}
	}
	item.Status = outcome.String()

	// Removal and record persistence commit together; a settled item must
	// never linger pending in the queue.
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		removed, err := e.queue.Remove(txCtx, item.ID)
		if err != nil {
			return fmt.Errorf("remove workflow item: %w", err)
		}
		if !removed {
			return fmt.Errorf("%w: %s", ErrNotFound, item.ID)
		}
		if err := e.records.Upsert(txCtx, item.TransactionType, payload.ID, payload); err != nil {
			return fmt.Errorf("persist settled record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	auditAction := entity.AuditActionApproved
	if outcome == workflow.StateRejected {
		auditAction = entity.AuditActionRejected
	}
	e.appendAudit(ctx, item.TransactionType, payload.ID, auditAction, approver.Username, comments)
	e.notify(ctx, &entity.NotificationEntry{
		ID:         uuid.NewString(),
		Recipient:  payload.SubmittedBy,
		Kind:       entity.NotificationApprovalResult,
		Title:      fmt.Sprintf("Your %s was %s", item.TransactionType, outcome),
		Message:    settlementMessage(item, outcome, approver, comments),
		PayloadRef: payload.ID,
		CreatedAt:  now,
	})

	e.logger.Info("Workflow item settled",
		zap.String("workflow_id", item.ID),
		zap.String("transaction_type", item.TransactionType),
		zap.String("outcome", outcome.String()),
		zap.String("approver", approver.Username))

	return &DecideResult{
		Success: true,
		Message: fmt.Sprintf("workflow item %s %s", item.ID, outcome),
		Payload: payload,
	}, nil
}

func settlementMessage(item *entity.WorkflowItem, outcome workflow.State, approver *entity.Actor, comments string) string {
	msg := fmt.Sprintf("Transaction %s was %s by %s.", item.Payload.ID, outcome, approver.Username)
	if comments != "" {
		msg += " Comments: " + comments
	}
	return msg
}
