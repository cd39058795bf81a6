package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Route decides the fate of an incoming transaction: reject on failed
// validation, settle immediately inside an auto-approve band, or queue it for
// the first configured approver. Route calls are independent per transaction;
// id allocation and queue insertion are the only shared effects.
func (e *Engine) Route(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (*RouteResult, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}

	vres, err := e.validator.Validate(ctx, txn, actor)
	if err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}
	if !vres.IsValid {
		return &RouteResult{
			Outcome:   OutcomeValidationFailed,
			Messages:  vres.Messages(),
			RiskScore: vres.RiskScore,
		}, nil
	}

	req := e.catalog.Resolve(txn.Type, txn.Variant, txn.Amount)

	if req.AutoApprove && e.autoApproveEligible(txn, req) {
		return e.autoApprove(ctx, txn, vres.RiskScore)
	}

	if len(req.Approvers) == 0 {
		e.logger.Error("No approvers resolved for transaction",
			zap.String("transaction_type", txn.Type),
			zap.String("variant", txn.Variant))
		return &RouteResult{
			Outcome:   OutcomeNoApprovers,
			Messages:  []string{fmt.Sprintf("no approvers configured for transaction type %q", txn.Type)},
			RiskScore: vres.RiskScore,
		}, nil
	}

	item := &entity.WorkflowItem{
		ID:              uuid.NewString(),
		TransactionType: txn.Type,
		Payload:         txn.Clone(),
		Status:          entity.StatusPending,
		ApproverChain:   req.Approvers,
		CurrentApprover: req.Approvers[0],
		CreatedAt:       time.Now(),
	}
	if err := e.queue.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue workflow item: %w", err)
	}

	e.notify(ctx, &entity.NotificationEntry{
		ID:         uuid.NewString(),
		Recipient:  item.CurrentApprover,
		Kind:       entity.NotificationApprovalRequest,
		Title:      fmt.Sprintf("Approval requested: %s", txn.Type),
		Message:    fmt.Sprintf("Transaction %s (%s) is awaiting your approval.", txn.ID, txn.Type),
		PayloadRef: item.ID,
		CreatedAt:  time.Now(),
	})
	e.appendAudit(ctx, txn.Type, txn.ID, entity.AuditActionRouted, performedBy(actor, txn),
		fmt.Sprintf("routed to %s", item.CurrentApprover))
	e.recordSubmission(ctx, txn)

	e.logger.Info("Transaction routed for approval",
		zap.String("workflow_id", item.ID),
		zap.String("transaction_type", txn.Type),
		zap.String("current_approver", item.CurrentApprover),
		zap.Int("risk_score", vres.RiskScore))

	return &RouteResult{
		Outcome:    OutcomeRouted,
		WorkflowID: item.ID,
		Payload:    item.Payload,
		RiskScore:  vres.RiskScore,
	}, nil
}

// autoApproveEligible is the type-independent eligibility heuristic layered
// on top of the band flag: the amount stays under the hard ceiling and the
// variant does not require verification.
func (e *Engine) autoApproveEligible(txn *entity.Transaction, req catalog.Requirements) bool {
	if req.RequiresVerification {
		return false
	}
	return txn.Amount != nil && *txn.Amount <= e.cfg.AutoApproveCeiling
}

// autoApprove settles the transaction synchronously. No workflow item is
// ever created on this path.
func (e *Engine) autoApprove(ctx context.Context, txn *entity.Transaction, riskScore int) (*RouteResult, error) {
	payload := txn.Clone()
	payload.SetField("approval_status", entity.StatusApproved)
	payload.SetField("approved_by", systemApprover)
	payload.SetField("approved_at", time.Now().Format(time.RFC3339))

	if err := e.records.Upsert(ctx, txn.Type, payload.ID, payload); err != nil {
		return nil, fmt.Errorf("persist auto-approved record: %w", err)
	}
	e.appendAudit(ctx, txn.Type, txn.ID, entity.AuditActionAutoApproved, systemApprover, "")
	e.recordSubmission(ctx, txn)

	e.logger.Info("Transaction auto-approved",
		zap.String("transaction_type", txn.Type),
		zap.String("transaction_id", txn.ID),
		zap.Int("risk_score", riskScore))

	return &RouteResult{
		Outcome:   OutcomeAutoApproved,
		Payload:   payload,
		RiskScore: riskScore,
	}, nil
}

// performedBy resolves the audit attribution for a routing action.
func performedBy(actor *entity.Actor, txn *entity.Transaction) string {
	if actor != nil && actor.Username != "" {
		return actor.Username
	}
	return txn.SubmittedBy
}
