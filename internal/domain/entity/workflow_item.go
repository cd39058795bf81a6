package entity

import "time"

// Workflow item statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// WorkflowItem is a transaction queued for a human approval decision.
//
// ApproverChain holds the full resolved chain of eligible roles; only the
// head is consulted today. CurrentApprover is always the head of the chain.
type WorkflowItem struct {
	ID              string       `json:"id"`
	TransactionType string       `json:"transaction_type"`
	Payload         *Transaction `json:"payload"`
	Status          string       `json:"status"`
	ApproverChain   []string     `json:"approver_chain"`
	CurrentApprover string       `json:"current_approver"`
	CreatedAt       time.Time    `json:"created_at"`
}
