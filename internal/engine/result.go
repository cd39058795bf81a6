package engine

import "github.com/garyjia/approval-engine/internal/domain/entity"

// Outcome tags the result of routing a transaction.
type Outcome string

const (
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeAutoApproved     Outcome = "auto_approved"
	OutcomeNoApprovers      Outcome = "no_approvers"
	OutcomeRouted           Outcome = "routed"
)

// Action is a decision verb accepted by Decide.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// RouteResult is the tagged outcome of routing one transaction.
type RouteResult struct {
	Outcome    Outcome             `json:"outcome"`
	WorkflowID string              `json:"workflow_id,omitempty"`
	Payload    *entity.Transaction `json:"payload,omitempty"`
	Messages   []string            `json:"messages,omitempty"`
	RiskScore  int                 `json:"risk_score"`
}

// DecideResult reports a successful settlement.
type DecideResult struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Payload *entity.Transaction `json:"payload,omitempty"`
}

// Stats summarizes workflow volume: in-flight items plus settled counts from
// the audit trail.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
