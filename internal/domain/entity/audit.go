package entity

import "time"

// Audit actions written by the engine.
const (
	AuditActionAutoApproved = "auto_approved"
	AuditActionRouted       = "routed_for_approval"
	AuditActionApproved     = "approved"
	AuditActionRejected     = "rejected"
)

// AuditEntry records a single state transition. The audit trail is
// append-only.
type AuditEntry struct {
	ID              int64     `json:"id"`
	TransactionType string    `json:"transaction_type"`
	TransactionID   string    `json:"transaction_id"`
	Action          string    `json:"action"`
	PerformedBy     string    `json:"performed_by"`
	Notes           string    `json:"notes,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
