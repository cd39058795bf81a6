package entity

import "time"

// Notification kinds.
const (
	NotificationApprovalRequest = "approval_request"
	NotificationApprovalResult  = "approval_result"
)

// NotificationEntry is one unread notice in a recipient's mailbox. Entries
// are append-only and mutated only by marking them read.
type NotificationEntry struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	PayloadRef string    `json:"payload_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
}
