package engine

import "errors"

// Business-level failures returned by Decide. These are caller errors, never
// crashes: the item (if any) is left untouched.
var (
	// ErrNotFound is returned when a decision references a settled or
	// unknown workflow id. Double-settlement of the same id surfaces as this
	// error instead of a double-apply.
	ErrNotFound = errors.New("workflow item not found")

	// ErrPermissionDenied is returned when the approver's role matches
	// neither the item's current approver nor the override role.
	ErrPermissionDenied = errors.New("approver is not authorized for this workflow item")

	// ErrInvalidAction is returned when Decide is called with an action
	// outside approve/reject.
	ErrInvalidAction = errors.New("invalid decision action")
)
