package groups

import "errors"

var (
	// ErrOperationInProgress is returned when a group already has a
	// membership mutation in flight; each transition is a single
	// request/response round trip back to stable.
	ErrOperationInProgress = errors.New("a group operation is already in progress")

	// ErrEmptyGroupName is returned for blank or whitespace-only names.
	ErrEmptyGroupName = errors.New("group name must be non-empty")

	// ErrNoMembersSelected is returned when group creation has no
	// selected contacts.
	ErrNoMembersSelected = errors.New("at least one member must be selected")
)
