package types

import "errors"

// Error taxonomy shared across component boundaries. Components wrap these
// with context via fmt.Errorf("...: %w", err); callers match with errors.Is.
var (
	// ErrNetwork means a request could not complete. Never auto-retried;
	// the user action itself is the retry mechanism.
	ErrNetwork = errors.New("network failure")

	// ErrNotFound means the referenced conversation or message no longer
	// exists. Callers should refresh the conversation list.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was rejected before any network call
	// (empty text, empty group name, no selected contacts).
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied means the data service refused a group-admin
	// action. The server message is surfaced verbatim alongside it.
	ErrPermissionDenied = errors.New("permission denied")
)
