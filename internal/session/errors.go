package session

import "errors"

var (
	// ErrEmptyMessage is returned before any network call when a send has
	// neither text nor attachments.
	ErrEmptyMessage = errors.New("message needs text or at least one attachment")

	// ErrStaleLoad is returned when a history response arrives after the
	// user already requested a different conversation; the response was
	// discarded and no state changed.
	ErrStaleLoad = errors.New("history load superseded by a newer request")

	// ErrNotBootstrapped is returned when an operation needs the
	// conversation set before Bootstrap has populated it.
	ErrNotBootstrapped = errors.New("session store not bootstrapped")
)
