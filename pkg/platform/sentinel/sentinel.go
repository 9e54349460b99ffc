// Package sentinel holds infrastructure errors that stores and adapters return,
// optionally wrapped. The gateway maps them to envelope codes; services map
// them to domain errors when the caller needs a specific message.
package sentinel

import "errors"

var (
	// ErrNotFound: the entity does not exist, or is not visible to the caller's organization.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState: the entity cannot make the requested transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: a backing service could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
