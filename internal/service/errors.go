package service

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// statuses; websocket paths translate them into silent rejections.
var (
	// ErrNotAuthorised marks an operation the caller is not allowed to perform.
	ErrNotAuthorised = errors.New("not authorised")
	// ErrInvalidState marks a transition a record cannot make from its current status.
	ErrInvalidState = errors.New("invalid state for requested operation")
)
