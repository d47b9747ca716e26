package core

import "errors"

// Error codes sent to realtime clients.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnknownType     = "invalid_message"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeReceiverMissing = "receiver_not_found"
	ErrCodeInternal        = "internal_error"
)

// ErrHubStopped is returned by hub calls made after Run has returned.
var ErrHubStopped = errors.New("hub stopped")
