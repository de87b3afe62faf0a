package platform

import "errors"

// Sentinel errors for platform operations.
var (
	// ErrNotConnected is returned when the native bridge is not installed.
	ErrNotConnected = errors.New("platform: not connected")

	// ErrReplyAlreadySent is reported when a handler answers a call twice.
	ErrReplyAlreadySent = errors.New("platform: reply already sent")
)
