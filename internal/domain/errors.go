package domain

import "errors"

// Sentinel errors used throughout the application.
// HTTP handlers translate these to status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrMissingEventID = errors.New("event id must not be empty")
	ErrInvalidKind    = errors.New("invalid event kind")
	ErrMissingSubject = errors.New("subject user id must not be empty")
	ErrMissingChannel = errors.New("channel id must not be empty")
	ErrMissingUser    = errors.New("user id must not be empty")

	// ErrSubjectGone marks a permanent enrichment failure: the referenced
	// entity no longer exists and retrying cannot succeed. The worker parks
	// the event once the retry cap is reached.
	ErrSubjectGone = errors.New("referenced subject no longer exists")

	// ErrSendBufferFull is returned when a connection's bounded outbound
	// queue overflows. The gateway disconnects that client rather than let
	// it stall fan-out to the others.
	ErrSendBufferFull = errors.New("outbound buffer full")
)
