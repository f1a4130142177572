package domain

import "time"

// EventKind identifies the domain occurrence a pending event records.
type EventKind string

const (
	KindFollowed   EventKind = "FOLLOWED"
	KindUnfollowed EventKind = "UNFOLLOWED"
	KindTipped     EventKind = "TIPPED"
	KindSubscribed EventKind = "SUBSCRIBED"
	KindRaided     EventKind = "RAIDED"
)

func (k EventKind) IsValid() bool {
	switch k {
	case KindFollowed, KindUnfollowed, KindTipped, KindSubscribed, KindRaided:
		return true
	}
	return false
}

// PendingEvent is the compact record a producer writes at the moment of the
// state change. It carries only identifiers and raw event-specific fields;
// everything display-related is attached later by the enrichment worker.
//
// ID is caller-supplied and must be stable for a given logical occurrence:
// it doubles as the idempotency key for the whole pipeline (the durable
// notification row reuses it, so reprocessing can never create a duplicate).
type PendingEvent struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	SubjectUserID string    `json:"subject_user_id"`
	ChannelID     string    `json:"channel_id"`

	// Raw event-specific fields. Amount is in the smallest currency unit.
	Amount   int64  `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (e *PendingEvent) Validate() error {
	if e.ID == "" {
		return ErrMissingEventID
	}
	if !e.Kind.IsValid() {
		return ErrInvalidKind
	}
	if e.SubjectUserID == "" {
		return ErrMissingSubject
	}
	if e.ChannelID == "" {
		return ErrMissingChannel
	}
	return nil
}
