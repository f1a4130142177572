package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Placeholder values substituted when enrichment inputs are incomplete.
// A notification built with these is delivered normally; the degraded
// outcome is surfaced through metrics, not to the end user.
const (
	PlaceholderActorName   = "Anonymous"
	PlaceholderChannelName = "Someone"
)

// ActorRef is the denormalized snapshot of the user who triggered an event.
// AvatarURL is nil when the asset key is missing or no asset base URL is
// configured.
type ActorRef struct {
	DisplayName string  `json:"display_name"`
	Slug        string  `json:"slug,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// ChannelRef is the denormalized snapshot of the channel an event targets.
type ChannelRef struct {
	Name      string  `json:"name"`
	Slug      string  `json:"slug,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	BannerURL *string `json:"banner_url,omitempty"`
}

// Payload is the closed set of per-kind enriched snapshots. Each variant
// contains everything the client needs to render that notification type
// without further lookups.
type Payload interface {
	payloadKind() EventKind
}

// FollowPayload backs both FOLLOWED and UNFOLLOWED notifications.
type FollowPayload struct {
	Actor   ActorRef   `json:"actor"`
	Channel ChannelRef `json:"channel"`
}

type TipPayload struct {
	Actor    ActorRef   `json:"actor"`
	Channel  ChannelRef `json:"channel"`
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
}

type SubscribePayload struct {
	Actor   ActorRef   `json:"actor"`
	Channel ChannelRef `json:"channel"`
}

type RaidPayload struct {
	Actor   ActorRef   `json:"actor"`
	Channel ChannelRef `json:"channel"`
}

func (FollowPayload) payloadKind() EventKind    { return KindFollowed }
func (TipPayload) payloadKind() EventKind       { return KindTipped }
func (SubscribePayload) payloadKind() EventKind { return KindSubscribed }
func (RaidPayload) payloadKind() EventKind      { return KindRaided }

// Notification is the durable record the enrichment worker writes.
// ID equals the originating PendingEvent.ID; that equality is the
// idempotency key for the whole pipeline.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      EventKind       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// DecodePayload unmarshals the raw payload into its per-kind variant.
// The switch is exhaustive over EventKind.
func (n *Notification) DecodePayload() (Payload, error) {
	switch n.Type {
	case KindFollowed, KindUnfollowed:
		var p FollowPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode follow payload: %w", err)
		}
		return p, nil
	case KindTipped:
		var p TipPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode tip payload: %w", err)
		}
		return p, nil
	case KindSubscribed:
		var p SubscribePayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode subscribe payload: %w", err)
		}
		return p, nil
	case KindRaided:
		var p RaidPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode raid payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, n.Type)
	}
}

// EnrichedMessage is the wire payload published on the bus and pushed to
// clients. It is a projection of Notification and is never persisted on
// its own.
type EnrichedMessage struct {
	Notification
	PublishedAt time.Time `json:"published_at"`
}

// ListFilter holds query parameters for the paginated history fetch.
type ListFilter struct {
	Type  *EventKind
	Page  int
	Limit int
}
