package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streampulse/notify/internal/domain"
)

func TestPendingEvent_Validate(t *testing.T) {
	valid := domain.PendingEvent{
		ID:            "follow:alice:chan-9",
		Kind:          domain.KindFollowed,
		SubjectUserID: "alice",
		ChannelID:     "chan-9",
		CreatedAt:     time.Now().UTC(),
	}

	t.Run("valid event passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		e := valid
		e.ID = ""
		if err := e.Validate(); err != domain.ErrMissingEventID {
			t.Fatalf("expected ErrMissingEventID, got %v", err)
		}
	})

	t.Run("invalid kind", func(t *testing.T) {
		e := valid
		e.Kind = "POKED"
		if err := e.Validate(); err != domain.ErrInvalidKind {
			t.Fatalf("expected ErrInvalidKind, got %v", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		e := valid
		e.SubjectUserID = ""
		if err := e.Validate(); err != domain.ErrMissingSubject {
			t.Fatalf("expected ErrMissingSubject, got %v", err)
		}
	})

	t.Run("missing channel", func(t *testing.T) {
		e := valid
		e.ChannelID = ""
		if err := e.Validate(); err != domain.ErrMissingChannel {
			t.Fatalf("expected ErrMissingChannel, got %v", err)
		}
	})

	t.Run("all valid kinds accepted", func(t *testing.T) {
		kinds := []domain.EventKind{
			domain.KindFollowed, domain.KindUnfollowed, domain.KindTipped,
			domain.KindSubscribed, domain.KindRaided,
		}
		for _, k := range kinds {
			e := valid
			e.Kind = k
			if err := e.Validate(); err != nil {
				t.Fatalf("kind %q: expected no error, got %v", k, err)
			}
		}
	})
}

func TestNotification_DecodePayload(t *testing.T) {
	avatar := "https://assets.example.com/avatars/a.png"

	tests := []struct {
		name    string
		kind    domain.EventKind
		payload domain.Payload
	}{
		{"follow", domain.KindFollowed, domain.FollowPayload{
			Actor:   domain.ActorRef{DisplayName: "alice", Slug: "alice", AvatarURL: &avatar},
			Channel: domain.ChannelRef{Name: "bob", Slug: "bob"},
		}},
		{"tip", domain.KindTipped, domain.TipPayload{
			Actor:    domain.ActorRef{DisplayName: "alice"},
			Channel:  domain.ChannelRef{Name: "bob"},
			Amount:   500,
			Currency: "USD",
		}},
		{"subscribe", domain.KindSubscribed, domain.SubscribePayload{
			Actor:   domain.ActorRef{DisplayName: "alice"},
			Channel: domain.ChannelRef{Name: "bob"},
		}},
		{"raid", domain.KindRaided, domain.RaidPayload{
			Actor:   domain.ActorRef{DisplayName: "alice"},
			Channel: domain.ChannelRef{Name: "bob"},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.payload)
			if err != nil {
				t.Fatal(err)
			}
			n := domain.Notification{ID: "n1", UserID: "bob", Type: tc.kind, Payload: raw}

			got, err := n.DecodePayload()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			back, _ := json.Marshal(got)
			if string(back) != string(raw) {
				t.Fatalf("payload round trip mismatch:\n got %s\nwant %s", back, raw)
			}
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		n := domain.Notification{Type: "POKED", Payload: []byte(`{}`)}
		if _, err := n.DecodePayload(); !errors.Is(err, domain.ErrInvalidKind) {
			t.Fatalf("expected ErrInvalidKind, got %v", err)
		}
	})

	t.Run("unfollow decodes as follow payload", func(t *testing.T) {
		raw, _ := json.Marshal(domain.FollowPayload{
			Actor:   domain.ActorRef{DisplayName: domain.PlaceholderActorName},
			Channel: domain.ChannelRef{Name: "bob"},
		})
		n := domain.Notification{Type: domain.KindUnfollowed, Payload: raw}
		got, err := n.DecodePayload()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := got.(domain.FollowPayload); !ok {
			t.Fatalf("expected FollowPayload, got %T", got)
		}
	})
}
