package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/repository"
	"github.com/streampulse/notify/internal/service"
)

func newService() (*service.NotificationService, *pending.MemoryStore, *repository.MockNotificationRepository) {
	store := pending.NewMemoryStore()
	repo := repository.NewMockNotificationRepository()
	svc := service.NewNotificationService(store, repo, zap.NewNop(), nil)
	return svc, store, repo
}

func validEvent() *domain.PendingEvent {
	return &domain.PendingEvent{
		ID:            "follow:alice:chan-9",
		Kind:          domain.KindFollowed,
		SubjectUserID: "alice",
		ChannelID:     "chan-9",
	}
}

func seedNotification(t *testing.T, repo *repository.MockNotificationRepository, id, userID string, kind domain.EventKind, createdAt time.Time) {
	t.Helper()
	raw, _ := json.Marshal(domain.FollowPayload{
		Actor:   domain.ActorRef{DisplayName: "Alice"},
		Channel: domain.ChannelRef{Name: "BobStreams"},
	})
	err := repo.Upsert(context.Background(), &domain.Notification{
		ID: id, UserID: userID, Type: kind, Payload: raw, CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestNotificationService_Record(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()

	if err := svc.Record(ctx, validEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids, _ := store.PendingIDs(ctx)
	if len(ids) != 1 || ids[0] != "follow:alice:chan-9" {
		t.Fatalf("expected recorded id in pending index, got %v", ids)
	}

	ev, err := store.Get(ctx, "follow:alice:chan-9")
	if err != nil {
		t.Fatal(err)
	}
	if ev.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}
}

func TestNotificationService_Record_Invalid(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name        string
		mutate      func(*domain.PendingEvent)
		expectedErr error
	}{
		{"missing id", func(e *domain.PendingEvent) { e.ID = "" }, domain.ErrMissingEventID},
		{"bad kind", func(e *domain.PendingEvent) { e.Kind = "POKED" }, domain.ErrInvalidKind},
		{"missing subject", func(e *domain.PendingEvent) { e.SubjectUserID = "" }, domain.ErrMissingSubject},
		{"missing channel", func(e *domain.PendingEvent) { e.ChannelID = "" }, domain.ErrMissingChannel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent()
			tc.mutate(ev)
			if err := svc.Record(ctx, ev); err != tc.expectedErr {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

// TestNotificationService_Record_SameIDTwice: a retried producer call (user
// double-clicking follow) writes the same id twice without error and without
// duplicating the index entry.
func TestNotificationService_Record_SameIDTwice(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()

	if err := svc.Record(ctx, validEvent()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Record(ctx, validEvent()); err != nil {
		t.Fatal(err)
	}

	ids, _ := store.PendingIDs(ctx)
	if len(ids) != 1 {
		t.Fatalf("expected one pending id, got %v", ids)
	}
}

func TestNotificationService_List(t *testing.T) {
	svc, _, repo := newService()
	ctx := context.Background()
	base := time.Now().UTC()

	seedNotification(t, repo, "n1", "bob", domain.KindFollowed, base.Add(-2*time.Minute))
	seedNotification(t, repo, "n2", "bob", domain.KindTipped, base.Add(-time.Minute))
	seedNotification(t, repo, "n3", "carol", domain.KindFollowed, base)

	notifications, total, err := svc.List(ctx, "bob", domain.ListFilter{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total=2, got %d", total)
	}
	if notifications[0].ID != "n2" {
		t.Fatalf("expected newest-first ordering, got %s first", notifications[0].ID)
	}

	kind := domain.KindTipped
	filtered, total, err := svc.List(ctx, "bob", domain.ListFilter{Type: &kind, Page: 1, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || filtered[0].ID != "n2" {
		t.Fatalf("expected only the tip notification, got total=%d", total)
	}
}

func TestNotificationService_List_MissingUser(t *testing.T) {
	svc, _, _ := newService()
	if _, _, err := svc.List(context.Background(), "", domain.ListFilter{Page: 1, Limit: 20}); err != domain.ErrMissingUser {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

// TestNotificationService_Clear_Scoping: clearing with a type filter removes
// only matching rows and leaves the rest intact.
func TestNotificationService_Clear_Scoping(t *testing.T) {
	svc, _, repo := newService()
	ctx := context.Background()
	now := time.Now().UTC()

	seedNotification(t, repo, "1", "bob", domain.KindFollowed, now)
	seedNotification(t, repo, "2", "bob", domain.KindTipped, now)

	kind := domain.KindFollowed
	deleted, err := svc.Clear(ctx, "bob", &kind)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	remaining, total, _ := svc.List(ctx, "bob", domain.ListFilter{Page: 1, Limit: 20})
	if total != 1 || remaining[0].ID != "2" {
		t.Fatalf("expected only the tip row to remain, got total=%d", total)
	}
}

func TestNotificationService_Clear_All(t *testing.T) {
	svc, _, repo := newService()
	ctx := context.Background()
	now := time.Now().UTC()

	seedNotification(t, repo, "1", "bob", domain.KindFollowed, now)
	seedNotification(t, repo, "2", "bob", domain.KindTipped, now)
	seedNotification(t, repo, "3", "carol", domain.KindTipped, now)

	deleted, err := svc.Clear(ctx, "bob", nil)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	// Another user's rows are untouched.
	_, total, _ := svc.List(ctx, "carol", domain.ListFilter{Page: 1, Limit: 20})
	if total != 1 {
		t.Fatalf("expected carol's row to remain, got total=%d", total)
	}
}

func TestNotificationService_Clear_InvalidKind(t *testing.T) {
	svc, _, _ := newService()
	bad := domain.EventKind("POKED")
	if _, err := svc.Clear(context.Background(), "bob", &bad); err != domain.ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
