package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/repository"
)

func strPtr(s string) *string { return &s }

func seedDirectory() *repository.MockDirectoryRepository {
	dir := repository.NewMockDirectoryRepository()
	dir.AddUser(repository.UserProfile{
		ID:          "alice",
		DisplayName: "Alice",
		Slug:        "alice",
		AvatarKey:   strPtr("avatars/alice.png"),
	})
	dir.AddChannel(repository.ChannelProfile{
		ID:        "chan-1",
		OwnerID:   "bob",
		Name:      "Bob Streams",
		Slug:      "bob-streams",
		AvatarKey: strPtr("avatars/bob.png"),
		BannerKey: strPtr("banners/bob.png"),
	})
	return dir
}

func followEvent() *domain.PendingEvent {
	return &domain.PendingEvent{
		ID:            "ev-1",
		Kind:          domain.KindFollowed,
		SubjectUserID: "alice",
		ChannelID:     "chan-1",
		CreatedAt:     time.Now(),
	}
}

func TestEnrich_FullData(t *testing.T) {
	e := New(seedDirectory(), NewAssets("https://cdn.example.com/"), zap.NewNop())

	n, degraded, err := e.Enrich(context.Background(), followEvent())
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if degraded {
		t.Fatal("expected full enrichment, got degraded")
	}
	if n.ID != "ev-1" || n.UserID != "bob" || n.Type != domain.KindFollowed {
		t.Fatalf("unexpected notification: %+v", n)
	}

	p, err := n.DecodePayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	fp := p.(domain.FollowPayload)
	if fp.Actor.DisplayName != "Alice" {
		t.Fatalf("expected actor Alice, got %q", fp.Actor.DisplayName)
	}
	if fp.Actor.AvatarURL == nil || *fp.Actor.AvatarURL != "https://cdn.example.com/avatars/alice.png" {
		t.Fatalf("unexpected avatar URL: %v", fp.Actor.AvatarURL)
	}
	if fp.Channel.Name != "Bob Streams" || fp.Channel.BannerURL == nil {
		t.Fatalf("unexpected channel ref: %+v", fp.Channel)
	}
}

func TestEnrich_MissingActorUsesPlaceholder(t *testing.T) {
	dir := seedDirectory()
	e := New(dir, NewAssets("https://cdn.example.com"), zap.NewNop())

	ev := followEvent()
	ev.SubjectUserID = "ghost"

	n, degraded, err := e.Enrich(context.Background(), ev)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded enrichment")
	}

	p, _ := n.DecodePayload()
	fp := p.(domain.FollowPayload)
	if fp.Actor.DisplayName != domain.PlaceholderActorName {
		t.Fatalf("expected placeholder actor, got %q", fp.Actor.DisplayName)
	}
	if fp.Actor.AvatarURL != nil {
		t.Fatal("expected no avatar URL for placeholder actor")
	}
}

func TestEnrich_UnconfiguredAssetsIsDegraded(t *testing.T) {
	e := New(seedDirectory(), NewAssets(""), zap.NewNop())

	n, degraded, err := e.Enrich(context.Background(), followEvent())
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded enrichment without asset base URL")
	}

	p, _ := n.DecodePayload()
	fp := p.(domain.FollowPayload)
	if fp.Actor.DisplayName != "Alice" {
		t.Fatalf("expected real actor name, got %q", fp.Actor.DisplayName)
	}
	if fp.Actor.AvatarURL != nil || fp.Channel.AvatarURL != nil {
		t.Fatal("expected asset URLs omitted")
	}
}

func TestEnrich_MissingChannelIsPermanent(t *testing.T) {
	e := New(seedDirectory(), NewAssets("https://cdn.example.com"), zap.NewNop())

	ev := followEvent()
	ev.ChannelID = "gone"

	_, _, err := e.Enrich(context.Background(), ev)
	if !errors.Is(err, domain.ErrSubjectGone) {
		t.Fatalf("expected ErrSubjectGone, got %v", err)
	}
}

func TestEnrich_TransientLookupErrorPassesThrough(t *testing.T) {
	dir := seedDirectory()
	dir.GetChannelErr = errors.New("connection refused")
	e := New(dir, NewAssets("https://cdn.example.com"), zap.NewNop())

	_, _, err := e.Enrich(context.Background(), followEvent())
	if err == nil || errors.Is(err, domain.ErrSubjectGone) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestEnrich_TipPayloadCarriesAmount(t *testing.T) {
	e := New(seedDirectory(), NewAssets("https://cdn.example.com"), zap.NewNop())

	ev := followEvent()
	ev.Kind = domain.KindTipped
	ev.Amount = 500
	ev.Currency = "USD"

	n, _, err := e.Enrich(context.Background(), ev)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	p, err := n.DecodePayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	tp := p.(domain.TipPayload)
	if tp.Amount != 500 || tp.Currency != "USD" {
		t.Fatalf("unexpected tip payload: %+v", tp)
	}
}

func TestAssets_URL(t *testing.T) {
	a := NewAssets("https://cdn.example.com/")

	if got := a.URL(strPtr("/avatars/x.png")); got == nil || *got != "https://cdn.example.com/avatars/x.png" {
		t.Fatalf("unexpected URL: %v", got)
	}
	if a.URL(nil) != nil {
		t.Fatal("expected nil for nil key")
	}
	if a.URL(strPtr("")) != nil {
		t.Fatal("expected nil for empty key")
	}
	if NewAssets("").URL(strPtr("avatars/x.png")) != nil {
		t.Fatal("expected nil when unconfigured")
	}
}
