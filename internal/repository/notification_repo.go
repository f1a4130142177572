package repository

import (
	"context"

	"github.com/streampulse/notify/internal/domain"
)

// NotificationRepository defines all persistence operations for durable
// notification records. The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	// Upsert writes the notification keyed by its id. Re-running with the
	// same id is a no-op: the id is the pipeline's idempotency key and the
	// write must never produce two rows for one id.
	Upsert(ctx context.Context, n *domain.Notification) error

	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// List returns the user's notifications newest-first with the total
	// count of matching rows for pagination metadata.
	List(ctx context.Context, userID string, filter domain.ListFilter) ([]*domain.Notification, int, error)

	// Clear deletes the user's notifications, optionally restricted to one
	// kind, and reports how many rows were removed.
	Clear(ctx context.Context, userID string, kind *domain.EventKind) (int64, error)
}

// UserProfile is the directory row backing an actor snapshot.
type UserProfile struct {
	ID          string
	DisplayName string
	Slug        string
	AvatarKey   *string
}

// ChannelProfile is the directory row backing a channel snapshot.
type ChannelProfile struct {
	ID        string
	OwnerID   string
	Name      string
	Slug      string
	AvatarKey *string
	BannerKey *string
}

// DirectoryRepository reads the denormalization source data owned by the
// CRUD layer. The enrichment worker is a read-only consumer of these tables.
type DirectoryRepository interface {
	GetUser(ctx context.Context, id string) (*UserProfile, error)
	GetChannel(ctx context.Context, id string) (*ChannelProfile, error)
}
