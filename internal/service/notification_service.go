package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/repository"
)

// NotificationService is the boundary the CRUD layer talks to. The recording
// side writes pending events into the key-value store; the read side serves
// the paginated history fetch and the clear operation against the durable
// records. HTTP handlers and workers depend on this service, not on each other.
type NotificationService struct {
	store      pending.Store
	repo       repository.NotificationRepository
	logger     *zap.Logger
	onRecorded func(kind domain.EventKind)
}

func NewNotificationService(
	store pending.Store,
	repo repository.NotificationRepository,
	logger *zap.Logger,
	onRecorded func(domain.EventKind),
) *NotificationService {
	if onRecorded == nil {
		onRecorded = func(domain.EventKind) {}
	}
	return &NotificationService{store: store, repo: repo, logger: logger, onRecorded: onRecorded}
}

// Record durably captures a pending event and returns. The producing request
// never waits on enrichment; durability is guaranteed by the synchronous
// key-value ack inside Put.
//
// The caller supplies a stable id for the logical occurrence (a double-clicked
// follow produces the same id twice). Record itself does not deduplicate:
// the second Put overwrites the first identical record, and the worker's
// idempotent upsert collapses any duplicate processing downstream.
func (s *NotificationService) Record(ctx context.Context, ev *domain.PendingEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Put(ctx, ev); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	s.onRecorded(ev.Kind)
	s.logger.Debug("event recorded",
		zap.String("id", ev.ID),
		zap.String("kind", string(ev.Kind)),
	)
	return nil
}

// List returns the user's durable notification history, newest-first.
func (s *NotificationService) List(ctx context.Context, userID string, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	if userID == "" {
		return nil, 0, domain.ErrMissingUser
	}
	return s.repo.List(ctx, userID, filter)
}

// Clear deletes the user's notifications, optionally restricted to one kind,
// and reports the number deleted. Clearing is not broadcast: connected
// clients prune their in-memory lists optimistically.
func (s *NotificationService) Clear(ctx context.Context, userID string, kind *domain.EventKind) (int64, error) {
	if userID == "" {
		return 0, domain.ErrMissingUser
	}
	if kind != nil && !kind.IsValid() {
		return 0, domain.ErrInvalidKind
	}

	deleted, err := s.repo.Clear(ctx, userID, kind)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}

	s.logger.Info("notifications cleared",
		zap.String("user_id", userID),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

func (s *NotificationService) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}
