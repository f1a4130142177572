package client

import (
	"context"

	"github.com/streampulse/notify/internal/domain"
)

// Conn is one established realtime connection. Receive blocks until a
// message arrives or the connection dies; Close unblocks a pending
// Receive.
type Conn interface {
	Send(ctx context.Context, action, topic string) error
	Receive(ctx context.Context) (*domain.EnrichedMessage, error)
	Close() error
}

// Dialer establishes realtime connections for a user.
type Dialer interface {
	Dial(ctx context.Context, userID string) (Conn, error)
}

// API is the durable-store surface the client needs: history fetch on
// cold start and the clear operation.
type API interface {
	List(ctx context.Context, userID string, filter domain.ListFilter) ([]*domain.Notification, error)
	Clear(ctx context.Context, userID string, kind *domain.EventKind) (int64, error)
}
