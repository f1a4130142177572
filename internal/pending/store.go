package pending

import (
	"context"

	"github.com/streampulse/notify/internal/domain"
)

// Store is the durable key-value home of events awaiting enrichment.
// The Redis implementation is in redis_store.go; tests use the in-memory
// MemoryStore.
//
// The pending-index returned by PendingIDs is a discovery hint, not a source
// of truth: reads are non-destructive and two workers discovering the same id
// is harmless because the downstream persistence step is idempotent.
type Store interface {
	// Put durably writes the event and appends its id to the pending-index.
	// It must not return before the write is acknowledged.
	Put(ctx context.Context, ev *domain.PendingEvent) error

	// PendingIDs reads the pending-index non-destructively.
	PendingIDs(ctx context.Context) ([]string, error)

	// Get loads a pending event by id. Returns domain.ErrNotFound if the
	// event was already retired by another worker.
	Get(ctx context.Context, id string) (*domain.PendingEvent, error)

	// Retire removes the id from the pending-index and deletes the event
	// record. Safe to call more than once.
	Retire(ctx context.Context, id string) error

	// BumpAttempts increments and returns the enrichment attempt counter
	// for the id.
	BumpAttempts(ctx context.Context, id string) (int, error)

	// Park moves the id out of the pending-index into the parked
	// (dead-letter) collection, keeping the event record for inspection.
	Park(ctx context.Context, id string) error

	// ParkedIDs lists the parked collection.
	ParkedIDs(ctx context.Context) ([]string, error)
}
