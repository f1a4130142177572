package queue

import (
	"context"
	"errors"
)

// ErrFull is returned by the non-blocking Enqueue when the buffer is at
// capacity. The caller does not retry: the id stays in the durable
// pending-index and is rediscovered on the next poll pass.
var ErrFull = errors.New("work queue is at capacity")

// Item is the minimal data handed to a worker: just the pending-event id.
// Workers fetch the full event from the pending store using the id, keeping
// the queue lightweight and the durable data authoritative.
type Item struct {
	EventID string
}

// Queue is the in-process buffer between the discovery poller and the
// enrichment workers. Losing its contents on crash is harmless: unretired
// ids remain in the pending-index and are rediscovered by the next pass.
type Queue struct {
	items chan Item
}

func New(capacity int) *Queue {
	return &Queue{items: make(chan Item, capacity)}
}

// Enqueue is non-blocking: if the buffer is full, ErrFull is returned
// immediately rather than stalling the discovery poller.
func (q *Queue) Enqueue(item Item) error {
	select {
	case q.items <- item:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
// Returns (Item{}, false) when ctx is cancelled (graceful shutdown signal).
func (q *Queue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depth returns the number of items currently buffered.
// Used by the metrics handler for the queue-depth snapshot.
func (q *Queue) Depth() int {
	return len(q.items)
}
