package bus

import (
	"context"
	"sync"

	"github.com/streampulse/notify/internal/domain"
)

// MemoryBus is the in-process Bus used in unit tests. Handlers run
// synchronously on the publisher's goroutine.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[int]func(*domain.EnrichedMessage)
	next int

	// Redeliver repeats every delivery once, simulating the at-least-once
	// semantics of the real bus.
	Redeliver bool

	// PublishErr makes every Publish fail; exercises the best-effort
	// publish path in the worker.
	PublishErr error

	// published records every (topic, message) pair for assertions.
	published []PublishedRecord
}

type PublishedRecord struct {
	Topic   string
	Message *domain.EnrichedMessage
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]func(*domain.EnrichedMessage))}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, msg *domain.EnrichedMessage) error {
	if b.PublishErr != nil {
		return b.PublishErr
	}

	b.mu.Lock()
	b.published = append(b.published, PublishedRecord{Topic: topic, Message: msg})
	handlers := make([]func(*domain.EnrichedMessage), 0, len(b.subs[topic]))
	for _, fn := range b.subs[topic] {
		handlers = append(handlers, fn)
	}
	redeliver := b.Redeliver
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
		if redeliver {
			fn(msg)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic string, fn func(*domain.EnrichedMessage)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func(*domain.EnrichedMessage))
	}
	id := b.next
	b.next++
	b.subs[topic][id] = fn
	return &memorySub{bus: b, topic: topic, id: id}, nil
}

// Published returns a copy of everything published so far; test helper.
func (b *MemoryBus) Published() []PublishedRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PublishedRecord, len(b.published))
	copy(out, b.published)
	return out
}

// SubscriberCount reports active subscriptions for topic; test helper.
func (b *MemoryBus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memorySub struct {
	bus   *MemoryBus
	topic string
	id    int
}

func (s *memorySub) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs[s.topic], s.id)
	return nil
}

// compile-time check that MemoryBus implements Bus
var _ Bus = (*MemoryBus)(nil)
