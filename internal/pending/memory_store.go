package pending

import (
	"context"
	"sync"

	"github.com/streampulse/notify/internal/domain"
)

// MemoryStore is a hand-written, in-memory Store implementation used in unit
// tests. No mock-generation library needed.
type MemoryStore struct {
	mu       sync.Mutex
	events   map[string]*domain.PendingEvent
	index    map[string]struct{}
	attempts map[string]int
	parked   map[string]struct{}

	// Optional error overrides — set in tests to simulate failure paths.
	PutErr    error
	GetErr    error
	RetireErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make(map[string]*domain.PendingEvent),
		index:    make(map[string]struct{}),
		attempts: make(map[string]int),
		parked:   make(map[string]struct{}),
	}
}

func (m *MemoryStore) Put(_ context.Context, ev *domain.PendingEvent) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *ev
	m.events[ev.ID] = &clone
	m.index[ev.ID] = struct{}{}
	return nil
}

func (m *MemoryStore) PendingIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.index))
	for id := range m.index {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.PendingEvent, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *ev
	return &clone, nil
}

func (m *MemoryStore) Retire(_ context.Context, id string) error {
	if m.RetireErr != nil {
		return m.RetireErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.index, id)
	delete(m.events, id)
	delete(m.attempts, id)
	return nil
}

func (m *MemoryStore) BumpAttempts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[id]++
	return m.attempts[id], nil
}

func (m *MemoryStore) Park(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.index, id)
	delete(m.attempts, id)
	m.parked[id] = struct{}{}
	return nil
}

func (m *MemoryStore) ParkedIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.parked))
	for id := range m.parked {
		ids = append(ids, id)
	}
	return ids, nil
}

// compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
