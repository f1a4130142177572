package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/streampulse/notify/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// UpsertCalls counts Upsert invocations, including conflicting ones.
	UpsertCalls int

	// Optional error overrides — set in tests to simulate failure paths.
	UpsertErr error
	ListErr   error
	ClearErr  error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Upsert(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if _, exists := m.notifications[n.ID]; exists {
		return nil // mirror ON CONFLICT DO NOTHING
	}
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MockNotificationRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MockNotificationRepository) List(_ context.Context, userID string, f domain.ListFilter) ([]*domain.Notification, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matching []*domain.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		clone := *n
		matching = append(matching, &clone)
	}
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.After(matching[j].CreatedAt)
		}
		return matching[i].ID > matching[j].ID
	})

	total := len(matching)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matching[start:end], total, nil
}

func (m *MockNotificationRepository) Clear(_ context.Context, userID string, kind *domain.EventKind) (int64, error) {
	if m.ClearErr != nil {
		return 0, m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if kind != nil && n.Type != *kind {
			continue
		}
		delete(m.notifications, id)
		deleted++
	}
	return deleted, nil
}

// Count reports the number of stored rows; test helper.
func (m *MockNotificationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}

// MockDirectoryRepository is the in-memory DirectoryRepository for tests.
// Missing entries return domain.ErrNotFound, which the enricher treats as
// the degraded-placeholder case.
type MockDirectoryRepository struct {
	mu       sync.RWMutex
	users    map[string]*UserProfile
	channels map[string]*ChannelProfile

	// GetUserErr / GetChannelErr simulate transient lookup failures.
	GetUserErr    error
	GetChannelErr error
}

func NewMockDirectoryRepository() *MockDirectoryRepository {
	return &MockDirectoryRepository{
		users:    make(map[string]*UserProfile),
		channels: make(map[string]*ChannelProfile),
	}
}

func (m *MockDirectoryRepository) AddUser(u UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

func (m *MockDirectoryRepository) AddChannel(c ChannelProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c.ID] = &c
}

func (m *MockDirectoryRepository) GetUser(_ context.Context, id string) (*UserProfile, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MockDirectoryRepository) GetChannel(_ context.Context, id string) (*ChannelProfile, error) {
	if m.GetChannelErr != nil {
		return nil, m.GetChannelErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.channels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

var (
	_ NotificationRepository = (*MockNotificationRepository)(nil)
	_ DirectoryRepository    = (*MockDirectoryRepository)(nil)
)
