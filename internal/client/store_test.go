package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/streampulse/notify/internal/domain"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][2]string
	inbound chan *domain.EnrichedMessage
	done    chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan *domain.EnrichedMessage, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) Send(_ context.Context, action, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, [2]string{action, topic})
	return nil
}

func (c *fakeConn) Receive(_ context.Context) (*domain.EnrichedMessage, error) {
	select {
	case m := <-c.inbound:
		return m, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) push(m *domain.EnrichedMessage) {
	c.inbound <- m
}

func (c *fakeConn) sent() [][2]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][2]string, len(c.frames))
	copy(out, c.frames)
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	err   error
	conns []*fakeConn
}

func (d *fakeDialer) Dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

type fakeAPI struct {
	mu         sync.Mutex
	history    []*domain.Notification
	clearCalls []*domain.EventKind
}

func (a *fakeAPI) List(context.Context, string, domain.ListFilter) ([]*domain.Notification, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history, nil
}

func (a *fakeAPI) Clear(_ context.Context, _ string, kind *domain.EventKind) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearCalls = append(a.clearCalls, kind)
	return 1, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func pushMsg(id string, kind domain.EventKind, at time.Time) *domain.EnrichedMessage {
	return &domain.EnrichedMessage{
		Notification: domain.Notification{
			ID:        id,
			UserID:    "alice",
			Type:      kind,
			CreatedAt: at,
		},
		PublishedAt: at,
	}
}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.UserID == "" {
		cfg.UserID = "alice"
	}
	s := New(cfg)
	s.jitter = func(d time.Duration) time.Duration { return d }
	t.Cleanup(s.Disconnect)
	return s
}

func TestStore_DuplicatePushRenderedOnce(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestStore(t, Config{Dialer: dialer})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn := dialer.conn(0)

	conn.push(pushMsg("n1", domain.KindFollowed, time.Now()))
	conn.push(pushMsg("n1", domain.KindFollowed, time.Now()))
	conn.push(pushMsg("n2", domain.KindTipped, time.Now()))

	waitFor(t, func() bool { return len(s.Notifications()) == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := len(s.Notifications()); got != 2 {
		t.Fatalf("expected 2 notifications after duplicate push, got %d", got)
	}
}

func TestStore_ListSortedNewestFirst(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestStore(t, Config{Dialer: dialer})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn := dialer.conn(0)

	base := time.Now()
	conn.push(pushMsg("old", domain.KindFollowed, base.Add(-time.Hour)))
	conn.push(pushMsg("new", domain.KindTipped, base))
	conn.push(pushMsg("mid", domain.KindRaided, base.Add(-time.Minute)))

	waitFor(t, func() bool { return len(s.Notifications()) == 3 })

	list := s.Notifications()
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
}

func TestStore_ToastOnlyForRecentNovelMessages(t *testing.T) {
	var mu sync.Mutex
	var toasts []string

	dialer := &fakeDialer{}
	s := newTestStore(t, Config{
		Dialer:      dialer,
		ToastWindow: time.Minute,
		OnToast: func(n *domain.Notification) {
			mu.Lock()
			toasts = append(toasts, n.ID)
			mu.Unlock()
		},
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn := dialer.conn(0)

	conn.push(pushMsg("fresh", domain.KindFollowed, time.Now()))
	conn.push(pushMsg("stale", domain.KindFollowed, time.Now().Add(-2*time.Minute)))
	conn.push(pushMsg("fresh", domain.KindFollowed, time.Now()))

	waitFor(t, func() bool { return len(s.Notifications()) == 2 })
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(toasts) != 1 || toasts[0] != "fresh" {
		t.Fatalf("expected one toast for fresh message, got %v", toasts)
	}
}

func TestStore_ReconnectResubscribesRememberedTopics(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestStore(t, Config{
		Dialer:      dialer,
		BackoffBase: time.Millisecond,
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Subscribe(context.Background(), "channel:42"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// The gateway drops the connection.
	dialer.conn(0).Close()

	waitFor(t, func() bool { return dialer.count() == 2 })
	waitFor(t, func() bool { return s.Status() == StatusConnected })

	frames := dialer.conn(1).sent()
	found := false
	for _, f := range frames {
		if f[0] == "subscribe" && f[1] == "channel:42" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected channel:42 resubscribed on new connection, frames: %v", frames)
	}
}

func TestStore_ClearScoping(t *testing.T) {
	dialer := &fakeDialer{}
	api := &fakeAPI{}
	s := newTestStore(t, Config{Dialer: dialer, API: api})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn := dialer.conn(0)

	conn.push(pushMsg("1", domain.KindFollowed, time.Now()))
	conn.push(pushMsg("2", domain.KindTipped, time.Now()))
	waitFor(t, func() bool { return len(s.Notifications()) == 2 })

	kind := domain.KindFollowed
	if err := s.Clear(context.Background(), &kind); err != nil {
		t.Fatalf("clear: %v", err)
	}

	list := s.Notifications()
	if len(list) != 1 || list[0].ID != "2" {
		t.Fatalf("expected only the tip to survive, got %v", list)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.clearCalls) != 1 || api.clearCalls[0] == nil || *api.clearCalls[0] != domain.KindFollowed {
		t.Fatalf("expected one type-scoped clear against the durable store")
	}
}

func TestStore_ColdStartHistoryMerge(t *testing.T) {
	base := time.Now()
	dialer := &fakeDialer{}
	api := &fakeAPI{history: []*domain.Notification{
		{ID: "h2", UserID: "alice", Type: domain.KindTipped, CreatedAt: base.Add(-time.Minute)},
		{ID: "h1", UserID: "alice", Type: domain.KindFollowed, CreatedAt: base.Add(-time.Hour)},
	}}
	s := newTestStore(t, Config{Dialer: dialer, API: api})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn := dialer.conn(0)

	// A live push duplicating a history entry must not double-render.
	conn.push(pushMsg("h2", domain.KindTipped, base.Add(-time.Minute)))
	conn.push(pushMsg("live", domain.KindRaided, base))

	waitFor(t, func() bool { return len(s.Notifications()) == 3 })
	time.Sleep(20 * time.Millisecond)

	list := s.Notifications()
	want := []string{"live", "h2", "h1"}
	if len(list) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
}

func TestStore_BackoffDoublesAndCaps(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("gateway down")}
	s := newTestStore(t, Config{
		Dialer:      dialer,
		BackoffBase: 100 * time.Millisecond,
		BackoffMax:  400 * time.Millisecond,
	})

	var mu sync.Mutex
	var delays []time.Duration
	s.jitter = func(d time.Duration) time.Duration {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return time.Hour // park the timer so attempts stay manual
	}

	for i := 0; i < 4; i++ {
		if err := s.Connect(context.Background()); err == nil {
			t.Fatal("expected dial error")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
	}
	if len(delays) != len(want) {
		t.Fatalf("expected %d scheduled retries, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("retry %d: expected delay %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestStore_DisconnectCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("gateway down")}
	s := newTestStore(t, Config{
		Dialer:      dialer,
		BackoffBase: 50 * time.Millisecond,
	})

	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
	if s.Status() != StatusError {
		t.Fatalf("expected error status, got %v", s.Status())
	}

	s.Disconnect()
	if s.Status() != StatusDisconnected {
		t.Fatalf("expected disconnected status, got %v", s.Status())
	}

	time.Sleep(200 * time.Millisecond)
	if s.Status() != StatusDisconnected {
		t.Fatal("reconnect timer fired after explicit disconnect")
	}
}

func TestStore_StatusTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []Status

	dialer := &fakeDialer{}
	s := newTestStore(t, Config{
		Dialer: dialer,
		OnStatus: func(st Status) {
			mu.Lock()
			seen = append(seen, st)
			mu.Unlock()
		},
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusConnecting, StatusConnected, StatusDisconnected}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d: expected %v, got %v", i, want[i], seen[i])
		}
	}
}
