package client

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/domain"
)

// Status is the connection state of the store.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	defaultBackoffBase  = 500 * time.Millisecond
	defaultBackoffMax   = 30 * time.Second
	defaultToastWindow  = 10 * time.Second
	defaultHistoryLimit = 50
)

// Config configures a Store. Dialer and UserID are required; API is
// optional (no cold-start history and no durable clear without it).
type Config struct {
	UserID string
	Dialer Dialer
	API    API

	BackoffBase  time.Duration
	BackoffMax   time.Duration
	ToastWindow  time.Duration
	HistoryLimit int

	// OnToast fires for a novel pushed notification younger than
	// ToastWindow. OnStatus fires on every state transition. Both are
	// invoked outside the store's lock and may call back into the store.
	OnToast  func(*domain.Notification)
	OnStatus func(Status)

	Logger *zap.Logger
}

// Store holds the client-side notification list and drives the realtime
// connection. All state transitions, message handling, and clears are
// serialized through one mutex.
type Store struct {
	cfg Config
	log *zap.Logger

	mu            sync.Mutex
	status        Status
	conn          Conn
	topics        map[string]struct{}
	notifications []*domain.Notification
	seen          map[string]struct{}
	attempt       int
	retryTimer    *time.Timer
	stopped       bool

	now    func() time.Time
	jitter func(time.Duration) time.Duration
}

func New(cfg Config) *Store {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	if cfg.ToastWindow <= 0 {
		cfg.ToastWindow = defaultToastWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		cfg:    cfg,
		log:    log,
		status: StatusDisconnected,
		topics: make(map[string]struct{}),
		seen:   make(map[string]struct{}),
		now:    time.Now,
		jitter: defaultJitter,
	}
}

// defaultJitter spreads a delay by ±25% so a fleet of clients does not
// reconnect in lockstep after a gateway restart.
func defaultJitter(d time.Duration) time.Duration {
	spread := int64(d) / 2
	if spread <= 0 {
		return d
	}
	return d - time.Duration(spread/2) + time.Duration(rand.Int63n(spread))
}

// Connect performs one connection attempt. On failure it schedules an
// automatic retry with capped exponential backoff and returns the dial
// error. Calling Connect again while a retry is pending counts as the
// manual reconnect action: the timer is replaced by the immediate attempt.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = false
	s.stopRetryLocked()
	s.setStatusLocked(StatusConnecting)
	notify := s.statusCallbackLocked()
	s.mu.Unlock()
	notify()

	conn, err := s.cfg.Dialer.Dial(ctx, s.cfg.UserID)
	if err != nil {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return err
		}
		s.setStatusLocked(StatusError)
		s.scheduleReconnectLocked()
		notify = s.statusCallbackLocked()
		s.mu.Unlock()
		notify()
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.attempt = 0
	s.setStatusLocked(StatusConnected)
	notify = s.statusCallbackLocked()
	topics := make([]string, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t)
	}
	s.mu.Unlock()
	notify()

	for _, t := range topics {
		if err := conn.Send(ctx, "subscribe", t); err != nil {
			s.log.Warn("resubscribe failed", zap.String("topic", t), zap.Error(err))
		}
	}

	go s.readLoop(conn)

	if s.cfg.API != nil {
		s.loadHistory(ctx)
	}
	return nil
}

// Disconnect closes the connection, cancels any pending reconnect timer,
// and leaves the store in StatusDisconnected. The notification list and
// the remembered topic set survive for the next Connect.
func (s *Store) Disconnect() {
	s.mu.Lock()
	s.stopped = true
	s.stopRetryLocked()
	conn := s.conn
	s.conn = nil
	s.attempt = 0
	s.setStatusLocked(StatusDisconnected)
	notify := s.statusCallbackLocked()
	s.mu.Unlock()
	notify()
	if conn != nil {
		conn.Close()
	}
}

// Subscribe remembers the topic so it is restored on reconnect, and sends
// the control frame immediately when connected.
func (s *Store) Subscribe(ctx context.Context, topic string) error {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Send(ctx, "subscribe", topic)
}

func (s *Store) Unsubscribe(ctx context.Context, topic string) error {
	s.mu.Lock()
	delete(s.topics, topic)
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Send(ctx, "unsubscribe", topic)
}

// Clear prunes matching entries from the in-memory list immediately, then
// issues the delete against the durable store. The local prune does not
// wait for the server: clears are not broadcast, so there is no
// confirmation to wait for.
func (s *Store) Clear(ctx context.Context, kind *domain.EventKind) error {
	s.mu.Lock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if kind != nil && n.Type != *kind {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	s.mu.Unlock()

	if s.cfg.API == nil {
		return nil
	}
	_, err := s.cfg.API.Clear(ctx, s.cfg.UserID, kind)
	return err
}

// Status returns the current connection state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Notifications returns a snapshot of the list, newest first.
func (s *Store) Notifications() []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *Store) readLoop(conn Conn) {
	for {
		msg, err := conn.Receive(context.Background())
		if err != nil {
			s.connectionLost(conn)
			return
		}
		s.handleMessage(msg)
	}
}

// connectionLost handles a dead read loop. A loop whose connection has
// already been replaced or closed by Disconnect is ignored.
func (s *Store) connectionLost(conn Conn) {
	s.mu.Lock()
	if s.stopped || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.setStatusLocked(StatusError)
	s.scheduleReconnectLocked()
	notify := s.statusCallbackLocked()
	s.mu.Unlock()
	notify()
	conn.Close()
}

func (s *Store) handleMessage(msg *domain.EnrichedMessage) {
	n := &msg.Notification
	s.mu.Lock()
	if _, dup := s.seen[n.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[n.ID] = struct{}{}
	s.insertLocked(n)
	toast := s.cfg.OnToast != nil && s.now().Sub(n.CreatedAt) <= s.cfg.ToastWindow
	s.mu.Unlock()

	if toast {
		s.cfg.OnToast(n)
	}
}

// loadHistory fetches the first page of durable history and merges it
// into the list. Entries already pushed over the socket are skipped, and
// history never toasts.
func (s *Store) loadHistory(ctx context.Context) {
	list, err := s.cfg.API.List(ctx, s.cfg.UserID, domain.ListFilter{Page: 1, Limit: s.cfg.HistoryLimit})
	if err != nil {
		s.log.Warn("history fetch failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	for _, n := range list {
		if _, dup := s.seen[n.ID]; dup {
			continue
		}
		s.seen[n.ID] = struct{}{}
		s.insertLocked(n)
	}
	s.mu.Unlock()
}

// insertLocked places n in the list keeping it sorted newest first, with
// id as the tiebreaker to match the durable store's ordering.
func (s *Store) insertLocked(n *domain.Notification) {
	i := 0
	for i < len(s.notifications) {
		cur := s.notifications[i]
		if n.CreatedAt.After(cur.CreatedAt) {
			break
		}
		if n.CreatedAt.Equal(cur.CreatedAt) && n.ID > cur.ID {
			break
		}
		i++
	}
	s.notifications = append(s.notifications, nil)
	copy(s.notifications[i+1:], s.notifications[i:])
	s.notifications[i] = n
}

func (s *Store) scheduleReconnectLocked() {
	delay := s.cfg.BackoffBase << s.attempt
	if delay > s.cfg.BackoffMax || delay <= 0 {
		delay = s.cfg.BackoffMax
	}
	delay = s.jitter(delay)
	s.attempt++
	s.retryTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		if err := s.Connect(context.Background()); err != nil {
			s.log.Warn("reconnect attempt failed", zap.Error(err))
		}
	})
}

func (s *Store) stopRetryLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

func (s *Store) setStatusLocked(st Status) {
	s.status = st
}

// statusCallbackLocked captures the OnStatus invocation for the current
// state so it can run after the lock is released.
func (s *Store) statusCallbackLocked() func() {
	if s.cfg.OnStatus == nil {
		return func() {}
	}
	cb := s.cfg.OnStatus
	st := s.status
	return func() { cb(st) }
}
