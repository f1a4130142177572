package gateway

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/bus"
	"github.com/streampulse/notify/internal/domain"
)

// Hooks carries the metric callbacks injected by main.
type Hooks struct {
	OnConnect    func()
	OnDisconnect func()
	OnDropped    func()
}

// Hub bridges bus topics to connected clients. It keeps exactly one bus
// subscription per distinct topic, shared by every connection subscribed to
// it; the subscription is released when the last connection leaves.
//
// Messages are forwarded verbatim: no transformation, filtering, or
// buffering beyond each connection's bounded outbound queue. Nothing is
// queued for a disconnected client.
type Hub struct {
	bus        bus.Bus
	sendBuffer int
	logger     *zap.Logger
	hooks      Hooks

	mu     sync.Mutex
	topics map[string]*topicState
	conns  map[*Conn]struct{}
}

type topicState struct {
	sub   bus.Subscription
	conns map[*Conn]struct{}
}

func NewHub(b bus.Bus, sendBuffer int, logger *zap.Logger, hooks Hooks) *Hub {
	if hooks.OnConnect == nil {
		hooks.OnConnect = func() {}
	}
	if hooks.OnDisconnect == nil {
		hooks.OnDisconnect = func() {}
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func() {}
	}
	return &Hub{
		bus:        b,
		sendBuffer: sendBuffer,
		logger:     logger,
		hooks:      hooks,
		topics:     make(map[string]*topicState),
		conns:      make(map[*Conn]struct{}),
	}
}

// Connect registers a new client connection and subscribes it to its
// personal topic.
func (h *Hub) Connect(userID string) (*Conn, error) {
	c := newConn(userID, h.sendBuffer)

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	if err := h.Subscribe(c, bus.UserTopic(userID)); err != nil {
		h.Disconnect(c)
		return nil, err
	}

	h.hooks.OnConnect()
	h.logger.Info("client connected", zap.String("user_id", userID))
	return c, nil
}

// Subscribe adds the connection to a topic, opening the shared bus
// subscription if this is the topic's first subscriber.
func (h *Hub) Subscribe(c *Conn, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return fmt.Errorf("connection already closed")
	}

	ts, ok := h.topics[topic]
	if !ok {
		sub, err := h.bus.Subscribe(topic, func(msg *domain.EnrichedMessage) {
			h.fanOut(topic, msg)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		ts = &topicState{sub: sub, conns: make(map[*Conn]struct{})}
		h.topics[topic] = ts
	}

	ts.conns[c] = struct{}{}
	c.addTopic(topic)
	return nil
}

// Unsubscribe removes the connection from a topic and tears down the bus
// subscription when nobody is left on it.
func (h *Hub) Unsubscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(c, topic)
	c.removeTopic(topic)
}

func (h *Hub) unsubscribeLocked(c *Conn, topic string) {
	ts, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(ts.conns, c)
	if len(ts.conns) == 0 {
		if err := ts.sub.Unsubscribe(); err != nil {
			h.logger.Warn("bus unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
		delete(h.topics, topic)
	}
}

// Disconnect releases all per-connection state. Safe to call more than once.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	for _, topic := range c.topicList() {
		h.unsubscribeLocked(c, topic)
	}
	h.mu.Unlock()

	c.close()
	h.hooks.OnDisconnect()
	h.logger.Info("client disconnected", zap.String("user_id", c.userID))
}

// fanOut forwards one bus message to every connection on the topic.
// A connection whose buffer is full is disconnected; the others are
// unaffected.
func (h *Hub) fanOut(topic string, msg *domain.EnrichedMessage) {
	h.mu.Lock()
	ts, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return
	}
	targets := make([]*Conn, 0, len(ts.conns))
	for c := range ts.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.trySend(msg); err != nil {
			h.hooks.OnDropped()
			h.logger.Warn("disconnecting slow client",
				zap.String("user_id", c.userID),
				zap.String("topic", topic),
			)
			h.Disconnect(c)
		}
	}
}

// Shutdown disconnects every client and releases all bus subscriptions.
// Clients are expected to reconnect elsewhere and recover anything missed
// from the durable history.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.Disconnect(c)
	}
}

// ConnectionCount reports the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// TopicCount reports the number of active shared bus subscriptions.
func (h *Hub) TopicCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}
