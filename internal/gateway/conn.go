package gateway

import (
	"sync"

	"github.com/streampulse/notify/internal/domain"
)

// Conn is the hub's view of one connected client: an identity, the set of
// topics it is subscribed to, and a bounded outbound buffer.
//
// The buffer is the isolation boundary between clients: fan-out writes are
// non-blocking, so one slow reader can never stall delivery to the others.
// When the buffer overflows the hub disconnects the client; the durable
// fetch API is the recovery path for anything missed.
type Conn struct {
	userID string

	mu     sync.Mutex
	topics map[string]struct{}
	send   chan *domain.EnrichedMessage
	closed bool
}

func newConn(userID string, sendBuffer int) *Conn {
	return &Conn{
		userID: userID,
		topics: make(map[string]struct{}),
		send:   make(chan *domain.EnrichedMessage, sendBuffer),
	}
}

// UserID returns the authenticated user this connection belongs to.
func (c *Conn) UserID() string { return c.userID }

// Outbound exposes the send buffer to the transport's write pump.
// The channel is closed when the hub disconnects the client.
func (c *Conn) Outbound() <-chan *domain.EnrichedMessage { return c.send }

// trySend enqueues without blocking. Returns domain.ErrSendBufferFull when
// the buffer is saturated and nil (silently dropping) when already closed.
func (c *Conn) trySend(msg *domain.EnrichedMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) addTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

func (c *Conn) removeTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, topic)
}

func (c *Conn) topicList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}
