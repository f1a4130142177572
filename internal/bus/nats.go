package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/domain"
)

// NATSBus carries enriched messages as JSON over NATS subjects.
type NATSBus struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// ConnectNATS opens a NATS connection with reconnect enabled and returns a
// Bus over it.
func ConnectNATS(url string, logger *zap.Logger) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSBus{nc: nc, logger: logger}, nil
}

func (b *NATSBus) Publish(_ context.Context, topic string, msg *domain.EnrichedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal enriched message: %w", err)
	}
	if err := b.nc.Publish(topic, body); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(topic string, fn func(*domain.EnrichedMessage)) (Subscription, error) {
	sub, err := b.nc.Subscribe(topic, func(m *nats.Msg) {
		var msg domain.EnrichedMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			b.logger.Warn("dropping malformed bus message",
				zap.String("topic", topic), zap.Error(err))
			return
		}
		fn(&msg)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return sub, nil
}

// Close drains the connection so in-flight messages are handled before
// shutdown.
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}

// compile-time check that NATSBus implements Bus
var _ Bus = (*NATSBus)(nil)
