package bus

import (
	"context"

	"github.com/streampulse/notify/internal/domain"
)

// Topic names are string-addressed. Every recipient has a personal topic,
// every channel a channel topic, and globally interesting kinds additionally
// fan out on GlobalTopic.
const GlobalTopic = "notify.global"

func UserTopic(userID string) string {
	return "notify.user." + userID
}

func ChannelTopic(channelID string) string {
	return "notify.channel." + channelID
}

// Subscription is an active topic subscription; Unsubscribe releases it.
type Subscription interface {
	Unsubscribe() error
}

// Bus is the at-least-once publish/subscribe transport between the
// enrichment worker and the realtime gateway. Delivery order across topics
// is not guaranteed; consumers deduplicate by notification id.
//
// The NATS implementation is in nats.go; tests use MemoryBus.
type Bus interface {
	Publish(ctx context.Context, topic string, msg *domain.EnrichedMessage) error
	Subscribe(topic string, fn func(*domain.EnrichedMessage)) (Subscription, error)
}
