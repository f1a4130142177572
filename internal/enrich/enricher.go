package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/repository"
)

// Enricher turns a compact pending event into a durable notification by
// attaching the denormalized display data the client needs to render it.
//
// Failure taxonomy:
//   - transient lookup error  → returned as-is; the event stays pending and
//     is retried on the worker's next pass
//   - actor row missing       → degraded: placeholder name, nil asset URLs
//   - asset base unconfigured → degraded: nil asset URLs
//   - channel row missing     → domain.ErrSubjectGone: the recipient cannot
//     be determined, so the event is permanently unprocessable
type Enricher struct {
	directory repository.DirectoryRepository
	assets    *Assets
	logger    *zap.Logger
}

func New(directory repository.DirectoryRepository, assets *Assets, logger *zap.Logger) *Enricher {
	return &Enricher{directory: directory, assets: assets, logger: logger}
}

// Enrich builds the notification record for ev. The degraded return is true
// when any placeholder or omitted asset stands in for missing data; the
// event is still delivered in that case.
func (e *Enricher) Enrich(ctx context.Context, ev *domain.PendingEvent) (*domain.Notification, bool, error) {
	degraded := !e.assets.Configured()

	channel, err := e.directory.GetChannel(ctx, ev.ChannelID)
	if errors.Is(err, domain.ErrNotFound) {
		// Without the channel row there is no recipient to deliver to.
		return nil, false, fmt.Errorf("channel %s: %w", ev.ChannelID, domain.ErrSubjectGone)
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup channel %s: %w", ev.ChannelID, err)
	}

	actor := domain.ActorRef{DisplayName: domain.PlaceholderActorName}
	subject, err := e.directory.GetUser(ctx, ev.SubjectUserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		degraded = true
		e.logger.Warn("subject user missing, using placeholder",
			zap.String("event_id", ev.ID),
			zap.String("subject_user_id", ev.SubjectUserID),
		)
	case err != nil:
		return nil, false, fmt.Errorf("lookup user %s: %w", ev.SubjectUserID, err)
	default:
		actor.DisplayName = subject.DisplayName
		actor.Slug = subject.Slug
		actor.AvatarURL = e.assets.URL(subject.AvatarKey)
		if actor.DisplayName == "" {
			actor.DisplayName = domain.PlaceholderActorName
			degraded = true
		}
	}

	channelRef := domain.ChannelRef{
		Name:      channel.Name,
		Slug:      channel.Slug,
		AvatarURL: e.assets.URL(channel.AvatarKey),
		BannerURL: e.assets.URL(channel.BannerKey),
	}
	if channelRef.Name == "" {
		channelRef.Name = domain.PlaceholderChannelName
		degraded = true
	}

	payload, err := buildPayload(ev, actor, channelRef)
	if err != nil {
		return nil, false, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	return &domain.Notification{
		ID:        ev.ID,
		UserID:    channel.OwnerID,
		Type:      ev.Kind,
		Payload:   raw,
		CreatedAt: ev.CreatedAt,
	}, degraded, nil
}

// buildPayload selects the per-kind payload variant. The switch is
// exhaustive over domain.EventKind; the default arm only fires for records
// written by a newer producer with kinds this build does not know.
func buildPayload(ev *domain.PendingEvent, actor domain.ActorRef, channel domain.ChannelRef) (domain.Payload, error) {
	switch ev.Kind {
	case domain.KindFollowed, domain.KindUnfollowed:
		return domain.FollowPayload{Actor: actor, Channel: channel}, nil
	case domain.KindTipped:
		return domain.TipPayload{Actor: actor, Channel: channel, Amount: ev.Amount, Currency: ev.Currency}, nil
	case domain.KindSubscribed:
		return domain.SubscribePayload{Actor: actor, Channel: channel}, nil
	case domain.KindRaided:
		return domain.RaidPayload{Actor: actor, Channel: channel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, ev.Kind)
	}
}
