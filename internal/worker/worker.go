package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/bus"
	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/enrich"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/queue"
	"github.com/streampulse/notify/internal/repository"
)

// Worker is a single goroutine that pulls pending-event ids from the work
// queue and runs each through enrich → persist → publish → retire.
//
// Several workers (and several whole processes) may process the same id
// concurrently. That is safe, only wasteful: the persistence step is an
// idempotent upsert keyed by the event id, and bus consumers deduplicate.
// No claim lock is taken anywhere.
type Worker struct {
	id          int
	q           *queue.Queue
	store       pending.Store
	enricher    *enrich.Enricher
	repo        repository.NotificationRepository
	bus         bus.Bus
	globalKinds map[domain.EventKind]bool
	maxAttempts int
	logger      *zap.Logger

	// Hooks for metrics — injected by the pool so the worker stays metrics-agnostic.
	onEnriched       func(kind domain.EventKind, degraded bool, latency time.Duration)
	onParked         func(kind domain.EventKind)
	onPublishFailure func(topic string)
}

func NewWorker(
	id int,
	q *queue.Queue,
	store pending.Store,
	enricher *enrich.Enricher,
	repo repository.NotificationRepository,
	b bus.Bus,
	globalKinds map[domain.EventKind]bool,
	maxAttempts int,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	if hooks.OnEnriched == nil {
		hooks.OnEnriched = func(domain.EventKind, bool, time.Duration) {}
	}
	if hooks.OnParked == nil {
		hooks.OnParked = func(domain.EventKind) {}
	}
	if hooks.OnPublishFailure == nil {
		hooks.OnPublishFailure = func(string) {}
	}
	return &Worker{
		id: id, q: q, store: store, enricher: enricher, repo: repo, bus: b,
		globalKinds: globalKinds, maxAttempts: maxAttempts, logger: logger,
		onEnriched:       hooks.OnEnriched,
		onParked:         hooks.OnParked,
		onPublishFailure: hooks.OnPublishFailure,
	}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("enrichment worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("enrichment worker stopping", zap.Int("id", w.id))
			return
		}
		// Cancellation stops the loop between items, never mid-item: a
		// dequeued event runs its full cycle or fails atomically.
		w.process(context.WithoutCancel(ctx), item.EventID)
	}
}

func (w *Worker) process(ctx context.Context, eventID string) {
	start := time.Now()
	log := w.logger.With(zap.String("event_id", eventID))

	ev, err := w.store.Get(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		// Another worker got here first and retired the marker.
		log.Debug("pending event already retired")
		return
	}
	if err != nil {
		log.Error("failed to read pending event", zap.Error(err))
		return
	}

	n, degraded, err := w.enricher.Enrich(ctx, ev)
	if err != nil {
		w.handleEnrichFailure(ctx, ev, err, log)
		return
	}

	if err := w.repo.Upsert(ctx, n); err != nil {
		// Marker stays in place; the event is retried on the next pass.
		log.Error("failed to persist notification", zap.Error(err))
		return
	}

	w.publish(ctx, ev, n, log)

	// The durable row is already committed; a failed retirement only means
	// the next pass redoes work that the upsert and client dedupe absorb.
	if err := w.store.Retire(ctx, eventID); err != nil {
		log.Warn("failed to retire pending marker", zap.Error(err))
	}

	w.onEnriched(ev.Kind, degraded, time.Since(start))
	log.Info("notification enriched",
		zap.String("kind", string(ev.Kind)),
		zap.String("user_id", n.UserID),
		zap.Bool("degraded", degraded),
		zap.Duration("latency", time.Since(start)),
	)
}

// publish fans the enriched message out on the recipient's personal topic,
// the channel topic, and the global topic for globally interesting kinds.
// Publish is best-effort: the durable row is the delivery-of-record, so a
// bus failure is logged and never rolls back or re-triggers persistence.
func (w *Worker) publish(ctx context.Context, ev *domain.PendingEvent, n *domain.Notification, log *zap.Logger) {
	msg := &domain.EnrichedMessage{
		Notification: *n,
		PublishedAt:  time.Now().UTC(),
	}

	topics := []string{
		bus.UserTopic(n.UserID),
		bus.ChannelTopic(ev.ChannelID),
	}
	if w.globalKinds[ev.Kind] {
		topics = append(topics, bus.GlobalTopic)
	}

	for _, topic := range topics {
		if err := w.bus.Publish(ctx, topic, msg); err != nil {
			w.onPublishFailure(topic)
			log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// handleEnrichFailure distinguishes permanent failures (recipient gone) from
// transient ones. Transient failures leave the marker untouched for the next
// pass. Permanent failures bump the attempt counter and, at the cap, move
// the id to the parked collection.
func (w *Worker) handleEnrichFailure(ctx context.Context, ev *domain.PendingEvent, enrichErr error, log *zap.Logger) {
	if !errors.Is(enrichErr, domain.ErrSubjectGone) {
		log.Warn("transient enrichment failure, will retry", zap.Error(enrichErr))
		return
	}

	attempts, err := w.store.BumpAttempts(ctx, ev.ID)
	if err != nil {
		log.Error("failed to bump attempt counter", zap.Error(err))
		return
	}

	if attempts < w.maxAttempts {
		log.Warn("permanent-looking enrichment failure",
			zap.Int("attempts", attempts), zap.Error(enrichErr))
		return
	}

	if err := w.store.Park(ctx, ev.ID); err != nil {
		log.Error("failed to park event", zap.Error(err))
		return
	}
	w.onParked(ev.Kind)
	log.Error("event parked after repeated enrichment failures",
		zap.Int("attempts", attempts), zap.Error(enrichErr))
}
