package pending

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/streampulse/notify/internal/domain"
)

// Redis key layout:
//
//	pending:event:<id>  — JSON-encoded event record
//	pending:ids         — set of ids awaiting enrichment (the pending-index)
//	pending:attempts    — hash id → enrichment attempt count
//	pending:parked      — set of ids moved to the dead-letter collection
const (
	eventKeyPrefix = "pending:event:"
	indexKey       = "pending:ids"
	attemptsKey    = "pending:attempts"
	parkedKey      = "pending:parked"
)

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a Store backed by Redis.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

// Connect parses a redis:// URL, opens a client, and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (s *redisStore) Put(ctx context.Context, ev *domain.PendingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal pending event: %w", err)
	}

	// Record first, index second: a crash between the two leaves an orphaned
	// record that is never discovered, which is preferable to an index entry
	// pointing at nothing.
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, eventKeyPrefix+ev.ID, body, 0)
	pipe.SAdd(ctx, indexKey, ev.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write pending event: %w", err)
	}
	return nil
}

func (s *redisStore) PendingIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read pending index: %w", err)
	}
	return ids, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*domain.PendingEvent, error) {
	body, err := s.rdb.Get(ctx, eventKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read pending event: %w", err)
	}

	var ev domain.PendingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal pending event: %w", err)
	}
	return &ev, nil
}

func (s *redisStore) Retire(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.SRem(ctx, indexKey, id)
	pipe.Del(ctx, eventKeyPrefix+id)
	pipe.HDel(ctx, attemptsKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("retire pending event: %w", err)
	}
	return nil
}

func (s *redisStore) BumpAttempts(ctx context.Context, id string) (int, error) {
	n, err := s.rdb.HIncrBy(ctx, attemptsKey, id, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("bump attempts: %w", err)
	}
	return int(n), nil
}

func (s *redisStore) Park(ctx context.Context, id string) error {
	// The event record is kept so operators can inspect parked events.
	pipe := s.rdb.TxPipeline()
	pipe.SRem(ctx, indexKey, id)
	pipe.HDel(ctx, attemptsKey, id)
	pipe.SAdd(ctx, parkedKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("park pending event: %w", err)
	}
	return nil
}

func (s *redisStore) ParkedIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, parkedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read parked set: %w", err)
	}
	return ids, nil
}
