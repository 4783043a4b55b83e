package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisSnapshots persists conversation state as JSON under a TTL, so a
// restarted process picks live conversations back up.
type RedisSnapshots struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRedisSnapshots creates the Redis-backed snapshot store.
func NewRedisSnapshots(client *redis.Client, tracer trace.Tracer, ttl time.Duration) *RedisSnapshots {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("stickynet.internal.session")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSnapshots{redis: client, tracer: tracer, ttl: ttl}
}

func (s *RedisSnapshots) Save(ctx context.Context, state *State) error {
	ctx, span := s.tracer.Start(ctx, "session.save_snapshot")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, snapshotKey(state.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisSnapshots) Load(ctx context.Context, id string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "session.load_snapshot")
	defer span.End()

	data, err := s.redis.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode state: %w", err)
	}
	return &state, nil
}

func snapshotKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
