package visit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// maxUpdateRetries bounds optimistic-lock retries under write contention.
const maxUpdateRetries = 5

// RedisStore persists visits in Redis, one JSON document per visit id.
// Updates run inside a WATCH transaction so concurrent mutations of the
// same visit retry instead of losing writes.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed visit store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("visit: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("reprocare.internal.visit.redis"),
	}
}

// Create stores a new visit record.
func (s *RedisStore) Create(ctx context.Context, v *Visit) error {
	ctx, span := s.tracer.Start(ctx, "visit.redis_create")
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("visit: failed to marshal record: %w", err)
	}
	if err := s.redis.Set(ctx, visitKey(v.ID), data, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("visit: failed to persist record: %w", err)
	}
	return nil
}

// Get loads a visit by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Visit, error) {
	ctx, span := s.tracer.Start(ctx, "visit.redis_get")
	defer span.End()

	data, err := s.redis.Get(ctx, visitKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("visit: failed to load record: %w", err)
	}

	var v Visit
	if err := json.Unmarshal(data, &v); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("visit: failed to decode record: %w", err)
	}
	return &v, nil
}

// Update applies fn inside a WATCH transaction on the visit key. The
// transaction retries when another writer commits first, up to
// maxUpdateRetries attempts.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Visit) error) (*Visit, error) {
	ctx, span := s.tracer.Start(ctx, "visit.redis_update")
	defer span.End()

	key := visitKey(id)
	var updated *Visit

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("visit: failed to load record: %w", err)
		}

		var v Visit
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("visit: failed to decode record: %w", err)
		}
		if err := fn(&v); err != nil {
			return err
		}

		next, err := json.Marshal(&v)
		if err != nil {
			return fmt.Errorf("visit: failed to marshal record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &v
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		span.RecordError(err)
		return nil, err
	}
	return nil, fmt.Errorf("visit: update of %s kept losing races, giving up", id)
}

func visitKey(id string) string {
	return fmt.Sprintf("visit:%s", id)
}
