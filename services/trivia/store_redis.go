package trivia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisRoundPrefix = "trivia:round:"
	redisRoundSet    = "trivia:rounds"
	DefaultRoundTTL  = 24 * time.Hour
)

// RedisStore shares active rounds between instances through Redis. Each
// round is a JSON value with a TTL; a set indexes the live ids.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps client. A non-positive ttl uses DefaultRoundTTL.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRoundTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func roundKey(id string) string { return redisRoundPrefix + id }

func (s *RedisStore) Save(ctx context.Context, r Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	if err := s.client.Set(ctx, roundKey(r.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save round %s: %w", r.ID, err)
	}
	if err := s.client.SAdd(ctx, redisRoundSet, r.ID).Err(); err != nil {
		return fmt.Errorf("index round %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Round, error) {
	data, err := s.client.Get(ctx, roundKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Round{}, fmt.Errorf("%w: %s", ErrRoundNotFound, id)
	}
	if err != nil {
		return Round{}, fmt.Errorf("get round %s: %w", id, err)
	}
	var r Round
	if err := json.Unmarshal(data, &r); err != nil {
		return Round{}, fmt.Errorf("decode round %s: %w", id, err)
	}
	return r, nil
}

// Delete removes the round. Only the caller whose DEL removed the key
// gets true, even when the index cleanup after it fails.
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, roundKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("delete round %s: %w", id, err)
	}
	// A stale index entry is pruned by List.
	_ = s.client.SRem(ctx, redisRoundSet, id).Err()
	return n > 0, nil
}

// List returns live rounds oldest first. Ids whose value expired are
// pruned from the index.
func (s *RedisStore) List(ctx context.Context) ([]Round, error) {
	ids, err := s.client.SMembers(ctx, redisRoundSet).Result()
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	out := make([]Round, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if errors.Is(err, ErrRoundNotFound) {
			s.client.SRem(ctx, redisRoundSet, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortRounds(out)
	return out, nil
}
