package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// bucketTTL bounds how long an idle bucket survives in redis. An expired
// bucket simply restarts full, which only ever favors the client.
const bucketTTL = time.Hour

// RedisStore shares bucket state across instances through a redis key per
// bucket. Payloads are JSON-encoded Bucket values.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a redis-backed bucket store. keyPrefix defaults to
// "rl:" when empty.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "rl:"
	}
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Bucket, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Bucket{}, false, nil
	}
	if err != nil {
		return Bucket{}, false, err
	}

	var b Bucket
	if err := json.Unmarshal(raw, &b); err != nil {
		// Treat a corrupt entry as absent; the bucket restarts full.
		return Bucket{}, false, nil
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, b Bucket) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, bucketTTL).Err()
}
