// Package ratelimit implements per-client token-bucket admission control in
// front of the scoring and prediction interfaces.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Bucket is the refillable token state for one (limiter, client) pair.
type Bucket struct {
	Tokens    float64   `json:"tokens"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists bucket state across requests. Implementations must keep
// the state for the lifetime of the process or backing service.
type Store interface {
	Get(ctx context.Context, key string) (Bucket, bool, error)
	Set(ctx context.Context, key string, b Bucket) error
}

// Decision is the outcome of one admission check. A denial is a normal
// result, not an error; RetryAfterSeconds tells the caller when a token
// will be available again.
type Decision struct {
	Allowed           bool    `json:"allowed"`
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`
}

// Limiter gates requests with a token bucket per (limiterID, clientID) key.
type Limiter struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// New creates a limiter over the given bucket store.
func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow refills the bucket for (limiterID, clientID) at refillPerSec up to
// capacity, then consumes one token if at least one is available. A new
// client starts with a full bucket. The read-modify-write cycle is
// serialized so concurrent checks for the same key never lose updates.
func (l *Limiter) Allow(ctx context.Context, limiterID, clientID string, capacity, refillPerSec float64) (Decision, error) {
	key := limiterID + ":" + clientID
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		bucket = Bucket{Tokens: capacity, UpdatedAt: now}
	}

	elapsed := now.Sub(bucket.UpdatedAt).Seconds()
	bucket.Tokens = math.Min(capacity, bucket.Tokens+elapsed*refillPerSec)
	bucket.UpdatedAt = now

	if bucket.Tokens >= 1 {
		bucket.Tokens--
		if err := l.store.Set(ctx, key, bucket); err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true}, nil
	}

	if err := l.store.Set(ctx, key, bucket); err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:           false,
		RetryAfterSeconds: math.Ceil((1 - bucket.Tokens) / refillPerSec),
	}, nil
}
