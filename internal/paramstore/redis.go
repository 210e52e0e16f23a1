package paramstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/themirrorplatform/trading-bot-sub000/internal/learning"
)

const defaultKey = "paramstore:current"

// KV is the narrow slice of go-redis/v9's *redis.Client this package
// actually needs, kept as an interface so tests can fake it directly
// rather than standing up a mock broker connection.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ClientKV adapts a *redis.Client to KV.
type ClientKV struct {
	Client *redis.Client
}

func (c ClientKV) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c ClientKV) Set(ctx context.Context, key string, value []byte) error {
	return c.Client.Set(ctx, key, value, 0).Err()
}

// RedisStore publishes ParameterState to a shared Redis key, for when the
// learning loop and belief/decision readers run as separate processes.
// Grounded on data/cache/cache.go's redisCache adapter (short per-call
// timeout, key/value over go-redis/v9) generalized from byte blobs to a
// JSON-encoded ParameterState snapshot.
type RedisStore struct {
	kv      KV
	key     string
	timeout time.Duration
}

// NewRedisStore wraps any KV implementation (typically ClientKV over an
// already-configured *redis.Client).
func NewRedisStore(kv KV, key string, timeout time.Duration) *RedisStore {
	if key == "" {
		key = defaultKey
	}
	return &RedisStore{kv: kv, key: key, timeout: timeout}
}

var _ Store = (*RedisStore)(nil)

// Publish serializes state to JSON and SETs it, replacing whatever
// snapshot was there in one atomic write (spec.md §5 "swap-on-write").
func (s *RedisStore) Publish(state *learning.ParameterState) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := json.Marshal(state)
	if err != nil {
		// A marshal failure here means ParameterState itself is no longer
		// JSON-safe -- a programming error, not a runtime data condition.
		panic(fmt.Sprintf("paramstore: marshal parameter state: %v", err))
	}
	_ = s.kv.Set(ctx, s.key, raw)
}

// Current fetches and deserializes the most recently published snapshot,
// returning nil if nothing has been published yet or Redis is unreachable
// (a reader falling back to its last known-good local copy is the caller's
// concern, not this store's).
func (s *RedisStore) Current() *learning.ParameterState {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil
	}
	var state learning.ParameterState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil
	}
	return &state
}
