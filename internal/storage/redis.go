package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore caches analytics responses and scraped model info. Cache
// misses and Redis errors both degrade to a direct database read.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetAnalytics returns the cached analytics payload for a timeframe, or
// false on a miss or any Redis error.
func (s *RedisStore) GetAnalytics(ctx context.Context, timeframe string) ([]byte, bool) {
	key := fmt.Sprintf("analytics:%s", timeframe)
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// SetAnalytics caches an analytics payload for a timeframe with a TTL.
func (s *RedisStore) SetAnalytics(ctx context.Context, timeframe string, payload []byte, ttl time.Duration) error {
	key := fmt.Sprintf("analytics:%s", timeframe)
	return s.client.Set(ctx, key, payload, ttl).Err()
}

// GetModelInfo returns cached scraped page data for a model URL.
func (s *RedisStore) GetModelInfo(ctx context.Context, pageURL string) ([]byte, bool) {
	val, err := s.client.Get(ctx, modelKey(pageURL)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// SetModelInfo caches scraped page data for a model URL with a TTL.
func (s *RedisStore) SetModelInfo(ctx context.Context, pageURL string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, modelKey(pageURL), payload, ttl).Err()
}

// modelKey hashes the page URL into a fixed-length, safe Redis key.
func modelKey(pageURL string) string {
	h := sha256.Sum256([]byte(pageURL))
	return fmt.Sprintf("model:%s", hex.EncodeToString(h[:]))
}
