package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores successful relay responses keyed by URL.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, rawURL string) (*Result, error)
	Set(ctx context.Context, rawURL string, result *Result) error
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, rawURL string) (*Result, error) { return nil, nil }

func (NoopCache) Set(ctx context.Context, rawURL string, result *Result) error { return nil }

const (
	redisCachePrefix  = "cubediary:relay:"
	fieldBody         = "body"
	fieldContentType  = "content_type"
	DefaultCacheTTL   = 24 * time.Hour
	DefaultCacheLimit = 2 << 20
)

// RedisCache keeps responses in a Redis hash per URL. Bodies larger than
// maxBytes are not cached.
type RedisCache struct {
	client   *redis.Client
	ttl      time.Duration
	maxBytes int
}

func NewRedisCache(client *redis.Client, ttl time.Duration, maxBytes int) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxBytes <= 0 {
		maxBytes = DefaultCacheLimit
	}
	return &RedisCache{client: client, ttl: ttl, maxBytes: maxBytes}
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return redisCachePrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, rawURL string) (*Result, error) {
	values, err := c.client.HMGet(ctx, cacheKey(rawURL), fieldBody, fieldContentType).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read relay cache: %w", err)
	}
	body, ok := values[0].(string)
	if !ok {
		return nil, nil
	}
	contentType, _ := values[1].(string)
	return &Result{Body: []byte(body), ContentType: contentType}, nil
}

func (c *RedisCache) Set(ctx context.Context, rawURL string, result *Result) error {
	if len(result.Body) > c.maxBytes {
		return nil
	}
	key := cacheKey(rawURL)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldBody, result.Body, fieldContentType, result.ContentType)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write relay cache: %w", err)
	}
	return nil
}
