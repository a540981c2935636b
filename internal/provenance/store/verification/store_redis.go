package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
)

// Result is the cached outcome of a verification check.
type Result struct {
	IsAuthentic  bool         `json:"is_authentic"`
	CurrentOwner id.Principal `json:"current_owner"`
}

// RedisCache caches verification results so the public Verify endpoint can
// absorb read traffic without touching the product store. Entries are
// invalidated on every custody change, so a hit is never staler than the
// last committed transfer plus the TTL bound.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(productID id.ProductID) string {
	return "verify:" + productID.String()
}

// Find returns the cached result, or sentinel.ErrNotFound on a miss.
func (c *RedisCache) Find(ctx context.Context, productID id.ProductID) (*Result, error) {
	raw, err := c.client.Get(ctx, cacheKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get verification cache: %w", err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode verification cache: %w", err)
	}
	return &res, nil
}

// Save stores the result with the configured TTL.
func (c *RedisCache) Save(ctx context.Context, productID id.ProductID, res *Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode verification cache: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(productID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set verification cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached result after a custody change.
func (c *RedisCache) Invalidate(ctx context.Context, productID id.ProductID) error {
	if err := c.client.Del(ctx, cacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("invalidate verification cache: %w", err)
	}
	return nil
}
