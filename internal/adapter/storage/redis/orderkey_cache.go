package redis

import (
	"context"
	"fmt"
	"time"

	"trade-settlement-engine/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// Settled keys are immutable facts, but they also live in the store of
// record; the cache only has to be fresh enough to absorb repeat traffic.
const settledKeyTTL = 24 * time.Hour

// OrderKeyCache implements ports.SettledKeyCache using Redis.
type OrderKeyCache struct {
	client *goredis.Client
	prefix string
}

// NewOrderKeyCache creates a new Redis-backed settled-key cache.
func NewOrderKeyCache(client *goredis.Client) *OrderKeyCache {
	return &OrderKeyCache{
		client: client,
		prefix: "settled:",
	}
}

// Contains reports whether the business key is known settled.
func (c *OrderKeyCache) Contains(ctx context.Context, key domain.BusinessKey) (bool, error) {
	n, err := c.client.Exists(ctx, c.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis settled-key check: %w", err)
	}
	return n > 0, nil
}

// Add records a business key as settled.
func (c *OrderKeyCache) Add(ctx context.Context, key domain.BusinessKey) error {
	if err := c.client.Set(ctx, c.redisKey(key), 1, settledKeyTTL).Err(); err != nil {
		return fmt.Errorf("redis settled-key add: %w", err)
	}
	return nil
}

func (c *OrderKeyCache) redisKey(key domain.BusinessKey) string {
	return fmt.Sprintf("%s%d:%d:%s", c.prefix, key.SupplierID, key.ConsumerID, key.Title)
}
