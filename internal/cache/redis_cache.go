package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements ReceiptCache on Redis. Connect returns nil when
// no URL is configured; all methods are nil-receiver safe.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect dials Redis from a URL. Returns nil (cache disabled) when the
// URL is empty or the server is unreachable.
func Connect(ctx context.Context, redisURL string, ttl time.Duration) *RedisCache {
	if redisURL == "" {
		log.Println("[Cache] Redis not configured - running without cache")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[Cache] Invalid REDIS_URL (running without cache): %v", err)
		return nil
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[Cache] Redis not available (running without cache): %v", err)
		return nil
	}

	log.Println("[Cache] Redis connected")
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisCache wraps an existing client. Used by tests.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type receiptValue struct {
	AudioURL    *string   `json:"audioUrl"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// StoreReceipt records a confirmed delivery.
func (c *RedisCache) StoreReceipt(ctx context.Context, messageID uuid.UUID, audioURL *string, deliveredAt time.Time) error {
	if c == nil {
		return nil
	}

	key := fmt.Sprintf("delivered:%s", messageID)
	val := receiptValue{
		AudioURL:    audioURL,
		DeliveredAt: deliveredAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
