package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// keyPrefix namespaces cache entries away from the queue keys sharing the same
// Redis instance.
const keyPrefix = "cache:"

// Redis is a Store backed by a shared Redis instance. Expiry uses Redis TTLs,
// which matches the lazy-eviction contract: an expired key simply reads as
// absent.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and verifies the connection before returning.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client, sharing the queue's connection.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, hashKey string) ([]byte, bool) {
	payload, err := r.client.Get(ctx, keyPrefix+hashKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		// Cache trouble is never a run failure; log and treat as a miss.
		log.Printf("[Cache] Read error for %s, treating as miss: %v", hashKey, err)
		return nil, false
	}

	var parsed entry
	if err := json.Unmarshal(payload, &parsed); err != nil {
		log.Printf("[Cache] Malformed entry for %s, treating as miss", hashKey)
		return nil, false
	}
	return parsed.Value, true
}

func (r *Redis) Put(ctx context.Context, hashKey, kind string, value []byte, ttl time.Duration) error {
	payload, err := json.Marshal(entry{Kind: kind, Value: value})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if ttl <= 0 {
		ttl = 0 // redis: 0 expiration = no expiry
	}
	return r.client.Set(ctx, keyPrefix+hashKey, payload, ttl).Err()
}
