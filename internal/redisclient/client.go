package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireOrderLock acquires the per-order mutation lock. It returns the owner
// token on success and an empty string when another cancellation holds the
// lock.
func (c *Client) AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	key := fmt.Sprintf("lock:order:%d", orderID)

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseOrderLock releases the per-order lock if the token still owns it.
// A lock that expired and was re-acquired by someone else is left alone.
func (c *Client) ReleaseOrderLock(ctx context.Context, orderID int64, token string) error {
	key := fmt.Sprintf("lock:order:%d", orderID)

	_, err := c.releaseScript.Run(ctx, c.rdb, []string{key}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// CacheSettlementSummary caches a partner's settlement summary under the
// given window key.
func (c *Client) CacheSettlementSummary(ctx context.Context, key string, summary interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("settlement:summary:%s", key), payload, ttl).Err()
}

// GetCachedSettlementSummary loads a cached summary into dest. It returns
// false on a cache miss.
func (c *Client) GetCachedSettlementSummary(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.rdb.Get(ctx, fmt.Sprintf("settlement:summary:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(payload, dest)
}

// InvalidateSettlementSummaries drops all cached summaries for a partner,
// called after a settlement batch flips statuses.
func (c *Client) InvalidateSettlementSummaries(ctx context.Context, partnerID int64) error {
	pattern := fmt.Sprintf("settlement:summary:%d:*", partnerID)

	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
