package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"drawing_tracker/internal/models"
)

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Daily bucket cache. Buckets are pure projections, so a cached entry is
// only ever a recomputation saver; every mutation invalidates the dates it
// touches and a miss falls through to the store.

func bucketKey(date string) string {
	return "day_bucket:" + date
}

func (c *Client) SetDayBucket(date string, bucket *models.DailyStatusBucket, ttl time.Duration) error {
	ctx := context.Background()
	jsonData, err := json.Marshal(bucket)
	if err != nil {
		return fmt.Errorf("failed to marshal day bucket: %w", err)
	}

	return c.rdb.Set(ctx, bucketKey(date), jsonData, ttl).Err()
}

func (c *Client) GetDayBucket(date string) (*models.DailyStatusBucket, error) {
	ctx := context.Background()
	val, err := c.rdb.Get(ctx, bucketKey(date)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("day bucket not cached")
		}
		return nil, fmt.Errorf("failed to get day bucket: %w", err)
	}

	var bucket models.DailyStatusBucket
	if err := json.Unmarshal([]byte(val), &bucket); err != nil {
		return nil, fmt.Errorf("failed to unmarshal day bucket: %w", err)
	}

	return &bucket, nil
}

func (c *Client) InvalidateDayBucket(date string) error {
	ctx := context.Background()
	return c.rdb.Del(ctx, bucketKey(date)).Err()
}

// Scan report cache, keyed by batch ID so the UI can re-fetch the outcome of
// the last reconciliation without re-running it.

func (c *Client) SetScanReport(batchID string, report interface{}, ttl time.Duration) error {
	ctx := context.Background()
	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal scan report: %w", err)
	}

	return c.rdb.Set(ctx, "scan_report:"+batchID, jsonData, ttl).Err()
}

func (c *Client) GetScanReport(batchID string, dest interface{}) error {
	ctx := context.Background()
	val, err := c.rdb.Get(ctx, "scan_report:"+batchID).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("scan report not found")
		}
		return fmt.Errorf("failed to get scan report: %w", err)
	}

	return json.Unmarshal([]byte(val), dest)
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
