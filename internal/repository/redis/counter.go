// Package redis implements the watchdog volume counter on Redis so that
// several instances share rolling send counts.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadflow/internal/domain"
)

// DefaultKey is the sorted set holding recent sends.
const DefaultKey = "leadflow:watchdog:sent"

// VolumeCounter implements watchdog.VolumeCounter with a sorted set scored
// by send time in milliseconds. Entries older than the window are trimmed
// on every write.
type VolumeCounter struct {
	client *redis.Client
	key    string
	window time.Duration
}

// NewVolumeCounter creates a counter over key retaining window of history.
// An empty key uses DefaultKey.
func NewVolumeCounter(client *redis.Client, key string, window time.Duration) *VolumeCounter {
	if key == "" {
		key = DefaultKey
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &VolumeCounter{client: client, key: key, window: window}
}

// Record adds one send. Trimming, insert and expiry run in one transaction.
func (c *VolumeCounter) Record(ctx context.Context, msg domain.OutboundMessage, at time.Time) error {
	score := at.UnixMilli()
	member := msg.ID
	if member == "" {
		member = strconv.FormatInt(at.UnixNano(), 10)
	}
	cutoff := at.Add(-c.window).UnixMilli()

	pipe := c.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, c.key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, c.key, redis.Z{Score: float64(score), Member: member})
	pipe.Expire(ctx, c.key, c.window+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record send in redis: %w", err)
	}
	return nil
}

// CountSince counts sends at or after since.
func (c *VolumeCounter) CountSince(ctx context.Context, since time.Time) (int, error) {
	n, err := c.client.ZCount(ctx, c.key, strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count sends in redis: %w", err)
	}
	return int(n), nil
}
