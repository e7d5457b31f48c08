package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes keys; missing keys are not an error
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || !c.client.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Redis().Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeletePattern removes every key under prefix:cache:<pattern>
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if c == nil || !c.client.Enabled() {
		return 0, nil
	}

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Redis().Scan(ctx, cursor, c.fullKey(pattern), 200).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Redis().Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache delete: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Predefined TTLs
const (
	TTLMedium = 10 * time.Minute // 스크리닝 리포트
	TTLDaily  = 24 * time.Hour   // 일별 점수
)

// FundamentalScoreKey keys a fundamental score by strategy config hash, then
// evaluation date, so a date rollover drops one day of one strategy with one pattern.
func FundamentalScoreKey(configHash, date, symbol string) string {
	return fmt.Sprintf("fundamental:%s:%s:%s", configHash, date, symbol)
}

// FundamentalScorePattern matches every score of one strategy on one evaluation date
func FundamentalScorePattern(configHash, date string) string {
	return fmt.Sprintf("fundamental:%s:%s:*", configHash, date)
}

// LatestReportKey caches the most recent screening report
func LatestReportKey() string {
	return "screening:latest"
}
