package s2_signals

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/pkg/logger"
)

// RemoteScoreStore is an optional shared tier behind the in-process cache
type RemoteScoreStore interface {
	GetScore(ctx context.Context, day, symbol string) (*contracts.FundamentalScore, bool, error)
	SetScore(ctx context.Context, day, symbol string, score *contracts.FundamentalScore) error
	ResetDay(ctx context.Context, day string) error
}

// ScoreCache memoizes fundamental scores per (evaluation date, symbol).
// ⭐ SSOT: 날짜가 바뀌면 전체 무효화, 완료된 점수만 저장
type ScoreCache struct {
	mu     sync.RWMutex
	day    string
	store  *lru.Cache
	group  singleflight.Group
	remote RemoteScoreStore
	logger *logger.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
}

// CacheStats counts cache activity since the last reset
type CacheStats struct {
	Day      string `json:"day"`
	Size     int    `json:"size"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Computes int64  `json:"computes"`
}

// NewScoreCache creates a bounded cache. remote may be nil.
func NewScoreCache(size int, remote RemoteScoreStore, log *logger.Logger) (*ScoreCache, error) {
	store, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create score cache: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ScoreCache{store: store, remote: remote, logger: log}, nil
}

func dayKey(date time.Time) string {
	return date.Format("2006-01-02")
}

// Reset drops every entry and pins the cache to date.
// 실행 시작 시 명시적으로 호출
func (c *ScoreCache) Reset(ctx context.Context, date time.Time) {
	day := dayKey(date)

	c.mu.Lock()
	c.day = day
	c.store.Purge()
	c.mu.Unlock()

	c.hits.Store(0)
	c.misses.Store(0)
	c.computes.Store(0)

	if c.remote != nil {
		if err := c.remote.ResetDay(ctx, day); err != nil {
			c.logger.WithError(err).WithField("day", day).Warn("Failed to reset remote score cache")
		}
	}
}

// rollover purges when a request arrives for a different date than the pinned one
func (c *ScoreCache) rollover(day string) {
	c.mu.RLock()
	same := c.day == day
	c.mu.RUnlock()
	if same {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day != day {
		c.logger.WithFields(map[string]interface{}{
			"from": c.day,
			"to":   day,
		}).Debug("Score cache date rollover")
		c.day = day
		c.store.Purge()
	}
}

func (c *ScoreCache) lookup(key string) (*contracts.FundamentalScore, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*contracts.FundamentalScore), true
}

// GetOrCompute returns the cached score or runs compute exactly once per key.
// Concurrent callers for the same key share one computation.
// Errors and cancelled computations are never stored.
func (c *ScoreCache) GetOrCompute(
	ctx context.Context,
	date time.Time,
	symbol string,
	compute func() (*contracts.FundamentalScore, error),
) (*contracts.FundamentalScore, error) {
	day := dayKey(date)
	c.rollover(day)
	key := day + "|" + symbol

	if score, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return score, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if score, ok := c.lookup(key); ok {
			return score, nil
		}

		if c.remote != nil {
			score, found, err := c.remote.GetScore(ctx, day, symbol)
			if err != nil {
				c.logger.WithError(err).WithStock(symbol).Debug("Remote score cache read failed")
			} else if found {
				c.insert(day, key, score)
				return score, nil
			}
		}

		c.computes.Add(1)
		score, err := compute()
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.insert(day, key, score)
		if c.remote != nil {
			if err := c.remote.SetScore(ctx, day, symbol, score); err != nil {
				c.logger.WithError(err).WithStock(symbol).Debug("Remote score cache write failed")
			}
		}
		return score, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*contracts.FundamentalScore), nil
}

// insert stores only when the cache is still pinned to day
func (c *ScoreCache) insert(day, key string, score *contracts.FundamentalScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day == day {
		c.store.Add(key, score)
	}
}

// Stats returns counters since the last reset
func (c *ScoreCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Day:      c.day,
		Size:     c.store.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}
