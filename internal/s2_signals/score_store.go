package s2_signals

import (
	"context"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/pkg/redis"
)

// RedisScoreStore shares fundamental scores between processes for one day.
// 키는 전략 config hash 로 구분: 다른 가중치/티어로 계산된 점수는 공유하지 않음
type RedisScoreStore struct {
	cache      *redis.Cache
	configHash string
}

var _ RemoteScoreStore = (*RedisScoreStore)(nil)

// NewRedisScoreStore wraps a redis cache helper for one strategy config
func NewRedisScoreStore(cache *redis.Cache, configHash string) *RedisScoreStore {
	return &RedisScoreStore{cache: cache, configHash: configHash}
}

// GetScore implements RemoteScoreStore
func (s *RedisScoreStore) GetScore(ctx context.Context, day, symbol string) (*contracts.FundamentalScore, bool, error) {
	var score contracts.FundamentalScore
	found, err := s.cache.Get(ctx, redis.FundamentalScoreKey(s.configHash, day, symbol), &score)
	if err != nil || !found {
		return nil, false, err
	}
	return &score, true, nil
}

// SetScore implements RemoteScoreStore
func (s *RedisScoreStore) SetScore(ctx context.Context, day, symbol string, score *contracts.FundamentalScore) error {
	return s.cache.Set(ctx, redis.FundamentalScoreKey(s.configHash, day, symbol), score, redis.TTLDaily)
}

// ResetDay implements RemoteScoreStore. Other strategies' entries are untouched.
func (s *RedisScoreStore) ResetDay(ctx context.Context, day string) error {
	_, err := s.cache.DeletePattern(ctx, redis.FundamentalScorePattern(s.configHash, day))
	return err
}
