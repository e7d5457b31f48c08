package commands

import (
	"context"
	"fmt"

	"github.com/wonny/fingear/internal/brain"
	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s0_data"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/internal/s2_signals"
	"github.com/wonny/fingear/internal/selection"
	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/config"
	"github.com/wonny/fingear/pkg/database"
	"github.com/wonny/fingear/pkg/logger"
	"github.com/wonny/fingear/pkg/redis"
)

// app holds every wired dependency of one CLI invocation
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	log      *logger.Logger

	// postgres 모드: db, reports / snapshot 모드: snapshot
	db       *database.DB
	snapshot *s0_data.MemoryStore
	reports  *selection.Repository
	redis    *redis.Client

	source contracts.MarketDataSource
	ranker s1_universe.MarketCapRanker
	latest *redis.Cache
	cache  *s2_signals.ScoreCache
}

// loadStrategy reads the strategy YAML (flag > STRATEGY_CONFIG > defaults) and
// applies environment overrides
func loadStrategy(cfg *config.Config) (*strategyconfig.Config, []byte, error) {
	path := strategyFile
	if path == "" {
		path = cfg.Screening.StrategyPath
	}

	strategy, raw, err := strategyconfig.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy: %w", err)
	}

	if cfg.Screening.TopK > 0 {
		strategy.Fundamental.TopK = cfg.Screening.TopK
	}
	if cfg.Screening.Workers > 0 {
		strategy.Pipeline.Workers = cfg.Screening.Workers
	}
	if cfg.Screening.CacheSize > 0 {
		strategy.Pipeline.CacheSize = cfg.Screening.CacheSize
	}
	if cfg.Screening.Timezone != "" {
		strategy.Meta.Timezone = cfg.Screening.Timezone
	}

	if err := strategyconfig.Validate(strategy); err != nil {
		return nil, nil, err
	}
	return strategy, raw, nil
}

// newApp loads config and connects to the configured data source
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	strategy, _, err := loadStrategy(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, strategy: strategy, log: log}

	switch cfg.DataSource {
	case "snapshot":
		store, err := s0_data.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		a.snapshot = store
		a.source = store
		a.ranker = s1_universe.MemoryRanker{Store: store}
		log.WithFields(map[string]interface{}{
			"path":    cfg.SnapshotPath,
			"symbols": len(store.Symbols()),
		}).Info("Loaded market data snapshot")

	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.db = db
		a.source = s0_data.NewRepository(db.Pool)
		a.ranker = s1_universe.NewRepository(db.Pool)
		a.reports = selection.NewRepository(db.Pool)
	}

	a.redis, err = redis.New(cfg)
	if err != nil {
		// Redis 는 선택 사항: 실패해도 in-process 캐시로 계속
		log.WithError(err).Warn("Redis unavailable, continuing without shared cache")
		a.redis = nil
	}

	var remote s2_signals.RemoteScoreStore
	if a.redis.Enabled() {
		a.latest = redis.NewCache(a.redis, "fingear")
		hash, err := strategyconfig.Hash(strategy)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("hash strategy: %w", err)
		}
		remote = s2_signals.NewRedisScoreStore(a.latest, hash)
	}

	a.cache, err = s2_signals.NewScoreCache(strategy.Pipeline.CacheSize, remote, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// orchestrator wires brain with this app's components
func (a *app) orchestrator() (*brain.Orchestrator, error) {
	comps := brain.Components{
		Source: a.source,
		Ranker: a.ranker,
		Cache:  a.cache,
		Latest: a.latest,
	}
	if a.reports != nil {
		comps.Reports = a.reports
	}
	return brain.NewOrchestrator(a.strategy, comps, a.log)
}

// universeRequest is the default universe: UNIVERSE_FILE, else market cap top N
func (a *app) universeRequest() s1_universe.Request {
	return s1_universe.Request{
		File: a.cfg.Screening.UniversePath,
		TopN: a.cfg.Screening.UniverseSize,
	}
}
