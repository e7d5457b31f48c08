package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/internal/s2_signals"
	"github.com/wonny/fingear/internal/selection"
	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/logger"
	"github.com/wonny/fingear/pkg/redis"
)

// ReportSaver persists a finished screening report
type ReportSaver interface {
	SaveReport(ctx context.Context, report *contracts.ScreeningReport) error
}

// LatestInvalidator drops the cached latest report after a save
type LatestInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// Components are the collaborators of an Orchestrator.
// Ranker, Reports and Latest may be nil.
type Components struct {
	Source  contracts.MarketDataSource
	Ranker  s1_universe.MarketCapRanker
	Cache   *s2_signals.ScoreCache
	Reports ReportSaver
	Latest  LatestInvalidator
}

// Orchestrator coordinates one screening run: S1 universe → S2/S3/S4 screen → save
// ⭐ SSOT: 실행 조율은 여기서만
type Orchestrator struct {
	cfg        *strategyconfig.Config
	configHash string
	location   *time.Location

	universe *s1_universe.Builder
	screener *selection.Screener
	cache    *s2_signals.ScoreCache
	reports  ReportSaver
	latest   LatestInvalidator

	logger *logger.Logger
}

// RunConfig holds configuration for a run
type RunConfig struct {
	Date     time.Time // zero → 오늘 (전략 timezone)
	RunID    string    // 비어 있으면 생성
	Universe s1_universe.Request
	DryRun   bool // true 이면 저장 생략
}

// RunResult holds the outcome of a run
type RunResult struct {
	RunID      string
	Date       time.Time
	Success    bool
	Error      error
	Universe   *contracts.Universe
	Report     *contracts.ScreeningReport
	Warnings   []strategyconfig.Warning
	Saved      bool
	CacheStats s2_signals.CacheStats
	Duration   time.Duration
}

// NewOrchestrator validates cfg (fail fast) and wires the pipeline
func NewOrchestrator(cfg *strategyconfig.Config, comps Components, log *logger.Logger) (*Orchestrator, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Meta.Timezone)
	if err != nil {
		return nil, &contracts.ConfigurationError{Field: "meta.timezone", Message: err.Error()}
	}

	cache := comps.Cache
	if cache == nil {
		cache, err = s2_signals.NewScoreCache(cfg.Pipeline.CacheSize, nil, log)
		if err != nil {
			return nil, err
		}
	}

	screener, err := selection.NewFromConfig(comps.Source, cfg, cache, log)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:        cfg,
		configHash: hash,
		location:   loc,
		universe:   s1_universe.NewBuilder(comps.Ranker, log),
		screener:   screener,
		cache:      cache,
		reports:    comps.Reports,
		latest:     comps.Latest,
		logger:     log,
	}, nil
}

// ConfigHash returns the hash recorded on every report
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// Today returns the current date in the strategy timezone
func (o *Orchestrator) Today() time.Time {
	return o.day(time.Now())
}

func (o *Orchestrator) day(t time.Time) time.Time {
	t = t.In(o.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, o.location)
}

// Run executes one screening run
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	startTime := time.Now()

	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}
	if rc.Date.IsZero() {
		rc.Date = o.Today()
	}

	result := &RunResult{
		RunID:    rc.RunID,
		Date:     rc.Date,
		Warnings: strategyconfig.Warn(o.cfg),
	}
	log := o.logger.WithRun(rc.RunID, rc.Date)

	log.WithFields(map[string]interface{}{
		"strategy":    o.cfg.Meta.StrategyID,
		"config_hash": o.configHash,
		"dry_run":     rc.DryRun,
	}).Info("Starting screening run")

	for _, w := range result.Warnings {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	// 날짜 단위 캐시 초기화
	o.cache.Reset(ctx, rc.Date)

	// S1: Universe
	universe, err := o.universe.Build(ctx, rc.Date, rc.Universe)
	if err != nil {
		result.Error = fmt.Errorf("S1 failed: %w", err)
		return result, result.Error
	}
	result.Universe = universe

	// S2 → S4
	report, err := o.screener.Screen(ctx, universe.Stocks, rc.Date)
	if err != nil {
		result.Error = fmt.Errorf("screening failed: %w", err)
		return result, result.Error
	}
	report.RunID = rc.RunID
	report.ConfigHash = o.configHash
	result.Report = report
	result.CacheStats = o.cache.Stats()

	if !rc.DryRun && o.reports != nil {
		if err := o.reports.SaveReport(ctx, report); err != nil {
			result.Error = fmt.Errorf("save report: %w", err)
			return result, result.Error
		}
		result.Saved = true

		// 과거 날짜 재실행도 있으므로 덮어쓰지 않고 삭제, 다음 조회가 DB 기준으로 채움
		if o.latest != nil {
			if err := o.latest.Delete(ctx, redis.LatestReportKey()); err != nil {
				log.WithError(err).Warn("Failed to invalidate latest report cache")
			}
		}
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"universe":    report.UniverseSize,
		"results":     len(report.Results),
		"exclusions":  len(report.Exclusions),
		"signals":     report.SignalCounts(),
		"reasons":     report.ExclusionCounts(),
		"cache_hits":  result.CacheStats.Hits,
		"cache_miss":  result.CacheStats.Misses,
		"saved":       result.Saved,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Screening run completed")

	return result, nil
}
