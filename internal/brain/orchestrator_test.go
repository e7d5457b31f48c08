package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s0_data"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/internal/strategyconfig"
)

type recordingSaver struct {
	saved []*contracts.ScreeningReport
	err   error
}

func (r *recordingSaver) SaveReport(_ context.Context, report *contracts.ScreeningReport) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, report)
	return nil
}

func testStore() *s0_data.MemoryStore {
	store := s0_data.NewMemoryStore()
	store.PutMarketCap("2330", 900)
	store.PutMarketCap("2317", 500)
	store.PutMarketCap("1101", 100)
	// 분기 3개 → S2 data insufficient
	quarters := make([]contracts.FundamentalQuarter, 3)
	for i := range quarters {
		quarters[i] = contracts.FundamentalQuarter{
			Period:      []string{"2024Q3", "2024Q4", "2025Q1"}[i],
			ReportDate:  time.Date(2024, 11, 14, 0, 0, 0, 0, time.UTC).AddDate(0, 3*i, 0),
			Revenue:     100,
			GrossProfit: 40,
			TotalAssets: 100,
		}
	}
	store.PutFundamental(&contracts.FundamentalRecord{Symbol: "2330", Quarters: quarters})
	return store
}

func TestOrchestrator_Run(t *testing.T) {
	saver := &recordingSaver{}
	store := testStore()
	cfg := strategyconfig.Default()

	o, err := NewOrchestrator(cfg, Components{
		Source:  store,
		Ranker:  s1_universe.MemoryRanker{Store: store},
		Reports: saver,
	}, nil)
	require.NoError(t, err)

	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	result, err := o.Run(context.Background(), RunConfig{
		Date:     date,
		Universe: s1_universe.Request{TopN: 3},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Saved)
	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)

	hash, err := strategyconfig.Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, hash, o.ConfigHash())

	require.Len(t, saver.saved, 1)
	report := saver.saved[0]
	assert.Equal(t, result.RunID, report.RunID)
	assert.Equal(t, hash, report.ConfigHash)
	assert.Equal(t, 3, report.UniverseSize)
	assert.Empty(t, report.Results)
	require.Len(t, report.Exclusions, 3)

	counts := report.ExclusionCounts()
	assert.Equal(t, 1, counts[contracts.ReasonFundamentalInsufficient])
	assert.Equal(t, 2, counts[contracts.ReasonFundamentalNotFound])

	assert.Equal(t, "2025-06-30", result.CacheStats.Day)
	assert.Equal(t, s1_universe.SourceMarketCap, result.Universe.Source)
}

type recordingInvalidator struct {
	deleted []string
}

func (r *recordingInvalidator) Delete(_ context.Context, keys ...string) error {
	r.deleted = append(r.deleted, keys...)
	return nil
}

func TestOrchestrator_InvalidatesLatestOnSave(t *testing.T) {
	latest := &recordingInvalidator{}
	store := testStore()

	o, err := NewOrchestrator(strategyconfig.Default(), Components{
		Source:  store,
		Reports: &recordingSaver{},
		Latest:  latest,
	}, nil)
	require.NoError(t, err)

	// 과거 날짜 재실행
	backfill := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err = o.Run(context.Background(), RunConfig{Date: backfill, Universe: s1_universe.Request{Symbols: []string{"2330"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"screening:latest"}, latest.deleted)

	// dry run 은 저장하지 않으므로 그대로
	_, err = o.Run(context.Background(), RunConfig{Date: backfill, DryRun: true, Universe: s1_universe.Request{Symbols: []string{"2330"}}})
	require.NoError(t, err)
	assert.Len(t, latest.deleted, 1)
}

func TestOrchestrator_DryRunAndExplicitRunID(t *testing.T) {
	saver := &recordingSaver{}
	store := testStore()

	o, err := NewOrchestrator(strategyconfig.Default(), Components{Source: store, Reports: saver}, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background(), RunConfig{
		RunID:    "manual-1",
		DryRun:   true,
		Universe: s1_universe.Request{Symbols: []string{"2330"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "manual-1", result.Report.RunID)
	assert.False(t, result.Saved)
	assert.Empty(t, saver.saved)
	assert.Equal(t, o.Today(), result.Date)
}

func TestOrchestrator_SaveFailure(t *testing.T) {
	saver := &recordingSaver{err: errors.New("db down")}
	store := testStore()

	o, err := NewOrchestrator(strategyconfig.Default(), Components{Source: store, Reports: saver}, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background(), RunConfig{Universe: s1_universe.Request{Symbols: []string{"2330"}}})
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.NotNil(t, result.Report)
}

func TestNewOrchestrator_InvalidConfig(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Flow.Weights.TrustStreak = 0.9

	_, err := NewOrchestrator(cfg, Components{Source: s0_data.NewMemoryStore()}, nil)
	require.Error(t, err)
	assert.True(t, contracts.IsConfiguration(err))
}

func TestOrchestrator_UniverseError(t *testing.T) {
	o, err := NewOrchestrator(strategyconfig.Default(), Components{Source: s0_data.NewMemoryStore()}, nil)
	require.NoError(t, err)

	// 시가총액 소스 없음
	result, err := o.Run(context.Background(), RunConfig{Universe: s1_universe.Request{TopN: 5}})
	require.Error(t, err)
	assert.True(t, contracts.IsConfiguration(err))
	assert.Nil(t, result.Report)
}
