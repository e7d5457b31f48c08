package s2_signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/strategyconfig"
)

func newTestClassifier(t *testing.T) *TechnicalClassifier {
	t.Helper()
	c, err := NewTechnicalClassifier(strategyconfig.Default().Technical, nil)
	require.NoError(t, err)
	return c
}

func TestSignalForScore(t *testing.T) {
	bands := strategyconfig.Default().Technical.Bands

	tests := []struct {
		score  float64
		expect contracts.Signal
	}{
		{0, contracts.SignalHoldReduce},
		{34.999, contracts.SignalHoldReduce},
		{35, contracts.SignalWatch},
		{49.999, contracts.SignalWatch},
		{50, contracts.SignalBuy},
		{64.999, contracts.SignalBuy},
		{64.995, contracts.SignalBuy}, // round2 이면 65.00 이지만 밴드 미달
		{65 - 1e-12, contracts.SignalStrongBuy},
		{65, contracts.SignalStrongBuy},
		{100, contracts.SignalStrongBuy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, SignalForScore(tt.score, bands), "score=%v", tt.score)
	}
}

func TestTechnicalClassifier_EntryScenario(t *testing.T) {
	c := newTestClassifier(t)
	bars := entryBars()

	a := c.Classify("2330", &contracts.PriceRecord{Symbol: "2330", Bars: bars})

	require.False(t, a.Insufficient)
	assert.Equal(t, 65.0, a.Score)
	assert.Equal(t, contracts.SignalStrongBuy, a.Signal)
	assert.Equal(t, contracts.CrossGolden, a.Cross)
	assert.Equal(t, bars[len(bars)-1].Date, a.Date)

	assert.Equal(t, 100.0, a.SubScores.MAAlignment)
	assert.Equal(t, 100.0, a.SubScores.Momentum)
	assert.Equal(t, 0.0, a.SubScores.RSI)
	assert.Equal(t, 100.0, a.SubScores.Stochastic)
	assert.Equal(t, 0.0, a.SubScores.Volume)
	assert.InDelta(t, 50.0, a.SubScores.Band, 1e-9)

	// 이격도 ~3.09% + 골든크로스
	assert.InDelta(t, 3.09, a.Bias, 0.01)
	assert.Contains(t, a.Notes, NoteEntryWindow)
	assert.NotContains(t, a.Notes, NoteOverheat)
}

func TestTechnicalClassifier_Overheat(t *testing.T) {
	c := newTestClassifier(t)
	bars := entryBars()
	bars[len(bars)-1].MALong = 80 // 이격도 25%

	a := c.Classify("2317", &contracts.PriceRecord{Bars: bars})

	assert.Equal(t, 65.0, a.Score)
	assert.Equal(t, contracts.SignalReduce, a.Signal)
	assert.Contains(t, a.Notes, NoteOverheat)
	assert.NotContains(t, a.Notes, NoteEntryWindow)
}

func TestTechnicalClassifier_OverheatDisabled(t *testing.T) {
	cfg := strategyconfig.Default().Technical
	cfg.OverheatBiasPct = 0
	c, err := NewTechnicalClassifier(cfg, nil)
	require.NoError(t, err)

	bars := entryBars()
	bars[len(bars)-1].MALong = 80

	a := c.Classify("2317", &contracts.PriceRecord{Bars: bars})
	assert.Equal(t, contracts.SignalStrongBuy, a.Signal)
}

func TestTechnicalClassifier_Insufficient(t *testing.T) {
	c := newTestClassifier(t)
	assert.Equal(t, 21, c.MinBars())

	t.Run("short history", func(t *testing.T) {
		bars := entryBars()[1:]
		a := c.Classify("6505", &contracts.PriceRecord{Bars: bars})

		assert.True(t, a.Insufficient)
		assert.Equal(t, contracts.SignalDataInsufficient, a.Signal)
		require.Len(t, a.Missing, 1)
		assert.Contains(t, a.Missing[0], "need 21")
	})

	t.Run("missing indicator", func(t *testing.T) {
		bars := entryBars()
		bars[len(bars)-1].MALong = math.NaN()
		bars[len(bars)-1].K = math.NaN()

		a := c.Classify("6505", &contracts.PriceRecord{Bars: bars})

		assert.True(t, a.Insufficient)
		assert.Equal(t, []string{"ma_long", "k"}, a.Missing)
	})

	t.Run("nil record", func(t *testing.T) {
		a := c.Classify("6505", nil)
		assert.True(t, a.Insufficient)
		assert.Equal(t, contracts.CrossNone, a.Cross)
	})
}

func TestTechnicalClassifier_ScoreRange(t *testing.T) {
	c := newTestClassifier(t)
	bars := entryBars()

	// 상승일 + 거래량 급증
	last := &bars[len(bars)-1]
	last.Close = 130
	last.Volume = 5000

	a := c.Classify("2454", &contracts.PriceRecord{Bars: bars})
	require.False(t, a.Insufficient)
	assert.Equal(t, 100.0, a.SubScores.Volume)
	assert.GreaterOrEqual(t, a.Score, 0.0)
	assert.LessOrEqual(t, a.Score, 100.0)
	assert.Greater(t, a.PercentB, 0.9)
}

func TestStochasticCross(t *testing.T) {
	bar := func(k, d float64) contracts.PriceBar { return contracts.PriceBar{K: k, D: d} }

	tests := []struct {
		name   string
		bars   []contracts.PriceBar
		expect contracts.StochCross
	}{
		{"single bar", []contracts.PriceBar{bar(30, 20)}, contracts.CrossNone},
		{"empty", nil, contracts.CrossNone},
		{"golden", []contracts.PriceBar{bar(20, 25), bar(30, 25)}, contracts.CrossGolden},
		{"golden from touch", []contracts.PriceBar{bar(25, 25), bar(30, 25)}, contracts.CrossGolden},
		{"death", []contracts.PriceBar{bar(30, 25), bar(20, 25)}, contracts.CrossDeath},
		{"stays above", []contracts.PriceBar{bar(30, 25), bar(35, 25)}, contracts.CrossNone},
		{"stays below", []contracts.PriceBar{bar(20, 25), bar(22, 25)}, contracts.CrossNone},
		{"nan", []contracts.PriceBar{bar(math.NaN(), 25), bar(30, 25)}, contracts.CrossNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, StochasticCross(tt.bars))
		})
	}
}

func TestRSI(t *testing.T) {
	up := make([]float64, 15)
	down := make([]float64, 15)
	flat := make([]float64, 15)
	for i := range up {
		up[i] = float64(100 + i)
		down[i] = float64(100 - i)
		flat[i] = 100
	}

	assert.Equal(t, 100.0, RSI(up, 14))
	assert.Equal(t, 0.0, RSI(down, 14))
	assert.Equal(t, 50.0, RSI(flat, 14))
	assert.True(t, math.IsNaN(RSI(up[:10], 14)))

	mixed := []float64{10, 11, 10, 11}
	// gains 2, losses 1 → RS 2 → 66.67
	assert.InDelta(t, 66.67, RSI(mixed, 3), 0.01)

	// 단순 평균: 마지막 period 개 변화만 사용 (앞선 +10/-10 은 무시, 평활화 시 53.5)
	longer := []float64{10, 20, 10, 11, 10, 11}
	assert.InDelta(t, 66.67, RSI(longer, 3), 0.01)
}

func TestIndicatorHelpers(t *testing.T) {
	assert.Equal(t, 0.5, PercentB(100, 100, 100))
	assert.Equal(t, 0.0, PercentB(50, 120, 80))
	assert.Equal(t, 1.0, PercentB(150, 120, 80))

	assert.Equal(t, 0.0, Bias(100, 0))
	assert.InDelta(t, 25.0, Bias(100, 80), 1e-9)

	mid, upper, lower := Bollinger([]float64{1, 2, 3, 4, 5}, 5, 2)
	assert.Equal(t, 3.0, mid)
	assert.InDelta(t, upper-mid, mid-lower, 1e-9)

	bars := entryBars()
	assert.Equal(t, 1.0, VolumeRatio(bars, 20))
	assert.True(t, math.IsNaN(VolumeRatio(bars[:5], 20)))
}
