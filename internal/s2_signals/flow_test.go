package s2_signals

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/strategyconfig"
)

var flowStart = time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)

func newTestGate(t *testing.T) *FlowGate {
	t.Helper()
	gate, err := NewFlowGate(strategyconfig.Default().Flow, nil)
	require.NoError(t, err)
	return gate
}

func risingHolder(symbol string, prior, latest float64) *contracts.HolderConcentration {
	return &contracts.HolderConcentration{
		Symbol:     symbol,
		Prior:      prior,
		Latest:     latest,
		PriorDate:  flowStart.AddDate(0, 0, -7),
		LatestDate: flowStart,
	}
}

func TestFlowGate_StrongPass(t *testing.T) {
	gate := newTestGate(t)
	flow := &contracts.FlowRecord{Symbol: "2330", Days: flowDays(flowStart,
		[3]int64{1500, 300, 100},
		[3]int64{1200, 200, 50},
		[3]int64{2000, 500, 80},
		[3]int64{1800, 250, 60},
		[3]int64{1600, 400, 90},
	)}

	a := gate.Evaluate("2330", flow, risingHolder("2330", 50.0, 51.0))

	assert.True(t, a.Passed)
	assert.Empty(t, a.Reason)
	assert.True(t, a.NetPositive)
	assert.True(t, a.HolderRising)
	assert.Equal(t, 5, a.TrustStreak)
	assert.Equal(t, 100.0, a.Strength)
	assert.Equal(t, 100.0, a.SubScores.TrustStreak)
	assert.Equal(t, 100.0, a.SubScores.ForeignTrend)
	assert.Equal(t, 100.0, a.SubScores.DealerActivity)
	assert.Equal(t, 100.0, a.SubScores.InstitutionalNet)
	assert.Equal(t, 100.0, a.SubScores.HolderTrend)
}

func TestFlowGate_WeakStrength(t *testing.T) {
	gate := newTestGate(t)
	flow := &contracts.FlowRecord{Symbol: "1101", Days: flowDays(flowStart,
		[3]int64{100, 0, 0},
		[3]int64{100, 0, 0},
		[3]int64{100, 0, 0},
		[3]int64{100, 0, 0},
		[3]int64{100, 0, 0},
	)}

	a := gate.Evaluate("1101", flow, risingHolder("1101", 20.0, 20.1))

	assert.False(t, a.Passed)
	assert.Equal(t, contracts.ReasonFlowStrengthBelowGate, a.Reason)
	// 0 + 60×.25 + 53.33×.15 + 50×.20 + 50×.10
	assert.Equal(t, 38.0, a.Strength)
}

func TestFlowGate_Rejections(t *testing.T) {
	gate := newTestGate(t)
	positive := flowDays(flowStart,
		[3]int64{1500, 300, 100},
		[3]int64{1200, 200, 50},
		[3]int64{2000, 500, 80},
		[3]int64{1800, 250, 60},
		[3]int64{1600, 400, 90},
	)

	tests := []struct {
		name   string
		flow   *contracts.FlowRecord
		holder *contracts.HolderConcentration
		reason string
	}{
		{
			name:   "no flow",
			flow:   nil,
			holder: risingHolder("x", 1, 2),
			reason: contracts.ReasonFlowDataMissing,
		},
		{
			name:   "empty flow",
			flow:   &contracts.FlowRecord{},
			holder: risingHolder("x", 1, 2),
			reason: contracts.ReasonFlowDataMissing,
		},
		{
			name:   "no holder",
			flow:   &contracts.FlowRecord{Days: positive},
			holder: nil,
			reason: contracts.ReasonHolderDataMissing,
		},
		{
			name:   "holder prior missing",
			flow:   &contracts.FlowRecord{Days: positive},
			holder: risingHolder("x", math.NaN(), 42),
			reason: contracts.ReasonHolderDataMissing,
		},
		{
			name:   "holder latest missing",
			flow:   &contracts.FlowRecord{Days: positive},
			holder: risingHolder("x", 30, math.NaN()),
			reason: contracts.ReasonHolderDataMissing,
		},
		{
			name:   "short window",
			flow:   &contracts.FlowRecord{Days: positive[:3]},
			holder: risingHolder("x", 1, 2),
			reason: contracts.ReasonFlowDataInsufficient,
		},
		{
			name: "net exactly zero",
			flow: &contracts.FlowRecord{Days: flowDays(flowStart,
				[3]int64{100, 0, 0},
				[3]int64{-100, 0, 0},
				[3]int64{0, 50, -50},
				[3]int64{0, 0, 0},
				[3]int64{10, -5, -5},
			)},
			holder: risingHolder("x", 1, 2),
			reason: contracts.ReasonFlowNetNotPositive,
		},
		{
			name:   "holder flat",
			flow:   &contracts.FlowRecord{Days: positive},
			holder: risingHolder("x", 30, 30),
			reason: contracts.ReasonHolderTrendNotUp,
		},
		{
			name:   "holder falling",
			flow:   &contracts.FlowRecord{Days: positive},
			holder: risingHolder("x", 30, 29.5),
			reason: contracts.ReasonHolderTrendNotUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := gate.Evaluate("x", tt.flow, tt.holder)
			assert.False(t, a.Passed)
			assert.Equal(t, tt.reason, a.Reason)
		})
	}
}

func TestFlowGate_PermutationInvariant(t *testing.T) {
	gate := newTestGate(t)
	days := flowDays(flowStart,
		[3]int64{-200, 300, 100},
		[3]int64{1200, -20, 50},
		[3]int64{2000, 500, -80},
		[3]int64{-1800, 250, 60},
		[3]int64{1600, 400, 90},
		[3]int64{900, 100, -10},
		[3]int64{300, 40, 20},
	)
	holder := risingHolder("2317", 10, 10.8)

	want := gate.Evaluate("2317", &contracts.FlowRecord{Days: days}, holder)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]contracts.FlowDay(nil), days...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := gate.Evaluate("2317", &contracts.FlowRecord{Days: shuffled}, holder)
		assert.Equal(t, want, got)
	}
}

func TestFlowGate_UsesTrailingWindow(t *testing.T) {
	gate := newTestGate(t)
	days := flowDays(flowStart,
		[3]int64{-90000, -9000, -900},
		[3]int64{-90000, -9000, -900},
		[3]int64{1500, 300, 100},
		[3]int64{1200, 200, 50},
		[3]int64{2000, 500, 80},
		[3]int64{1800, 250, 60},
		[3]int64{1600, 400, 90},
	)

	a := gate.Evaluate("2454", &contracts.FlowRecord{Days: days}, risingHolder("2454", 5, 6))
	assert.True(t, a.Passed)
	assert.Equal(t, int64(10130), a.NetSum)
}

func TestNewFlowGate_InvalidConfig(t *testing.T) {
	cfg := strategyconfig.Default().Flow
	cfg.WindowDays = 0

	_, err := NewFlowGate(cfg, nil)
	assert.True(t, contracts.IsConfiguration(err))
}
