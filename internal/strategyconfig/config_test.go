package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/fingear_tw.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)
	assert.Equal(t, "fingear_tw", cfg.Meta.StrategyID)

	// 샘플 YAML == 내장 기본값
	fromFile, err := Hash(cfg)
	require.NoError(t, err)
	builtin, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, builtin, fromFile)
	assert.Len(t, fromFile, 64)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, data, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 30, cfg.Fundamental.TopK)
	assert.Equal(t, 65.0, cfg.Technical.Bands.StrongBuy)
}

func TestParse_PartialOverride(t *testing.T) {
	cfg, err := Parse([]byte("fundamental:\n  top_k: 10\nflow:\n  strength_threshold: 70\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Fundamental.TopK)
	assert.Equal(t, 70.0, cfg.Flow.StrengthThreshold)
	// 나머지는 기본값 유지
	assert.Equal(t, 0.30, cfg.Fundamental.Weights.PERelative)
	assert.Equal(t, 5, cfg.Flow.WindowDays)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte("fundamental:\n  topk: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topk")
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"defaults ok", func(c *Config) {}, ""},
		{"strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"negative top_k", func(c *Config) { c.Fundamental.TopK = -1 }, "fundamental.top_k"},
		{"score scale", func(c *Config) { c.Fundamental.ScoreScale = 0 }, "fundamental.score_scale"},
		{"factor weights sum", func(c *Config) { c.Fundamental.Weights.ROE = 0.5 }, "fundamental.weights"},
		{"negative weight", func(c *Config) {
			c.Fundamental.Weights.ROE = -0.15
			c.Fundamental.Weights.PERelative = 0.60
		}, "fundamental.weights"},
		{"tier table direction", func(c *Config) {
			c.Fundamental.Tiers.ROE.Steps = steps(5, 10, 15, 20)
		}, "fundamental.tiers.roe"},
		{"lower-is-better direction", func(c *Config) {
			c.Fundamental.Tiers.DebtRatio.Steps = steps(60, 50, 40, 30)
		}, "fundamental.tiers.debt_ratio"},
		{"tier range", func(c *Config) {
			c.Fundamental.Tiers.FCF.Steps = []TierStep{{Threshold: 1, Tier: 6}}
		}, "fundamental.tiers.fcf"},
		{"flow weights", func(c *Config) { c.Flow.Weights.TrustStreak = 0 }, "flow.weights"},
		{"flow window", func(c *Config) { c.Flow.WindowDays = 0 }, "flow.window_days"},
		{"flow threshold", func(c *Config) { c.Flow.StrengthThreshold = 101 }, "flow.strength_threshold"},
		{"technical weights", func(c *Config) { c.Technical.Weights.Band = 0.2 }, "technical.weights"},
		{"bands order", func(c *Config) { c.Technical.Bands.Buy = 70 }, "technical.bands"},
		{"bands upper", func(c *Config) { c.Technical.Bands.StrongBuy = 120 }, "technical.bands"},
		{"workers", func(c *Config) { c.Pipeline.Workers = 0 }, "pipeline.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, contracts.IsConfiguration(err))
			var cerr *contracts.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Fundamental.TopK = 0
	cfg.Technical.OverheatBiasPct = 0
	warnings := Warn(cfg)

	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"EMPTY_TOP_K", "OVERHEAT_DISABLED"}, codes)
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)

	cfg := Default()
	cfg.Flow.StrengthThreshold = 61
	b, err := Hash(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecisionSnapshot(t *testing.T) {
	cfg := Default()
	snap, err := NewDecisionSnapshot(cfg, []byte("meta: {}"))
	require.NoError(t, err)
	assert.Equal(t, "fingear_tw", snap.StrategyID)
	assert.Equal(t, "meta: {}", snap.ConfigYAML)
	assert.Len(t, snap.ConfigHash, 64)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestFactorAccessors(t *testing.T) {
	cfg := Default()
	total := 0.0
	for _, kind := range contracts.AllFactorKinds() {
		total += cfg.Fundamental.Weights.Get(kind)
		assert.NotEmpty(t, cfg.Fundamental.Tiers.Get(kind).Steps, kind)
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.True(t, cfg.Fundamental.Tiers.Get(contracts.FactorPERelative).RequirePositive)
	assert.Zero(t, cfg.Fundamental.Weights.Get("bogus"))
}
