package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/fingear/internal/contracts"
)

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

func cfgErr(field, msg string) error {
	return &contracts.ConfigurationError{Field: field, Message: msg}
}

// Validate checks all required constraints
// 실패 시 *contracts.ConfigurationError 반환 (실행 전 중단)
func Validate(cfg *Config) error {
	if cfg == nil {
		return cfgErr("config", "required")
	}

	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return cfgErr("meta.strategy_id", "required")
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return cfgErr("meta.timezone", err.Error())
		}
	}

	if err := ValidateFundamental(cfg.Fundamental); err != nil {
		return err
	}
	if err := ValidateFlow(cfg.Flow); err != nil {
		return err
	}
	if err := ValidateTechnical(cfg.Technical); err != nil {
		return err
	}

	// === Pipeline ===
	if cfg.Pipeline.Workers < 1 {
		return cfgErr("pipeline.workers", "must be >= 1")
	}
	if cfg.Pipeline.CacheSize < 1 {
		return cfgErr("pipeline.cache_size", "must be >= 1")
	}

	return nil
}

// ValidateFundamental checks weights, scale and tier tables of S2
func ValidateFundamental(f Fundamental) error {
	if f.TopK < 0 {
		return cfgErr("fundamental.top_k", "must be >= 0")
	}
	// 5티어 × scale <= 200
	if f.ScoreScale <= 0 || f.ScoreScale > 40 {
		return cfgErr("fundamental.score_scale", "must be in (0, 40]")
	}
	if f.MinPETier < 0 || f.MinPETier > 5 {
		return cfgErr("fundamental.min_pe_tier", "must be in [0, 5]")
	}
	if err := validateWeights(f.Weights.Values(), 1.0, 1e-6); err != nil {
		return cfgErr("fundamental.weights", err.Error())
	}
	for _, kind := range contracts.AllFactorKinds() {
		if err := validateTierTable(f.Tiers.Get(kind), contracts.LowerIsBetter(kind)); err != nil {
			return cfgErr(fmt.Sprintf("fundamental.tiers.%s", kind), err.Error())
		}
	}

	return nil
}

// ValidateFlow checks the S3 gate parameters
func ValidateFlow(fl Flow) error {
	if fl.WindowDays < 1 {
		return cfgErr("flow.window_days", "must be >= 1")
	}
	if fl.StrengthThreshold < 0 || fl.StrengthThreshold > 100 {
		return cfgErr("flow.strength_threshold", "must be in [0, 100]")
	}
	if err := validateWeights(fl.Weights.Values(), 1.0, 1e-6); err != nil {
		return cfgErr("flow.weights", err.Error())
	}
	if fl.ForeignWeakAvg > fl.ForeignStrongAvg {
		return cfgErr("flow.foreign_weak_avg", "must be <= foreign_strong_avg")
	}
	if fl.InstitutionalModerate > fl.InstitutionalStrong {
		return cfgErr("flow.institutional_moderate", "must be <= institutional_strong")
	}
	if fl.DealerFloor > 0 {
		return cfgErr("flow.dealer_floor", "must be <= 0")
	}
	if fl.HolderStrongDelta < 0 {
		return cfgErr("flow.holder_strong_delta", "must be >= 0")
	}

	return nil
}

// ValidateTechnical checks the S4 classifier parameters
func ValidateTechnical(tc Technical) error {
	if tc.RSIPeriod < 1 {
		return cfgErr("technical.rsi_period", "must be >= 1")
	}
	if tc.BollingerWindow < 2 {
		return cfgErr("technical.bollinger_window", "must be >= 2")
	}
	if tc.BollingerK <= 0 {
		return cfgErr("technical.bollinger_k", "must be > 0")
	}
	if tc.VolumeWindow < 1 {
		return cfgErr("technical.volume_window", "must be >= 1")
	}
	if tc.VolumeSurgeRatio < 1 {
		return cfgErr("technical.volume_surge_ratio", "must be >= 1")
	}
	if err := validateWeights(tc.Weights.Values(), 1.0, 1e-6); err != nil {
		return cfgErr("technical.weights", err.Error())
	}
	b := tc.Bands
	if !(b.StrongBuy <= 100 && b.StrongBuy > b.Buy && b.Buy > b.Watch && b.Watch > 0) {
		return cfgErr("technical.bands", "must satisfy 100 >= strong_buy > buy > watch > 0")
	}
	if tc.OverheatBiasPct < 0 {
		return cfgErr("technical.overheat_bias_pct", "must be >= 0 (0 disables)")
	}
	if tc.EntryBiasMaxPct < 0 {
		return cfgErr("technical.entry_bias_max_pct", "must be >= 0")
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Fundamental.TopK == 0 {
		warnings = append(warnings, Warning{
			Code:    "EMPTY_TOP_K",
			Message: "top_k = 0: 모든 종목이 S2에서 제외됨",
		})
	}

	if cfg.Flow.StrengthThreshold < 40 {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_FLOW_GATE",
			Message: "flow strength_threshold < 40: 수급 게이트가 거의 모든 종목 통과",
		})
	}

	if cfg.Technical.OverheatBiasPct == 0 {
		warnings = append(warnings, Warning{
			Code:    "OVERHEAT_DISABLED",
			Message: "overheat_bias_pct = 0: 과열 REDUCE 오버레이 비활성",
		})
	}

	// 단일 팩터 과집중 경고
	for _, kind := range contracts.AllFactorKinds() {
		if cfg.Fundamental.Weights.Get(kind) > 0.5 {
			warnings = append(warnings, Warning{
				Code:    "FACTOR_CONCENTRATION",
				Message: fmt.Sprintf("%s weight > 0.5: 단일 팩터 의존", kind),
			})
		}
	}

	return warnings
}

// === Helper Functions ===

func validateWeights(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("weights must be >= 0, got %v", w)
		}
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}

// validateTierTable: tier 5..2 순서, 방향에 맞게 단조
func validateTierTable(t TierTable, lowerIsBetter bool) error {
	if len(t.Steps) == 0 {
		return errors.New("steps must not be empty")
	}
	for i, s := range t.Steps {
		if s.Tier < 2 || s.Tier > 5 {
			return fmt.Errorf("steps[%d].tier must be in [2, 5], got %d", i, s.Tier)
		}
		if math.IsNaN(s.Threshold) || math.IsInf(s.Threshold, 0) {
			return fmt.Errorf("steps[%d].threshold must be finite", i)
		}
		if i == 0 {
			continue
		}
		prev := t.Steps[i-1]
		if s.Tier >= prev.Tier {
			return fmt.Errorf("steps[%d].tier must be < steps[%d].tier", i, i-1)
		}
		if lowerIsBetter && s.Threshold <= prev.Threshold {
			return fmt.Errorf("steps[%d].threshold must increase (lower is better)", i)
		}
		if !lowerIsBetter && s.Threshold >= prev.Threshold {
			return fmt.Errorf("steps[%d].threshold must decrease (higher is better)", i)
		}
	}
	return nil
}
