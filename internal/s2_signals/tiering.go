package s2_signals

import (
	"math"

	"github.com/wonny/fingear/internal/strategyconfig"
)

// AssignTier maps a raw factor value to tier 1~5.
// Steps are checked in descending tier order, first match wins.
// higher-is-better: raw >= threshold, lower-is-better: raw <= threshold.
// 어느 구간도 만족하지 않으면 tier 1 (에러 아님)
func AssignTier(raw float64, table strategyconfig.TierTable, lowerIsBetter bool) int {
	if math.IsNaN(raw) {
		return 1
	}
	if table.RequirePositive && raw <= 0 {
		return 1
	}

	for _, step := range table.Steps {
		if lowerIsBetter {
			if raw <= step.Threshold {
				return step.Tier
			}
			continue
		}
		if raw >= step.Threshold {
			return step.Tier
		}
	}
	return 1
}

// round2 rounds to 2 decimals
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
