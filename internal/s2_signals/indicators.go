package s2_signals

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fingear/internal/contracts"
)

// RSI calculates the Relative Strength Index over the last period changes.
// 단순 평균 (Cutler), 이전 구간은 반영하지 않음
// 상승 0, 하락 0 (횡보) → 50
func RSI(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period+1 {
		return math.NaN()
	}

	var gains, losses float64
	tail := closes[len(closes)-period-1:]
	for i := 1; i < len(tail); i++ {
		change := tail[i] - tail[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Bollinger returns middle/upper/lower bands over the last window closes
func Bollinger(closes []float64, window int, k float64) (mid, upper, lower float64) {
	if window < 2 || len(closes) < window {
		return math.NaN(), math.NaN(), math.NaN()
	}
	mean, std := stat.MeanStdDev(closes[len(closes)-window:], nil)
	return mean, mean + k*std, mean - k*std
}

// PercentB locates close inside the band (0 = lower, 1 = upper), clamped to [0, 1].
// 밴드 폭 0 → 0.5
func PercentB(close, upper, lower float64) float64 {
	width := upper - lower
	if width == 0 || math.IsNaN(width) {
		return 0.5
	}
	pb := (close - lower) / width
	return math.Max(0, math.Min(1, pb))
}

// VolumeRatio compares the last bar volume with the average of the preceding window bars
func VolumeRatio(bars []contracts.PriceBar, window int) float64 {
	if window < 1 || len(bars) < window+1 {
		return math.NaN()
	}
	prior := bars[len(bars)-window-1 : len(bars)-1]
	volumes := make([]float64, len(prior))
	for i, b := range prior {
		volumes[i] = float64(b.Volume)
	}
	avg := stat.Mean(volumes, nil)
	if avg <= 0 {
		return 0
	}
	return float64(bars[len(bars)-1].Volume) / avg
}

// StochasticCross classifies the K/D crossover between the last two bars.
// 2봉 미만이거나 값이 없으면 none
func StochasticCross(bars []contracts.PriceBar) contracts.StochCross {
	if len(bars) < 2 {
		return contracts.CrossNone
	}
	prev, cur := bars[len(bars)-2], bars[len(bars)-1]
	if anyNaN(prev.K, prev.D, cur.K, cur.D) {
		return contracts.CrossNone
	}

	switch {
	case prev.K <= prev.D && cur.K > cur.D:
		return contracts.CrossGolden
	case prev.K >= prev.D && cur.K < cur.D:
		return contracts.CrossDeath
	default:
		return contracts.CrossNone
	}
}

// Bias returns the percentage deviation of price from a moving average (MA 0 → 0)
func Bias(price, ma float64) float64 {
	if ma == 0 || math.IsNaN(ma) {
		return 0
	}
	return (price - ma) / ma * 100
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
