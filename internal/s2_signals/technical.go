package s2_signals

import (
	"fmt"
	"math"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/logger"
)

// Assessment notes
const (
	NoteOverheat    = "overheat"
	NoteEntryWindow = "entry_window"
)

// bandEpsilon absorbs float summation noise at a band boundary (65 - 1e-13 → 65)
const bandEpsilon = 1e-9

// TechnicalClassifier scores precomputed indicator columns into a 0~100 composite and a signal
// ⭐ SSOT: S4 기술적 분류는 여기서만
type TechnicalClassifier struct {
	cfg    strategyconfig.Technical
	logger *logger.Logger
}

// NewTechnicalClassifier validates the configuration and creates a classifier
func NewTechnicalClassifier(cfg strategyconfig.Technical, log *logger.Logger) (*TechnicalClassifier, error) {
	if err := strategyconfig.ValidateTechnical(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TechnicalClassifier{cfg: cfg, logger: log}, nil
}

// MinBars returns the history needed for RSI, band and volume windows
func (c *TechnicalClassifier) MinBars() int {
	n := c.cfg.RSIPeriod + 1
	if c.cfg.BollingerWindow > n {
		n = c.cfg.BollingerWindow
	}
	if c.cfg.VolumeWindow+1 > n {
		n = c.cfg.VolumeWindow + 1
	}
	return n
}

// Classify scores the last bar of rec.
// Too few bars or missing indicator columns → Insufficient (점수 없음, DATA_INSUFFICIENT).
func (c *TechnicalClassifier) Classify(symbol string, rec *contracts.PriceRecord) *contracts.TechnicalAssessment {
	a := &contracts.TechnicalAssessment{Symbol: symbol, Cross: contracts.CrossNone}

	var bars []contracts.PriceBar
	if rec != nil {
		bars = rec.Bars
	}
	if len(bars) > 0 {
		a.Date = bars[len(bars)-1].Date
	}

	if missing := c.missingInputs(bars); len(missing) > 0 {
		a.Insufficient = true
		a.Missing = missing
		a.Signal = contracts.SignalDataInsufficient
		return a
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	closes := rec.Closes()

	a.RSI = RSI(closes, c.cfg.RSIPeriod)
	_, upper, lower := Bollinger(closes, c.cfg.BollingerWindow, c.cfg.BollingerK)
	a.PercentB = PercentB(last.Close, upper, lower)
	a.VolumeRatio = VolumeRatio(bars, c.cfg.VolumeWindow)
	a.Cross = StochasticCross(bars)
	a.Bias = Bias(last.Close, last.MALong)

	a.SubScores = contracts.TechnicalSubScores{
		MAAlignment: maAlignmentScore(last),
		Momentum:    momentumScore(prev, last),
		RSI:         math.Min(100, a.RSI/70*100),
		Stochastic:  stochasticScore(a.Cross, last),
		Volume:      c.volumeScore(last.Close > prev.Close, a.VolumeRatio),
		Band:        a.PercentB * 100,
	}

	w := c.cfg.Weights
	raw := a.SubScores.MAAlignment*w.MAAlignment +
		a.SubScores.Momentum*w.Momentum +
		a.SubScores.RSI*w.RSI +
		a.SubScores.Stochastic*w.Stochastic +
		a.SubScores.Volume*w.Volume +
		a.SubScores.Band*w.Band
	// 밴드는 반올림 전 값으로 판정, Score 는 표시용
	a.Score = round2(raw)
	a.Signal = SignalForScore(raw, c.cfg.Bands)

	// 이격도 오버레이
	if c.cfg.OverheatBiasPct > 0 && a.Bias > c.cfg.OverheatBiasPct {
		a.Signal = contracts.SignalReduce
		a.Notes = append(a.Notes, NoteOverheat)
	}
	if a.Bias > 0 && a.Bias <= c.cfg.EntryBiasMaxPct && a.Cross == contracts.CrossGolden {
		a.Notes = append(a.Notes, NoteEntryWindow)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"score":  a.Score,
		"signal": a.Signal,
		"bias":   a.Bias,
		"cross":  a.Cross,
	}).Debug("Classified technical signal")

	return a
}

// missingInputs lists why the last bar cannot be scored
func (c *TechnicalClassifier) missingInputs(bars []contracts.PriceBar) []string {
	need := c.MinBars()
	if len(bars) < need {
		return []string{fmt.Sprintf("bars(need %d, have %d)", need, len(bars))}
	}

	last := bars[len(bars)-1]
	columns := []struct {
		name  string
		value float64
	}{
		{"ma_short", last.MAShort},
		{"ma_mid", last.MAMid},
		{"ma_long", last.MALong},
		{"macd", last.MACD},
		{"macd_signal", last.MACDSignal},
		{"k", last.K},
		{"d", last.D},
	}

	var missing []string
	for _, col := range columns {
		if math.IsNaN(col.value) {
			missing = append(missing, col.name)
		}
	}
	return missing
}

// SignalForScore maps an unrounded composite to its band (하한 포함)
func SignalForScore(score float64, bands strategyconfig.SignalBands) contracts.Signal {
	switch {
	case score >= bands.StrongBuy-bandEpsilon:
		return contracts.SignalStrongBuy
	case score >= bands.Buy-bandEpsilon:
		return contracts.SignalBuy
	case score >= bands.Watch-bandEpsilon:
		return contracts.SignalWatch
	default:
		return contracts.SignalHoldReduce
	}
}

// maAlignmentScore: 정배열 조건 충족 비율
func maAlignmentScore(b contracts.PriceBar) float64 {
	satisfied := 0
	if b.Close > b.MAShort {
		satisfied++
	}
	if b.MAShort > b.MAMid {
		satisfied++
	}
	if b.MAMid > b.MALong {
		satisfied++
	}
	return float64(satisfied) / 3 * 100
}

// momentumScore: DIF > signal 50, DIF > 0 25, 히스토그램 상승 25
func momentumScore(prev, cur contracts.PriceBar) float64 {
	score := 0.0
	if cur.MACD > cur.MACDSignal {
		score += 50
	}
	if cur.MACD > 0 {
		score += 25
	}
	if !anyNaN(prev.MACD, prev.MACDSignal) && cur.MACD-cur.MACDSignal > prev.MACD-prev.MACDSignal {
		score += 25
	}
	return score
}

// stochasticScore: golden 100, K>D 65, K<=D 35, death 0
func stochasticScore(cross contracts.StochCross, b contracts.PriceBar) float64 {
	switch {
	case cross == contracts.CrossGolden:
		return 100
	case cross == contracts.CrossDeath:
		return 0
	case b.K > b.D:
		return 65
	default:
		return 35
	}
}

// volumeScore: 상승일 거래량 증가가 가장 좋음
func (c *TechnicalClassifier) volumeScore(upDay bool, ratio float64) float64 {
	if math.IsNaN(ratio) {
		ratio = 0
	}
	if upDay {
		switch {
		case ratio >= c.cfg.VolumeSurgeRatio:
			return 100
		case ratio >= 1:
			return 75
		default:
			return 50
		}
	}
	if ratio < 1 {
		return 25
	}
	return 0
}
