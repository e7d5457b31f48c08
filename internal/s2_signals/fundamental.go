package s2_signals

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s0_data/quality"
	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/logger"
)

// yoyEpsilon: |base| 가 이보다 작으면 YoY = 0
const yoyEpsilon = 0.01

// factorFunc computes a raw value from quarterly history (oldest first)
type factorFunc func(rec *contracts.FundamentalRecord) (float64, error)

type factorDef struct {
	kind        contracts.FactorKind
	fn          factorFunc
	minQuarters int
}

// factorTable is the fixed, ordered set of seven factors
var factorTable = []factorDef{
	{contracts.FactorPERelative, peRelative, 1},
	{contracts.FactorROE, roeTTM, 4},
	{contracts.FactorEPSYoY, epsYoY, 5},
	{contracts.FactorFCF, freeCashFlow, 1},
	{contracts.FactorGrossMarginTrend, grossMarginTrend, 3},
	{contracts.FactorRevenueYoY, revenueYoY, 5},
	{contracts.FactorDebtRatio, debtRatio, 1},
}

// RequiredQuarters returns the history needed by the whole factor table
func RequiredQuarters() int {
	n := 0
	for _, f := range factorTable {
		if f.minQuarters > n {
			n = f.minQuarters
		}
	}
	return n
}

// FundamentalScorer computes the 7-factor composite (0~200)
// ⭐ SSOT: S2 펀더멘털 점수 계산은 여기서만
type FundamentalScorer struct {
	cfg       strategyconfig.Fundamental
	validator *quality.RecordValidator
	logger    *logger.Logger
}

// NewFundamentalScorer validates the configuration and creates a scorer
func NewFundamentalScorer(cfg strategyconfig.Fundamental, log *logger.Logger) (*FundamentalScorer, error) {
	if err := strategyconfig.ValidateFundamental(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FundamentalScorer{
		cfg:       cfg,
		validator: quality.NewRecordValidator(),
		logger:    log,
	}, nil
}

// Score evaluates one instrument as of date.
// Quarters reported after date are ignored (point-in-time).
func (s *FundamentalScorer) Score(symbol string, date time.Time, rec *contracts.FundamentalRecord) (*contracts.FundamentalScore, error) {
	if rec == nil {
		return nil, fmt.Errorf("fundamentals %s: %w", symbol, contracts.ErrNotFound)
	}
	view := asOf(rec, date)
	view.Symbol = symbol

	if err := s.validator.ValidateFundamental(view); err != nil {
		return nil, err
	}

	required := RequiredQuarters()
	if len(view.Quarters) < required {
		return nil, &contracts.DataInsufficientError{
			Symbol:    symbol,
			What:      "quarters",
			Required:  required,
			Available: len(view.Quarters),
		}
	}
	// YoY 와 TTM 은 분기 누락 없이 연속된 이력에서만 계산
	if run := view.ContiguousTail(); run < required {
		return nil, &contracts.DataInsufficientError{
			Symbol:    symbol,
			What:      "contiguous quarters",
			Required:  required,
			Available: run,
		}
	}

	factors := make([]contracts.FactorScore, 0, len(factorTable))
	total := 0.0
	for _, def := range factorTable {
		raw, err := s.evalFactor(symbol, def, view)
		if err != nil {
			return nil, err
		}

		kind := def.kind
		tier := AssignTier(raw, s.cfg.Tiers.Get(kind), contracts.LowerIsBetter(kind))
		weight := s.cfg.Weights.Get(kind)
		contribution := float64(tier) * weight * s.cfg.ScoreScale
		total += contribution

		factors = append(factors, contracts.FactorScore{
			Kind:         kind,
			RawValue:     raw,
			Tier:         tier,
			Weight:       weight,
			Contribution: round2(contribution),
		})
	}

	score := &contracts.FundamentalScore{
		Symbol:    symbol,
		Date:      date,
		Composite: round2(total),
		Factors:   factors,
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"composite": score.Composite,
		"quarters":  len(view.Quarters),
	}).Debug("Calculated fundamental score")

	return score, nil
}

// evalFactor runs one factor, turning panics and non-finite results into errors
func (s *FundamentalScorer) evalFactor(symbol string, def factorDef, rec *contracts.FundamentalRecord) (raw float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &contracts.EvaluationError{
				Symbol: symbol,
				Stage:  contracts.StageFundamental,
				Err:    fmt.Errorf("factor %s panic: %v", def.kind, r),
			}
		}
	}()

	raw, err = def.fn(rec)
	if err != nil {
		var ve *contracts.ValidationError
		if errors.As(err, &ve) {
			ve.Symbol = symbol
			return 0, ve
		}
		return 0, &contracts.EvaluationError{Symbol: symbol, Stage: contracts.StageFundamental, Err: err}
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, &contracts.EvaluationError{
			Symbol: symbol,
			Stage:  contracts.StageFundamental,
			Err:    fmt.Errorf("factor %s: non-finite result %v", def.kind, raw),
		}
	}
	return raw, nil
}

// asOf trims quarters and PE points published after date (zero date keeps all)
func asOf(rec *contracts.FundamentalRecord, date time.Time) *contracts.FundamentalRecord {
	out := &contracts.FundamentalRecord{Symbol: rec.Symbol}
	for _, q := range rec.Quarters {
		if date.IsZero() || !q.ReportDate.After(date) {
			out.Quarters = append(out.Quarters, q)
		}
	}
	for _, v := range rec.Valuation {
		if date.IsZero() || !v.Date.After(date) {
			out.Valuation = append(out.Valuation, v)
		}
	}
	return out
}

// === Factor functions (pure) ===

// roeTTM: TTM 순이익 / 최근 4분기 평균 자본 × 100, 평균 자본 <= 0 → 0
func roeTTM(rec *contracts.FundamentalRecord) (float64, error) {
	qs := rec.Trailing(4)
	var netIncome, equity float64
	for _, q := range qs {
		netIncome += q.NetIncome
		equity += q.Equity
	}
	avgEquity := equity / float64(len(qs))
	if avgEquity <= 0 {
		return 0, nil
	}
	return netIncome / avgEquity * 100, nil
}

func epsYoY(rec *contracts.FundamentalRecord) (float64, error) {
	return yoy(rec, func(q contracts.FundamentalQuarter) float64 { return q.EPS }), nil
}

func revenueYoY(rec *contracts.FundamentalRecord) (float64, error) {
	return yoy(rec, func(q contracts.FundamentalQuarter) float64 { return q.Revenue }), nil
}

// yoy compares the latest quarter with the same quarter one year earlier
func yoy(rec *contracts.FundamentalRecord, field func(contracts.FundamentalQuarter) float64) float64 {
	qs := rec.Trailing(5)
	latest := field(qs[len(qs)-1])
	base := field(qs[0])
	if math.Abs(base) < yoyEpsilon {
		return 0
	}
	return (latest - base) / math.Abs(base) * 100
}

// freeCashFlow: 영업현금흐름 - |capex|
func freeCashFlow(rec *contracts.FundamentalRecord) (float64, error) {
	q, _ := rec.Latest()
	return q.OperatingCashFlow - math.Abs(q.CapitalExpenditure), nil
}

// grossMarginTrend: 최근 3분기 매출총이익률 변화 (%p, 마지막 - 처음)
func grossMarginTrend(rec *contracts.FundamentalRecord) (float64, error) {
	qs := rec.Trailing(3)
	return grossMargin(qs[len(qs)-1]) - grossMargin(qs[0]), nil
}

func grossMargin(q contracts.FundamentalQuarter) float64 {
	if q.Revenue == 0 {
		return 0
	}
	return q.GrossProfit / q.Revenue * 100
}

// debtRatio: 부채 / 자산 × 100 (낮을수록 좋음)
func debtRatio(rec *contracts.FundamentalRecord) (float64, error) {
	q, _ := rec.Latest()
	if q.TotalAssets <= 0 {
		return 0, &contracts.ValidationError{
			Field:   fmt.Sprintf("quarters[%d].total_assets", len(rec.Quarters)-1),
			Message: "must be > 0",
		}
	}
	return q.TotalLiabilities / q.TotalAssets * 100, nil
}

// peRelative: 현재 PER / 과거 양수 PER 중앙값 (낮을수록 좋음).
// 현재 PER <= 0 이거나 양수 이력이 없으면 0 (require_positive 로 tier 1).
func peRelative(rec *contracts.FundamentalRecord) (float64, error) {
	if len(rec.Valuation) == 0 {
		return 0, nil
	}
	current := rec.Valuation[len(rec.Valuation)-1].PE
	if current <= 0 || math.IsNaN(current) {
		return 0, nil
	}

	history := make([]float64, 0, len(rec.Valuation))
	for _, v := range rec.Valuation {
		if v.PE > 0 {
			history = append(history, v.PE)
		}
	}
	med := median(history)
	if med <= 0 {
		return 0, nil
	}
	return current / med, nil
}

// median returns the middle value (mean of the two middles for even n), 0 when empty
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
