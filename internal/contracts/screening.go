package contracts

import (
	"sort"
	"time"
)

// FactorKind identifies one of the seven fundamental factors
type FactorKind string

const (
	FactorPERelative       FactorKind = "pe_relative"
	FactorROE              FactorKind = "roe"
	FactorEPSYoY           FactorKind = "eps_yoy"
	FactorFCF              FactorKind = "fcf"
	FactorGrossMarginTrend FactorKind = "gross_margin_trend"
	FactorRevenueYoY       FactorKind = "revenue_yoy"
	FactorDebtRatio        FactorKind = "debt_ratio"
)

// AllFactorKinds returns the factors in table order
func AllFactorKinds() []FactorKind {
	return []FactorKind{
		FactorPERelative,
		FactorROE,
		FactorEPSYoY,
		FactorFCF,
		FactorGrossMarginTrend,
		FactorRevenueYoY,
		FactorDebtRatio,
	}
}

// LowerIsBetter reports whether a smaller raw value earns a higher tier
func LowerIsBetter(kind FactorKind) bool {
	return kind == FactorDebtRatio || kind == FactorPERelative
}

// FactorScore is the evaluation of a single factor
type FactorScore struct {
	Kind         FactorKind `json:"kind"`
	RawValue     float64    `json:"raw_value"`
	Tier         int        `json:"tier"` // 1~5
	Weight       float64    `json:"weight"`
	Contribution float64    `json:"contribution"` // tier × weight × scale
}

// FundamentalScore is the 7-factor composite of one instrument on one date
// ⭐ SSOT: S2 출력. 캐시에 저장되므로 생성 후 수정 금지
type FundamentalScore struct {
	Symbol    string        `json:"symbol"`
	Date      time.Time     `json:"date"`
	Composite float64       `json:"composite"` // 0~200
	Factors   []FactorScore `json:"factors"`
}

// Factor looks up one factor's evaluation
func (s *FundamentalScore) Factor(kind FactorKind) (FactorScore, bool) {
	for _, f := range s.Factors {
		if f.Kind == kind {
			return f, true
		}
	}
	return FactorScore{}, false
}

// FlowSubScores are the five normalized (0~100) strength components
type FlowSubScores struct {
	TrustStreak      float64 `json:"trust_streak"`
	ForeignTrend     float64 `json:"foreign_trend"`
	DealerActivity   float64 `json:"dealer_activity"`
	InstitutionalNet float64 `json:"institutional_net"`
	HolderTrend      float64 `json:"holder_trend"`
}

// FlowAssessment is the ownership-flow gate outcome
type FlowAssessment struct {
	Symbol       string        `json:"symbol"`
	Passed       bool          `json:"passed"` // 다음 단계 진행 여부
	Reason       string        `json:"reason,omitempty"`
	NetPositive  bool          `json:"net_positive"`
	HolderRising bool          `json:"holder_rising"`
	Strength     float64       `json:"strength"` // 0~100
	SubScores    FlowSubScores `json:"sub_scores"`
	WindowDays   int           `json:"window_days"`
	NetSum       int64         `json:"net_sum"`
	ForeignAvg   float64       `json:"foreign_avg"`
	DealerSum    int64         `json:"dealer_sum"`
	TrustStreak  int           `json:"trust_streak"`
	HolderDelta  float64       `json:"holder_delta"`
}

// StochCross is the K/D crossover state
type StochCross string

const (
	CrossGolden StochCross = "golden"
	CrossDeath  StochCross = "death"
	CrossNone   StochCross = "none"
)

// Signal is the discrete technical recommendation
type Signal string

const (
	SignalStrongBuy        Signal = "STRONG_BUY"
	SignalBuy              Signal = "BUY"
	SignalWatch            Signal = "WATCH"
	SignalHoldReduce       Signal = "HOLD/REDUCE"
	SignalReduce           Signal = "REDUCE" // 과열(이격도) 오버레이
	SignalDataInsufficient Signal = "DATA_INSUFFICIENT"
)

// TechnicalSubScores are the six normalized (0~100) technical components
type TechnicalSubScores struct {
	MAAlignment float64 `json:"ma_alignment"`
	Momentum    float64 `json:"momentum"`
	RSI         float64 `json:"rsi"`
	Stochastic  float64 `json:"stochastic"`
	Volume      float64 `json:"volume"`
	Band        float64 `json:"band"`
}

// TechnicalAssessment is the classifier outcome.
// Insufficient=true means "could not be scored"; Score is then meaningless.
type TechnicalAssessment struct {
	Symbol       string             `json:"symbol"`
	Date         time.Time          `json:"date"`
	Score        float64            `json:"score"` // 0~100
	SubScores    TechnicalSubScores `json:"sub_scores"`
	RSI          float64            `json:"rsi"`
	PercentB     float64            `json:"percent_b"`
	VolumeRatio  float64            `json:"volume_ratio"`
	Bias         float64            `json:"bias"`
	Cross        StochCross         `json:"cross"`
	Signal       Signal             `json:"signal"`
	Insufficient bool               `json:"insufficient"`
	Missing      []string           `json:"missing,omitempty"`
	Notes        []string           `json:"notes,omitempty"`
}

// State is the per-instrument pipeline state
type State string

const (
	StatePending      State = "PENDING"
	StateTopKSelected State = "TOP_K_SELECTED"
	StateFlowPass     State = "FLOW_PASS"
	StateSignaled     State = "SIGNALED"
	StateRejected     State = "REJECTED"
)

// GateDecision records one stage outcome for provenance
type GateDecision struct {
	Stage  Stage   `json:"stage"`
	Passed bool    `json:"passed"`
	Reason string  `json:"reason,omitempty"`
	Score  float64 `json:"score"`
}

// ScreeningResult carries one instrument through the pipeline.
// Value type: every With* returns a new record, earlier ones stay intact.
type ScreeningResult struct {
	Symbol      string               `json:"symbol"`
	Rank        int                  `json:"rank"` // S2 순위 (1부터), 0은 미평가
	State       State                `json:"state"`
	Fundamental *FundamentalScore    `json:"fundamental,omitempty"`
	Flow        *FlowAssessment      `json:"flow,omitempty"`
	Technical   *TechnicalAssessment `json:"technical,omitempty"`
	Gates       []GateDecision       `json:"gates"`
	Signal      Signal               `json:"signal,omitempty"`
}

// NewScreeningResult starts a record in PENDING state
func NewScreeningResult(symbol string) ScreeningResult {
	return ScreeningResult{Symbol: symbol, State: StatePending, Gates: []GateDecision{}}
}

func (r ScreeningResult) appendGate(g GateDecision) ScreeningResult {
	gates := make([]GateDecision, len(r.Gates), len(r.Gates)+1)
	copy(gates, r.Gates)
	r.Gates = append(gates, g)
	return r
}

// WithFundamental attaches the S2 score and rank
func (r ScreeningResult) WithFundamental(score *FundamentalScore, rank int, g GateDecision) ScreeningResult {
	r = r.appendGate(g)
	r.Fundamental = score
	r.Rank = rank
	if g.Passed {
		r.State = StateTopKSelected
	} else {
		r.State = StateRejected
	}
	return r
}

// WithFlow attaches the S3 gate outcome
func (r ScreeningResult) WithFlow(flow *FlowAssessment, g GateDecision) ScreeningResult {
	r = r.appendGate(g)
	r.Flow = flow
	if g.Passed {
		r.State = StateFlowPass
	} else {
		r.State = StateRejected
	}
	return r
}

// WithTechnical attaches the S4 assessment and the final signal
func (r ScreeningResult) WithTechnical(tech *TechnicalAssessment, g GateDecision) ScreeningResult {
	r = r.appendGate(g)
	r.Technical = tech
	r.Signal = tech.Signal
	r.State = StateSignaled
	return r
}

// Rejected records a failure at a stage without any new score
func (r ScreeningResult) Rejected(stage Stage, reason string) ScreeningResult {
	r = r.appendGate(GateDecision{Stage: stage, Passed: false, Reason: reason})
	r.State = StateRejected
	return r
}

// LastGate returns the most recent gate decision
func (r ScreeningResult) LastGate() (GateDecision, bool) {
	if len(r.Gates) == 0 {
		return GateDecision{}, false
	}
	return r.Gates[len(r.Gates)-1], true
}

// Exclusion is one side-channel entry explaining why an instrument stopped
type Exclusion struct {
	Symbol string `json:"symbol"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ScreeningReport is the output of one screening run
// ⭐ SSOT: 모든 universe 종목은 Results 또는 Exclusions 중 정확히 하나에 존재
type ScreeningReport struct {
	RunID        string                     `json:"run_id"`
	Date         time.Time                  `json:"date"`
	ConfigHash   string                     `json:"config_hash,omitempty"`
	UniverseSize int                        `json:"universe_size"`
	TopK         int                        `json:"top_k"`
	Results      []ScreeningResult          `json:"results"`
	Exclusions   []Exclusion                `json:"exclusions"`
	Trace        map[string]ScreeningResult `json:"trace,omitempty"`
	Duration     time.Duration              `json:"duration"`
}

// Explain returns the full record of an instrument plus its exclusion, if any
func (r *ScreeningReport) Explain(symbol string) (ScreeningResult, *Exclusion, bool) {
	rec, ok := r.Trace[symbol]
	if !ok {
		for _, res := range r.Results {
			if res.Symbol == symbol {
				rec, ok = res, true
				break
			}
		}
	}
	for i := range r.Exclusions {
		if r.Exclusions[i].Symbol == symbol {
			return rec, &r.Exclusions[i], true
		}
	}
	return rec, nil, ok
}

// SignalCounts tallies final signals
func (r *ScreeningReport) SignalCounts() map[Signal]int {
	counts := make(map[Signal]int)
	for _, res := range r.Results {
		counts[res.Signal]++
	}
	return counts
}

// ExclusionCounts tallies exclusions by reason
func (r *ScreeningReport) ExclusionCounts() map[string]int {
	counts := make(map[string]int)
	for _, ex := range r.Exclusions {
		counts[ex.Reason]++
	}
	return counts
}

// SortExclusions orders exclusions by stage, then symbol
func SortExclusions(exclusions []Exclusion) {
	sort.SliceStable(exclusions, func(i, j int) bool {
		oi, oj := exclusions[i].Stage.Order(), exclusions[j].Stage.Order()
		if oi != oj {
			return oi < oj
		}
		return exclusions[i].Symbol < exclusions[j].Symbol
	})
}
