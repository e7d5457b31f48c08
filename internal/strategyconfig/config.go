package strategyconfig

import (
	"time"

	"github.com/wonny/fingear/internal/contracts"
)

// Config는 3단계 스크리닝 전략의 전체 설정
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Fundamental Fundamental `yaml:"fundamental" json:"fundamental"`
	Flow        Flow        `yaml:"flow" json:"flow"`
	Technical   Technical   `yaml:"technical" json:"technical"`
	Pipeline    Pipeline    `yaml:"pipeline" json:"pipeline"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Location returns the strategy timezone (UTC when unset; validated in Validate)
func (m Meta) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Fundamental S2: 7팩터 점수 + Top-K
type Fundamental struct {
	TopK       int           `yaml:"top_k" json:"top_k"`
	ScoreScale float64       `yaml:"score_scale" json:"score_scale"` // 5티어 만점 = 5 × scale
	MinPETier  int           `yaml:"min_pe_tier" json:"min_pe_tier"` // 0 = 비활성
	Weights    FactorWeights `yaml:"weights" json:"weights"`         // 합 = 1.0
	Tiers      FactorTiers   `yaml:"tiers" json:"tiers"`
}

// FactorWeights 팩터 가중치
// 주의: map 대신 struct 사용으로 해시 재현성 보장
type FactorWeights struct {
	PERelative       float64 `yaml:"pe_relative" json:"pe_relative"`
	ROE              float64 `yaml:"roe" json:"roe"`
	EPSYoY           float64 `yaml:"eps_yoy" json:"eps_yoy"`
	FCF              float64 `yaml:"fcf" json:"fcf"`
	GrossMarginTrend float64 `yaml:"gross_margin_trend" json:"gross_margin_trend"`
	RevenueYoY       float64 `yaml:"revenue_yoy" json:"revenue_yoy"`
	DebtRatio        float64 `yaml:"debt_ratio" json:"debt_ratio"`
}

// Get returns the weight of one factor
func (w FactorWeights) Get(kind contracts.FactorKind) float64 {
	switch kind {
	case contracts.FactorPERelative:
		return w.PERelative
	case contracts.FactorROE:
		return w.ROE
	case contracts.FactorEPSYoY:
		return w.EPSYoY
	case contracts.FactorFCF:
		return w.FCF
	case contracts.FactorGrossMarginTrend:
		return w.GrossMarginTrend
	case contracts.FactorRevenueYoY:
		return w.RevenueYoY
	case contracts.FactorDebtRatio:
		return w.DebtRatio
	default:
		return 0
	}
}

// Values returns weights in factor table order
func (w FactorWeights) Values() []float64 {
	kinds := contracts.AllFactorKinds()
	out := make([]float64, len(kinds))
	for i, k := range kinds {
		out[i] = w.Get(k)
	}
	return out
}

// TierStep 한 구간: raw가 threshold 조건을 만족하면 tier 부여
type TierStep struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Tier      int     `yaml:"tier" json:"tier"`
}

// TierTable 팩터별 티어 구간표 (tier 내림차순)
type TierTable struct {
	Steps           []TierStep `yaml:"steps" json:"steps"`
	RequirePositive bool       `yaml:"require_positive" json:"require_positive"` // raw <= 0 이면 tier 1
}

// FactorTiers 팩터별 구간표
type FactorTiers struct {
	PERelative       TierTable `yaml:"pe_relative" json:"pe_relative"`
	ROE              TierTable `yaml:"roe" json:"roe"`
	EPSYoY           TierTable `yaml:"eps_yoy" json:"eps_yoy"`
	FCF              TierTable `yaml:"fcf" json:"fcf"`
	GrossMarginTrend TierTable `yaml:"gross_margin_trend" json:"gross_margin_trend"`
	RevenueYoY       TierTable `yaml:"revenue_yoy" json:"revenue_yoy"`
	DebtRatio        TierTable `yaml:"debt_ratio" json:"debt_ratio"`
}

// Get returns the tier table of one factor
func (t FactorTiers) Get(kind contracts.FactorKind) TierTable {
	switch kind {
	case contracts.FactorPERelative:
		return t.PERelative
	case contracts.FactorROE:
		return t.ROE
	case contracts.FactorEPSYoY:
		return t.EPSYoY
	case contracts.FactorFCF:
		return t.FCF
	case contracts.FactorGrossMarginTrend:
		return t.GrossMarginTrend
	case contracts.FactorRevenueYoY:
		return t.RevenueYoY
	case contracts.FactorDebtRatio:
		return t.DebtRatio
	default:
		return TierTable{}
	}
}

// Flow S3: 수급 게이트
type Flow struct {
	WindowDays        int         `yaml:"window_days" json:"window_days"`
	StrengthThreshold float64     `yaml:"strength_threshold" json:"strength_threshold"`
	Weights           FlowWeights `yaml:"weights" json:"weights"` // 합 = 1.0

	// 서브 시그널 구간 (단위: 거래량 천주)
	ForeignStrongAvg      float64 `yaml:"foreign_strong_avg" json:"foreign_strong_avg"`
	ForeignWeakAvg        float64 `yaml:"foreign_weak_avg" json:"foreign_weak_avg"` // 음수
	DealerFloor           float64 `yaml:"dealer_floor" json:"dealer_floor"`         // 음수
	InstitutionalStrong   float64 `yaml:"institutional_strong" json:"institutional_strong"`
	InstitutionalModerate float64 `yaml:"institutional_moderate" json:"institutional_moderate"`
	HolderStrongDelta     float64 `yaml:"holder_strong_delta" json:"holder_strong_delta"` // %p
}

// FlowWeights 수급 강도 서브 시그널 가중치
type FlowWeights struct {
	TrustStreak      float64 `yaml:"trust_streak" json:"trust_streak"`
	ForeignTrend     float64 `yaml:"foreign_trend" json:"foreign_trend"`
	DealerActivity   float64 `yaml:"dealer_activity" json:"dealer_activity"`
	InstitutionalNet float64 `yaml:"institutional_net" json:"institutional_net"`
	HolderTrend      float64 `yaml:"holder_trend" json:"holder_trend"`
}

// Values returns the weights in sub-signal order
func (w FlowWeights) Values() []float64 {
	return []float64{w.TrustStreak, w.ForeignTrend, w.DealerActivity, w.InstitutionalNet, w.HolderTrend}
}

// Technical S4: 기술적 분류
type Technical struct {
	RSIPeriod        int     `yaml:"rsi_period" json:"rsi_period"`
	BollingerWindow  int     `yaml:"bollinger_window" json:"bollinger_window"`
	BollingerK       float64 `yaml:"bollinger_k" json:"bollinger_k"`
	VolumeWindow     int     `yaml:"volume_window" json:"volume_window"`
	VolumeSurgeRatio float64 `yaml:"volume_surge_ratio" json:"volume_surge_ratio"`

	Weights TechnicalWeights `yaml:"weights" json:"weights"` // 합 = 1.0
	Bands   SignalBands      `yaml:"bands" json:"bands"`

	OverheatBiasPct float64 `yaml:"overheat_bias_pct" json:"overheat_bias_pct"` // 0 = 비활성
	EntryBiasMaxPct float64 `yaml:"entry_bias_max_pct" json:"entry_bias_max_pct"`
}

// TechnicalWeights 기술적 서브 점수 가중치
type TechnicalWeights struct {
	MAAlignment float64 `yaml:"ma_alignment" json:"ma_alignment"`
	Momentum    float64 `yaml:"momentum" json:"momentum"`
	RSI         float64 `yaml:"rsi" json:"rsi"`
	Stochastic  float64 `yaml:"stochastic" json:"stochastic"`
	Volume      float64 `yaml:"volume" json:"volume"`
	Band        float64 `yaml:"band" json:"band"`
}

// Values returns the weights in sub-score order
func (w TechnicalWeights) Values() []float64 {
	return []float64{w.MAAlignment, w.Momentum, w.RSI, w.Stochastic, w.Volume, w.Band}
}

// SignalBands 시그널 구간 하한 (내림차순)
type SignalBands struct {
	StrongBuy float64 `yaml:"strong_buy" json:"strong_buy"`
	Buy       float64 `yaml:"buy" json:"buy"`
	Watch     float64 `yaml:"watch" json:"watch"`
}

// Pipeline 실행 설정
type Pipeline struct {
	Workers   int `yaml:"workers" json:"workers"`
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}
