package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 제외 사유, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Data  Universe  Fundamental  Flow  Technical

// Stage represents a pipeline stage
type Stage string

const (
	// StageDataQuality S0: 입력 레코드 검증
	// 책임: 스키마/정렬 검증, 결측 컬럼 탐지
	// 위치: internal/s0_data/quality/
	StageDataQuality Stage = "S0_DATA_QUALITY"

	// StageUniverse S1: 후보 종목 로딩
	// 책임: 시총 상위 N 또는 종목 파일에서 universe 구성
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageFundamental S2: 7팩터 펀더멘털 점수 + Top-K 선별
	// 위치: internal/s2_signals/fundamental.go
	StageFundamental Stage = "S2_FUNDAMENTAL"

	// StageFlow S3: 수급(칩) 게이트
	// 위치: internal/s2_signals/flow.go
	StageFlow Stage = "S3_FLOW"

	// StageTechnical S4: 기술적 분류 및 최종 시그널
	// 위치: internal/s2_signals/technical.go
	StageTechnical Stage = "S4_TECHNICAL"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageDataQuality:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageFundamental:
		return "S2"
	case StageFlow:
		return "S3"
	case StageTechnical:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageDataQuality:
		return "입력 데이터 검증"
	case StageUniverse:
		return "후보 종목"
	case StageFundamental:
		return "펀더멘털 점수/Top-K"
	case StageFlow:
		return "수급 게이트"
	case StageTechnical:
		return "기술적 시그널"
	default:
		return "알 수 없음"
	}
}

// Order returns the position of the stage in the pipeline, -1 if unknown
func (s Stage) Order() int {
	for i, stage := range AllStages() {
		if stage == s {
			return i
		}
	}
	return -1
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageDataQuality,
		StageUniverse,
		StageFundamental,
		StageFlow,
		StageTechnical,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	return Stage(s).Order() >= 0
}

// Exclusion reasons. 제외 사유는 이 상수만 사용 (DB/API 노출)
const (
	ReasonFundamentalRank         = "fundamental_rank"
	ReasonPEPosition              = "pe_position"
	ReasonFundamentalNotFound     = "fundamental_data_not_found"
	ReasonFundamentalValidation   = "fundamental_validation"
	ReasonFundamentalInsufficient = "fundamental_data_insufficient"

	ReasonFlowDataMissing       = "flow_data_missing"
	ReasonHolderDataMissing     = "holder_data_missing"
	ReasonFlowDataInsufficient  = "flow_data_insufficient"
	ReasonFlowNetNotPositive    = "flow_net_not_positive"
	ReasonHolderTrendNotUp      = "holder_trend_not_up"
	ReasonFlowStrengthBelowGate = "flow_strength_below_threshold"

	ReasonPriceNotFound   = "price_data_not_found"
	ReasonPriceValidation = "price_validation"

	ReasonEvaluationError = "evaluation_error"
)
