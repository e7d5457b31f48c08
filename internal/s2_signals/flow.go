package s2_signals

import (
	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/logger"
)

// FlowGate evaluates institutional flow (수급) and large-holder trend
// ⭐ SSOT: S3 수급 게이트는 여기서만
type FlowGate struct {
	cfg    strategyconfig.Flow
	logger *logger.Logger
}

// NewFlowGate validates the configuration and creates a gate
func NewFlowGate(cfg strategyconfig.Flow, log *logger.Logger) (*FlowGate, error) {
	if err := strategyconfig.ValidateFlow(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FlowGate{cfg: cfg, logger: log}, nil
}

// WindowDays returns the trailing window the gate needs
func (g *FlowGate) WindowDays() int {
	return g.cfg.WindowDays
}

// Evaluate is a pure function of the trailing window and the two holder snapshots.
// Missing data fails the gate (확인 불가 = 거부), never an error.
func (g *FlowGate) Evaluate(symbol string, flow *contracts.FlowRecord, holder *contracts.HolderConcentration) *contracts.FlowAssessment {
	a := &contracts.FlowAssessment{Symbol: symbol, WindowDays: g.cfg.WindowDays}

	if flow == nil || len(flow.Days) == 0 {
		a.Reason = contracts.ReasonFlowDataMissing
		return a
	}
	if holder == nil || contracts.IsMissing(holder.Latest) || contracts.IsMissing(holder.Prior) {
		a.Reason = contracts.ReasonHolderDataMissing
		return a
	}

	days := flow.SortedDays()
	if len(days) < g.cfg.WindowDays {
		a.Reason = contracts.ReasonFlowDataInsufficient
		return a
	}
	window := days[len(days)-g.cfg.WindowDays:]

	var netSum, foreignSum, dealerSum int64
	for _, d := range window {
		netSum += d.TotalNet()
		foreignSum += d.ForeignNet
		dealerSum += d.DealerNet
	}
	a.NetSum = netSum
	a.DealerSum = dealerSum
	a.ForeignAvg = float64(foreignSum) / float64(len(window))
	a.TrustStreak = trustStreak(window)
	a.HolderDelta = holder.Change()

	a.NetPositive = netSum > 0
	a.HolderRising = holder.Latest > holder.Prior

	a.SubScores = contracts.FlowSubScores{
		TrustStreak:      trustStreakScore(a.TrustStreak),
		ForeignTrend:     g.foreignTrendScore(a.ForeignAvg, window[len(window)-1].ForeignNet),
		DealerActivity:   g.dealerScore(dealerSum),
		InstitutionalNet: g.institutionalScore(netSum),
		HolderTrend:      g.holderScore(a.HolderDelta),
	}
	w := g.cfg.Weights
	a.Strength = round2(
		a.SubScores.TrustStreak*w.TrustStreak +
			a.SubScores.ForeignTrend*w.ForeignTrend +
			a.SubScores.DealerActivity*w.DealerActivity +
			a.SubScores.InstitutionalNet*w.InstitutionalNet +
			a.SubScores.HolderTrend*w.HolderTrend,
	)

	switch {
	case !a.NetPositive:
		a.Reason = contracts.ReasonFlowNetNotPositive
	case !a.HolderRising:
		a.Reason = contracts.ReasonHolderTrendNotUp
	case a.Strength < g.cfg.StrengthThreshold:
		a.Reason = contracts.ReasonFlowStrengthBelowGate
	default:
		a.Passed = true
	}

	g.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"net_sum":  netSum,
		"strength": a.Strength,
		"passed":   a.Passed,
	}).Debug("Evaluated flow gate")

	return a
}

// trustStreak counts consecutive trust net-buy days from the latest backwards
func trustStreak(window []contracts.FlowDay) int {
	streak := 0
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].TrustNet <= 0 {
			break
		}
		streak++
	}
	return streak
}

// trustStreakScore: 투신 연속 순매수일
func trustStreakScore(streak int) float64 {
	switch {
	case streak >= 5:
		return 100
	case streak >= 3:
		return 66.67
	case streak >= 1:
		return 33.33
	default:
		return 0
	}
}

// foreignTrendScore: 외국인 평균 순매수 + 최근일 방향
func (g *FlowGate) foreignTrendScore(avg float64, latest int64) float64 {
	switch {
	case avg > g.cfg.ForeignStrongAvg && latest > 0:
		return 100
	case avg > 0:
		return 60
	case avg > g.cfg.ForeignWeakAvg:
		return 20
	default:
		return 0
	}
}

// dealerScore: 자영 합계
func (g *FlowGate) dealerScore(sum int64) float64 {
	switch {
	case sum > 0:
		return 100
	case float64(sum) > g.cfg.DealerFloor:
		return 53.33
	default:
		return 0
	}
}

// institutionalScore: 3대 법인 합계
func (g *FlowGate) institutionalScore(sum int64) float64 {
	switch {
	case float64(sum) > g.cfg.InstitutionalStrong:
		return 100
	case float64(sum) > g.cfg.InstitutionalModerate:
		return 75
	case sum > 0:
		return 50
	default:
		return 0
	}
}

// holderScore: 대주주 비율 변화 (%p)
func (g *FlowGate) holderScore(delta float64) float64 {
	switch {
	case delta > g.cfg.HolderStrongDelta:
		return 100
	case delta >= 0:
		return 50
	default:
		return 0
	}
}
