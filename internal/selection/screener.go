package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s0_data/quality"
	"github.com/wonny/fingear/internal/s2_signals"
	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/logger"
)

// FundamentalScorer computes the S2 composite for one instrument
type FundamentalScorer interface {
	Score(symbol string, date time.Time, rec *contracts.FundamentalRecord) (*contracts.FundamentalScore, error)
}

// FlowEvaluator is the S3 gate
type FlowEvaluator interface {
	WindowDays() int
	Evaluate(symbol string, flow *contracts.FlowRecord, holder *contracts.HolderConcentration) *contracts.FlowAssessment
}

// TechnicalEvaluator is the S4 classifier
type TechnicalEvaluator interface {
	Classify(symbol string, rec *contracts.PriceRecord) *contracts.TechnicalAssessment
}

// ScoreCache memoizes S2 scores per evaluation date
type ScoreCache interface {
	GetOrCompute(ctx context.Context, date time.Time, symbol string, compute func() (*contracts.FundamentalScore, error)) (*contracts.FundamentalScore, error)
}

// Deps are the collaborators of a Screener. Cache may be nil.
type Deps struct {
	Source    contracts.MarketDataSource
	Scorer    FundamentalScorer
	Flow      FlowEvaluator
	Technical TechnicalEvaluator
	Cache     ScoreCache
}

// Options are the run-level knobs
type Options struct {
	TopK              int
	MinPETier         int
	Workers           int
	PriceLookbackDays int // 기술적 분류용 가격 조회 기간 (달력일)
}

// DefaultPriceLookbackDays covers 60+ trading days
const DefaultPriceLookbackDays = 180

// Screener runs S2 → S3 → S4 over a universe
// ⭐ SSOT: 스크리닝 파이프라인 실행은 여기서만
type Screener struct {
	deps      Deps
	opts      Options
	validator *quality.RecordValidator
	logger    *logger.Logger
}

// NewScreener creates a screener from explicit collaborators
func NewScreener(deps Deps, opts Options, log *logger.Logger) (*Screener, error) {
	if deps.Source == nil || deps.Scorer == nil || deps.Flow == nil || deps.Technical == nil {
		return nil, &contracts.ConfigurationError{Field: "screener", Message: "source, scorer, flow and technical are required"}
	}
	if opts.Workers < 1 {
		return nil, &contracts.ConfigurationError{Field: "pipeline.workers", Message: "must be >= 1"}
	}
	if opts.TopK < 0 {
		return nil, &contracts.ConfigurationError{Field: "fundamental.top_k", Message: "must be >= 0"}
	}
	if opts.PriceLookbackDays <= 0 {
		opts.PriceLookbackDays = DefaultPriceLookbackDays
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Screener{
		deps:      deps,
		opts:      opts,
		validator: quality.NewRecordValidator(),
		logger:    log,
	}, nil
}

// NewFromConfig validates cfg and wires the default S2/S3/S4 evaluators
func NewFromConfig(source contracts.MarketDataSource, cfg *strategyconfig.Config, cache *s2_signals.ScoreCache, log *logger.Logger) (*Screener, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}

	scorer, err := s2_signals.NewFundamentalScorer(cfg.Fundamental, log)
	if err != nil {
		return nil, err
	}
	gate, err := s2_signals.NewFlowGate(cfg.Flow, log)
	if err != nil {
		return nil, err
	}
	classifier, err := s2_signals.NewTechnicalClassifier(cfg.Technical, log)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Source:    source,
		Scorer:    scorer,
		Flow:      gate,
		Technical: classifier,
	}
	// nil *ScoreCache 를 interface 에 넣지 않음
	if cache != nil {
		deps.Cache = cache
	}

	return NewScreener(deps, Options{
		TopK:      cfg.Fundamental.TopK,
		MinPETier: cfg.Fundamental.MinPETier,
		Workers:   cfg.Pipeline.Workers,
	}, log)
}

type fundamentalOutcome struct {
	score *contracts.FundamentalScore
	err   error
}

type flowOutcome struct {
	assessment *contracts.FlowAssessment
	err        error
}

type technicalOutcome struct {
	assessment *contracts.TechnicalAssessment
	err        error
	stage      contracts.Stage
}

// Screen evaluates universe as of date.
// Every distinct symbol ends in exactly one of Results or Exclusions.
// A cancelled context aborts the run and returns ctx.Err().
func (s *Screener) Screen(ctx context.Context, universe []string, date time.Time) (*contracts.ScreeningReport, error) {
	start := time.Now()
	symbols := dedup(universe)

	report := &contracts.ScreeningReport{
		Date:         date,
		UniverseSize: len(symbols),
		TopK:         s.opts.TopK,
		Results:      []contracts.ScreeningResult{},
		Exclusions:   []contracts.Exclusion{},
		Trace:        make(map[string]contracts.ScreeningResult, len(symbols)),
	}
	records := make(map[string]contracts.ScreeningResult, len(symbols))
	for _, sym := range symbols {
		records[sym] = contracts.NewScreeningResult(sym)
	}
	exclude := func(rec contracts.ScreeningResult, ex contracts.Exclusion) {
		records[rec.Symbol] = rec
		report.Exclusions = append(report.Exclusions, ex)
		log := s.logger.WithFields(map[string]interface{}{
			"symbol": ex.Symbol,
			"stage":  ex.Stage,
			"reason": ex.Reason,
		})
		if ex.Reason == contracts.ReasonFundamentalRank {
			log.Debug("Instrument excluded")
			return
		}
		log.Warn("Instrument excluded")
	}

	// === S2: Fundamental ===
	fundamentals := make([]fundamentalOutcome, len(symbols))
	err := s.forEach(ctx, len(symbols), func(ctx context.Context, i int) {
		fundamentals[i] = s.evalFundamental(ctx, symbols[i], date)
	})
	if err != nil {
		return nil, err
	}

	scored := make([]*contracts.FundamentalScore, 0, len(symbols))
	for i, out := range fundamentals {
		sym := symbols[i]
		if out.err != nil {
			ex := exclusionFor(sym, contracts.StageFundamental, out.err)
			exclude(records[sym].Rejected(ex.Stage, ex.Reason), ex)
			continue
		}
		if ok, detail := PEPosition(out.score, s.opts.MinPETier); !ok {
			rec := records[sym].WithFundamental(out.score, 0, contracts.GateDecision{
				Stage:  contracts.StageFundamental,
				Reason: contracts.ReasonPEPosition,
				Score:  out.score.Composite,
			})
			exclude(rec, contracts.Exclusion{Symbol: sym, Stage: contracts.StageFundamental, Reason: contracts.ReasonPEPosition, Detail: detail})
			continue
		}
		scored = append(scored, out.score)
	}

	ranked := RankFundamentals(scored)
	selected, rest := SplitTopK(ranked, s.opts.TopK)
	for i, score := range ranked {
		passed := i < len(selected)
		gate := contracts.GateDecision{Stage: contracts.StageFundamental, Passed: passed, Score: score.Composite}
		if !passed {
			gate.Reason = contracts.ReasonFundamentalRank
		}
		records[score.Symbol] = records[score.Symbol].WithFundamental(score, i+1, gate)
	}
	for _, score := range rest {
		exclude(records[score.Symbol], contracts.Exclusion{
			Symbol: score.Symbol,
			Stage:  contracts.StageFundamental,
			Reason: contracts.ReasonFundamentalRank,
			Detail: fmt.Sprintf("rank %d > top_k %d", records[score.Symbol].Rank, s.opts.TopK),
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"universe": len(symbols),
		"scored":   len(scored),
		"selected": len(selected),
	}).Info("S2 fundamental stage completed")

	// === S3: Flow ===
	flows := make([]flowOutcome, len(selected))
	err = s.forEach(ctx, len(selected), func(ctx context.Context, i int) {
		flows[i] = s.evalFlow(ctx, selected[i].Symbol)
	})
	if err != nil {
		return nil, err
	}

	passedFlow := make([]*contracts.FundamentalScore, 0, len(selected))
	for i, out := range flows {
		sym := selected[i].Symbol
		if out.err != nil {
			ex := exclusionFor(sym, contracts.StageFlow, out.err)
			exclude(records[sym].Rejected(ex.Stage, ex.Reason), ex)
			continue
		}
		a := out.assessment
		rec := records[sym].WithFlow(a, contracts.GateDecision{
			Stage:  contracts.StageFlow,
			Passed: a.Passed,
			Reason: a.Reason,
			Score:  a.Strength,
		})
		if !a.Passed {
			exclude(rec, contracts.Exclusion{
				Symbol: sym,
				Stage:  contracts.StageFlow,
				Reason: a.Reason,
				Detail: fmt.Sprintf("net_sum=%d strength=%.2f holder_delta=%.2f", a.NetSum, a.Strength, a.HolderDelta),
			})
			continue
		}
		records[sym] = rec
		passedFlow = append(passedFlow, selected[i])
	}

	s.logger.WithFields(map[string]interface{}{
		"input":  len(selected),
		"passed": len(passedFlow),
	}).Info("S3 flow stage completed")

	// === S4: Technical ===
	techs := make([]technicalOutcome, len(passedFlow))
	err = s.forEach(ctx, len(passedFlow), func(ctx context.Context, i int) {
		techs[i] = s.evalTechnical(ctx, passedFlow[i].Symbol, date)
	})
	if err != nil {
		return nil, err
	}

	for i, out := range techs {
		sym := passedFlow[i].Symbol
		if out.err != nil {
			ex := exclusionFor(sym, out.stage, out.err)
			exclude(records[sym].Rejected(ex.Stage, ex.Reason), ex)
			continue
		}
		a := out.assessment
		rec := records[sym].WithTechnical(a, contracts.GateDecision{
			Stage:  contracts.StageTechnical,
			Passed: !a.Insufficient,
			Score:  a.Score,
		})
		records[sym] = rec
		report.Results = append(report.Results, rec)
	}

	contracts.SortExclusions(report.Exclusions)
	for sym, rec := range records {
		report.Trace[sym] = rec
	}
	report.Duration = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"universe":   report.UniverseSize,
		"results":    len(report.Results),
		"exclusions": len(report.Exclusions),
		"signals":    report.SignalCounts(),
		"duration":   report.Duration.String(),
	}).Info("Screening completed")

	return report, nil
}

// forEach runs fn for 0..n-1 on at most Workers goroutines.
// Each fn writes only its own slot, so output order never depends on scheduling.
func (s *Screener) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Screener) evalFundamental(ctx context.Context, symbol string, date time.Time) (out fundamentalOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fundamentalOutcome{err: panicError(symbol, contracts.StageFundamental, r)}
		}
	}()

	compute := func() (*contracts.FundamentalScore, error) {
		rec, err := s.deps.Source.GetFundamentalHistory(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return s.deps.Scorer.Score(symbol, date, rec)
	}

	var (
		score *contracts.FundamentalScore
		err   error
	)
	if s.deps.Cache != nil {
		score, err = s.deps.Cache.GetOrCompute(ctx, date, symbol, compute)
	} else {
		score, err = compute()
	}
	return fundamentalOutcome{score: score, err: err}
}

// evalFlow treats absent flow/holder data as input to the gate, not an error
func (s *Screener) evalFlow(ctx context.Context, symbol string) (out flowOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = flowOutcome{err: panicError(symbol, contracts.StageFlow, r)}
		}
	}()

	flow, err := s.deps.Source.GetFlowHistory(ctx, symbol, s.deps.Flow.WindowDays())
	if err != nil {
		if !errors.Is(err, contracts.ErrNotFound) {
			return flowOutcome{err: err}
		}
		flow = nil
	}

	holder, err := s.deps.Source.GetHolderConcentration(ctx, symbol)
	if err != nil {
		if !errors.Is(err, contracts.ErrNotFound) {
			return flowOutcome{err: err}
		}
		holder = nil
	}

	return flowOutcome{assessment: s.deps.Flow.Evaluate(symbol, flow, holder)}
}

func (s *Screener) evalTechnical(ctx context.Context, symbol string, date time.Time) (out technicalOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = technicalOutcome{err: panicError(symbol, contracts.StageTechnical, r), stage: contracts.StageTechnical}
		}
	}()

	from := date.AddDate(0, 0, -s.opts.PriceLookbackDays)
	rec, err := s.deps.Source.GetPriceHistory(ctx, symbol, from, date)
	if err != nil {
		return technicalOutcome{err: err, stage: contracts.StageTechnical}
	}
	if len(rec.Bars) == 0 {
		return technicalOutcome{
			err:   fmt.Errorf("prices %s: %w", symbol, contracts.ErrNotFound),
			stage: contracts.StageTechnical,
		}
	}
	if err := s.validator.ValidatePrice(rec); err != nil {
		return technicalOutcome{err: err, stage: contracts.StageTechnical}
	}

	return technicalOutcome{assessment: s.deps.Technical.Classify(symbol, rec)}
}

func panicError(symbol string, stage contracts.Stage, r interface{}) error {
	return &contracts.EvaluationError{Symbol: symbol, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
}

// exclusionFor maps a per-instrument error to its stage and reason
func exclusionFor(symbol string, stage contracts.Stage, err error) contracts.Exclusion {
	ex := contracts.Exclusion{Symbol: symbol, Stage: stage, Detail: err.Error()}

	switch {
	case errors.Is(err, contracts.ErrNotFound):
		if stage == contracts.StageTechnical {
			ex.Reason = contracts.ReasonPriceNotFound
		} else {
			ex.Reason = contracts.ReasonFundamentalNotFound
		}
	case contracts.IsValidation(err):
		ex.Stage = contracts.StageDataQuality
		if stage == contracts.StageTechnical {
			ex.Reason = contracts.ReasonPriceValidation
		} else {
			ex.Reason = contracts.ReasonFundamentalValidation
		}
	case contracts.IsDataInsufficient(err):
		ex.Reason = contracts.ReasonFundamentalInsufficient
	default:
		ex.Reason = contracts.ReasonEvaluationError
	}
	return ex
}

// dedup drops blanks and repeats, keeping first occurrence order
func dedup(universe []string) []string {
	u := contracts.Universe{Stocks: make([]string, 0, len(universe))}
	for _, sym := range universe {
		if sym != "" {
			u.Stocks = append(u.Stocks, sym)
		}
	}
	u.Dedup()
	return u.Stocks
}
