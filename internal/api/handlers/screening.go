package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/fingear/internal/brain"
	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/pkg/logger"
	"github.com/wonny/fingear/pkg/redis"
)

const dateLayout = "2006-01-02"

// ReportStore reads saved screening reports
type ReportStore interface {
	LatestReport(ctx context.Context) (*contracts.ScreeningReport, error)
	ReportByDate(ctx context.Context, date time.Time) (*contracts.ScreeningReport, error)
}

// ReportCache holds the latest report in front of the store
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Runner triggers a screening run
type Runner interface {
	Run(ctx context.Context, rc brain.RunConfig) (*brain.RunResult, error)
}

// ScreeningHandler serves screening reports and manual runs
// ⭐ SSOT: 스크리닝 API 핸들러는 이 구조체에서만
type ScreeningHandler struct {
	reports  ReportStore
	latest   ReportCache
	runner   Runner
	universe s1_universe.Request
	limiter  *rate.Limiter
	logger   *logger.Logger
}

// NewScreeningHandler creates a new screening handler.
// runEvery 는 수동 실행 최소 간격 (0 이하 → 제한 없음). latest 와 runner 는 nil 가능.
func NewScreeningHandler(reports ReportStore, latest ReportCache, runner Runner, universe s1_universe.Request, runEvery time.Duration, log *logger.Logger) *ScreeningHandler {
	if log == nil {
		log = logger.Nop()
	}
	limit := rate.Inf
	if runEvery > 0 {
		limit = rate.Every(runEvery)
	}
	return &ScreeningHandler{
		reports:  reports,
		latest:   latest,
		runner:   runner,
		universe: universe,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   log,
	}
}

// GetLatest returns the most recent report
// GET /api/screening/latest
func (h *ScreeningHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.latest != nil {
		var cached contracts.ScreeningReport
		found, err := h.latest.Get(ctx, redis.LatestReportKey(), &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Latest report cache read failed")
		}
		if found {
			respondJSON(w, http.StatusOK, reportView(&cached, wantTrace(r)))
			return
		}
	}

	report, err := h.reports.LatestReport(ctx)
	if err != nil {
		h.reportError(w, err, "latest")
		return
	}

	// 저장 시 키가 삭제되므로 여기서만 채움 (DB 최신 run_date 기준)
	if h.latest != nil {
		if err := h.latest.Set(ctx, redis.LatestReportKey(), report, redis.TTLMedium); err != nil {
			h.logger.WithError(err).Warn("Latest report cache write failed")
		}
	}
	respondJSON(w, http.StatusOK, reportView(report, wantTrace(r)))
}

// GetByDate returns the latest report of one date
// GET /api/screening/{date}
func (h *ScreeningHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, mux.Vars(r)["date"])
	if !ok {
		return
	}

	report, err := h.reports.ReportByDate(r.Context(), date)
	if err != nil {
		h.reportError(w, err, date.Format(dateLayout))
		return
	}
	respondJSON(w, http.StatusOK, reportView(report, wantTrace(r)))
}

// ExplainResponse is the full record of one instrument in a run
type ExplainResponse struct {
	RunID     string                    `json:"run_id"`
	Date      string                    `json:"date"`
	Symbol    string                    `json:"symbol"`
	Result    contracts.ScreeningResult `json:"result"`
	Exclusion *contracts.Exclusion      `json:"exclusion,omitempty"`
}

// Explain returns why an instrument was selected or excluded
// GET /api/screening/{date}/stocks/{symbol}
func (h *ScreeningHandler) Explain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	date, ok := parseDate(w, vars["date"])
	if !ok {
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(vars["symbol"]))

	report, err := h.reports.ReportByDate(r.Context(), date)
	if err != nil {
		h.reportError(w, err, date.Format(dateLayout))
		return
	}

	rec, exclusion, found := report.Explain(symbol)
	if !found {
		respondError(w, http.StatusNotFound, "symbol not in universe: "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, ExplainResponse{
		RunID:     report.RunID,
		Date:      report.Date.Format(dateLayout),
		Symbol:    symbol,
		Result:    rec,
		Exclusion: exclusion,
	})
}

// RunRequest is the optional body of a manual run
type RunRequest struct {
	Date    string   `json:"date,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	TopN    int      `json:"top_n,omitempty"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// RunResponse summarizes a finished manual run
type RunResponse struct {
	RunID      string                      `json:"run_id"`
	Date       string                      `json:"date"`
	Saved      bool                        `json:"saved"`
	Universe   int                         `json:"universe"`
	Results    []contracts.ScreeningResult `json:"results"`
	Exclusions map[string]int              `json:"exclusions"`
	DurationMs int64                       `json:"duration_ms"`
}

// Run triggers a screening run (rate limited)
// POST /api/screening/run
func (h *ScreeningHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "screening runs are disabled")
		return
	}

	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rc := brain.RunConfig{Universe: h.universe, DryRun: req.DryRun}
	if req.Date != "" {
		date, ok := parseDate(w, req.Date)
		if !ok {
			return
		}
		rc.Date = date
	}
	if len(req.Symbols) > 0 {
		rc.Universe = s1_universe.Request{Symbols: req.Symbols}
	} else if req.TopN > 0 {
		rc.Universe.TopN = req.TopN
	}

	// 검증 이후에 토큰 소비
	if res := h.limiter.Reserve(); res.Delay() > 0 {
		retry := res.Delay()
		res.Cancel()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		respondError(w, http.StatusTooManyRequests, "screening run rate limit exceeded")
		return
	}

	result, err := h.runner.Run(r.Context(), rc)
	if err != nil {
		h.logger.WithError(err).Error("Manual screening run failed")
		if contracts.IsConfiguration(err) || contracts.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "screening run failed")
		return
	}

	resp := RunResponse{
		RunID:      result.RunID,
		Date:       result.Date.Format(dateLayout),
		Saved:      result.Saved,
		Results:    []contracts.ScreeningResult{},
		Exclusions: map[string]int{},
		DurationMs: result.Duration.Milliseconds(),
	}
	if result.Report != nil {
		resp.Universe = result.Report.UniverseSize
		resp.Results = result.Report.Results
		resp.Exclusions = result.Report.ExclusionCounts()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *ScreeningHandler) reportError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no screening report: "+what)
		return
	}
	h.logger.WithError(err).Error("Failed to load screening report")
	respondError(w, http.StatusInternalServerError, "failed to load screening report")
}

func parseDate(w http.ResponseWriter, s string) (time.Time, bool) {
	date, err := time.Parse(dateLayout, s)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// ?trace=true 일 때만 전체 trace 포함
func wantTrace(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("trace"))
	return v
}

func reportView(report *contracts.ScreeningReport, trace bool) *contracts.ScreeningReport {
	if trace || report.Trace == nil {
		return report
	}
	view := *report
	view.Trace = nil
	return &view
}
