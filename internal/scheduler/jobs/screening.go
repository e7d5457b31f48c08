package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/fingear/internal/brain"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/pkg/logger"
)

// DefaultScreeningSchedule is weekdays at 16:00 (after market close)
const DefaultScreeningSchedule = "0 0 16 * * 1-5"

// Runner executes one screening run
type Runner interface {
	Run(ctx context.Context, rc brain.RunConfig) (*brain.RunResult, error)
}

// ScreeningJob runs the daily screening
// ⭐ SSOT: 일일 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	runner   Runner
	universe s1_universe.Request
	schedule string
	logger   *logger.Logger
}

// NewScreeningJob creates a new screening job. 빈 schedule → DefaultScreeningSchedule
func NewScreeningJob(runner Runner, universe s1_universe.Request, schedule string, log *logger.Logger) *ScreeningJob {
	if schedule == "" {
		schedule = DefaultScreeningSchedule
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ScreeningJob{
		runner:   runner,
		universe: universe,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "daily_screening"
}

// Schedule returns the cron schedule
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run screens today's universe (날짜는 전략 timezone 기준)
func (j *ScreeningJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled screening")

	result, err := j.runner.Run(ctx, brain.RunConfig{Universe: j.universe})
	if err != nil {
		return fmt.Errorf("screening run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id": result.RunID,
		"date":   result.Date.Format("2006-01-02"),
		"saved":  result.Saved,
	}
	if result.Report != nil {
		fields["results"] = len(result.Report.Results)
		fields["exclusions"] = len(result.Report.Exclusions)
	}
	j.logger.WithFields(fields).Info("Scheduled screening completed")
	return nil
}
