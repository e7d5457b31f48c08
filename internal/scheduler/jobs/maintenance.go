package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fingear/pkg/logger"
)

// DefaultRetentionDays is how long screening runs are kept
const DefaultRetentionDays = 30

// Purger deletes runs dated before cutoff
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob removes old screening runs
type RetentionJob struct {
	purger   Purger
	keepDays int
	now      func() time.Time
	logger   *logger.Logger
}

// NewRetentionJob creates a new retention job. keepDays <= 0 → DefaultRetentionDays
func NewRetentionJob(purger Purger, keepDays int, log *logger.Logger) *RetentionJob {
	if keepDays <= 0 {
		keepDays = DefaultRetentionDays
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RetentionJob{
		purger:   purger,
		keepDays: keepDays,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "result_retention"
}

// Schedule returns the cron schedule (every day at 03:30)
func (j *RetentionJob) Schedule() string {
	return "0 30 3 * * *"
}

// Cutoff returns the first run date that is kept
func (j *RetentionJob) Cutoff() time.Time {
	now := j.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -j.keepDays)
}

// Run executes the purge
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff()

	removed, err := j.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge before %s: %w", cutoff.Format("2006-01-02"), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format("2006-01-02"),
		"removed": removed,
	}).Info("Retention purge completed")
	return nil
}
