package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/brain"
	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/internal/scheduler"
)

type fakeRunner struct {
	got []brain.RunConfig
	err error
}

func (f *fakeRunner) Run(_ context.Context, rc brain.RunConfig) (*brain.RunResult, error) {
	f.got = append(f.got, rc)
	if f.err != nil {
		return &brain.RunResult{}, f.err
	}
	return &brain.RunResult{
		RunID:   "run-1",
		Date:    time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Success: true,
		Saved:   true,
		Report:  &contracts.ScreeningReport{},
	}, nil
}

type fakePurger struct {
	cutoff time.Time
	err    error
}

func (f *fakePurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, f.err
}

func TestScreeningJob(t *testing.T) {
	runner := &fakeRunner{}
	req := s1_universe.Request{TopN: 50}
	job := NewScreeningJob(runner, req, "", nil)

	assert.Equal(t, "daily_screening", job.Name())
	assert.Equal(t, DefaultScreeningSchedule, job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, runner.got, 1)
	assert.Equal(t, req, runner.got[0].Universe)
	assert.True(t, runner.got[0].Date.IsZero(), "orchestrator picks today")

	runner.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))

	custom := NewScreeningJob(runner, req, "0 30 17 * * 1-5", nil)
	assert.Equal(t, "0 30 17 * * 1-5", custom.Schedule())
}

func TestRetentionJob(t *testing.T) {
	purger := &fakePurger{}
	job := NewRetentionJob(purger, 0, nil)
	job.now = func() time.Time { return time.Date(2025, 7, 31, 3, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), purger.cutoff)

	purger.err = errors.New("locked")
	assert.Error(t, job.Run(context.Background()))
}

func TestJobsRegisterOnScheduler(t *testing.T) {
	s := scheduler.New(scheduler.Options{}, nil)
	require.NoError(t, s.AddJob(NewScreeningJob(&fakeRunner{}, s1_universe.Request{TopN: 10}, "", nil)))
	require.NoError(t, s.AddJob(NewRetentionJob(&fakePurger{}, 30, nil)))

	assert.Equal(t, []string{"daily_screening", "result_retention"}, s.Jobs())

	result, err := s.RunJob("result_retention")
	require.NoError(t, err)
	assert.True(t, result.Success)
}
