package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/fingear/pkg/logger"
)

// Options tune retries and the cron timezone
type Options struct {
	Location   *time.Location // nil → time.Local
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultOptions returns the production retry policy
func DefaultOptions() Options {
	return Options{
		MaxRetries: 2,
		RetryDelay: 5 * time.Minute,
	}
}

// Scheduler runs registered jobs on their cron schedules
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	logger  *logger.Logger
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	running map[string]bool
	history map[string]*JobHistory
}

// New creates a new scheduler
func New(opts Options, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(opts.Location)),
		parser:  parser,
		logger:  log,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		running: make(map[string]bool),
		history: make(map[string]*JobHistory),
	}
}

// AddJob registers a job on its schedule
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.entries[name] = id
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
		"timezone": s.opts.Location.String(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob unregisters a job; its history is kept
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.entries, name)

	s.logger.WithField("job", name).Info("Job removed from scheduler")
	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// NextRun returns the next fire time of a job
func (s *Scheduler) NextRun(name string, from time.Time) (time.Time, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}

	sched, err := s.parser.Parse(job.Schedule())
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from.In(s.opts.Location)), nil
}

// RunJob runs a job immediately and blocks until it finishes
func (s *Scheduler) RunJob(name string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}

	result, ran := s.execute(job)
	if !ran {
		return JobResult{}, fmt.Errorf("job %s is already running", name)
	}
	return result, nil
}

// execute runs job with retries. 같은 잡은 동시에 한 번만 실행
func (s *Scheduler) execute(job Job) (JobResult, bool) {
	name := job.Name()

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.logger.WithField("job", name).Warn("Job still running, skipping")
		return JobResult{}, false
	}
	s.running[name] = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[name] = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	result := JobResult{JobName: name, StartTime: time.Now()}
	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		lastErr = s.runOnce(job)
		if lastErr == nil {
			result.Success = true
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
		}).WithError(lastErr).Warn("Job execution failed")

		if attempt == s.opts.MaxRetries {
			break
		}
		select {
		case <-s.ctx.Done():
			lastErr = fmt.Errorf("scheduler stopped: %w", lastErr)
			attempt = s.opts.MaxRetries
		case <-time.After(s.opts.RetryDelay):
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if !result.Success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.AddResult(result)
	}
	s.mu.Unlock()

	log := s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"attempts": result.Attempts,
		"duration": result.Duration.String(),
	})
	if result.Success {
		log.Info("Job completed successfully")
	} else {
		log.WithError(lastErr).Error("Job failed after all retries")
	}
	return result, true
}

func (s *Scheduler) runOnce(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(s.ctx)
}

// JobHistory returns a copy of a job's history
func (s *Scheduler) JobHistory(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return &JobHistory{Results: append([]JobResult(nil), h.Results...)}, nil
}

// Jobs returns the registered job names, sorted
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobStats summarizes one job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	TotalRuns    int        `json:"total_runs"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *JobResult `json:"last_run,omitempty"`
}

// Stats returns statistics for all registered jobs
func (s *Scheduler) Stats() []JobStats {
	now := time.Now()
	stats := make([]JobStats, 0)

	for _, name := range s.Jobs() {
		s.mu.RLock()
		job, ok := s.jobs[name]
		h := s.history[name]
		st := JobStats{
			JobName:      name,
			TotalRuns:    len(h.Results),
			FailureCount: h.Failures(),
			SuccessRate:  h.SuccessRate(),
		}
		if last, ok := h.Latest(); ok {
			st.LastRun = &last
		}
		s.mu.RUnlock()
		if !ok {
			continue
		}

		st.Schedule = job.Schedule()
		if next, err := s.NextRun(name, now); err == nil {
			st.NextRun = &next
		}
		stats = append(stats, st)
	}
	return stats
}
