package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fingear/internal/scheduler"
	"github.com/wonny/fingear/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run daily_screening`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_screening: 평일 16:00 (SCREEN_SCHEDULE, SCREEN_TIMEZONE)
- result_retention: 매일 03:30 (SCREEN_RETENTION_DAYS 이전 결과 삭제, postgres 모드)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler registers the screening and retention jobs
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *app, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	o, err := a.orchestrator()
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("init orchestrator: %w", err)
	}

	opts := scheduler.DefaultOptions()
	opts.Location = a.strategy.Meta.Location()
	sched := scheduler.New(opts, a.log)

	if err := sched.AddJob(jobs.NewScreeningJob(o, a.universeRequest(), a.cfg.Screening.Schedule, a.log)); err != nil {
		a.Close()
		return nil, nil, err
	}
	if a.reports != nil {
		if err := sched.AddJob(jobs.NewRetentionJob(a.reports, a.cfg.Screening.RetentionDays, a.log)); err != nil {
			a.Close()
			return nil, nil, err
		}
	}
	return sched, a, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FinGear Scheduler ===")

	sched, a, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println()
	PrintSuccess("Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	widths := []int{18, 16, 26}
	PrintTableHeader([]string{"Job", "Schedule", "Next run"}, widths)
	for _, st := range sched.Stats() {
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format(time.RFC3339)
		}
		PrintTableRow([]string{st.JobName, st.Schedule, next}, widths)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunJob(jobName)
	if err != nil {
		return err
	}
	if !result.Success {
		PrintError(fmt.Sprintf("Job %s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}
