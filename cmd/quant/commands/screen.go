package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/wonny/fingear/internal/brain"
	"github.com/wonny/fingear/internal/contracts"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "종목 스크리닝",
	Long: `재무 → 수급 → 기술적 3단계 스크리닝을 실행하거나 결과를 설명합니다.

Subcommands:
  run      - 스크리닝 실행
  explain  - 특정 종목의 단계별 판정 조회

Example:
  go run ./cmd/quant screen run --date 2025-06-30
  go run ./cmd/quant screen run --symbols 2330,2317,2454 --dry-run
  go run ./cmd/quant screen explain 2330`,
}

var (
	screenRunCmd = &cobra.Command{
		Use:   "run",
		Short: "스크리닝 실행",
		Long: `Universe 를 구성하고 S2 → S3 → S4 를 실행합니다.

Universe 우선순위: --symbols > --file (UNIVERSE_FILE) > 시가총액 상위 --top-n (UNIVERSE_SIZE)

Flags:
  --date             평가 날짜 (기본: 오늘, snapshot 모드는 스냅샷 날짜)
  --dry-run          결과 저장 생략
  --json             JSON 출력
  --show-exclusions  제외 종목 전체 출력`,
		RunE: runScreen,
	}

	screenExplainCmd = &cobra.Command{
		Use:   "explain [symbol]",
		Short: "종목 판정 설명",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplain,
	}

	// Flags
	screenDate           string
	screenSymbols        []string
	screenFile           string
	screenTopN           int
	screenDryRun         bool
	screenJSON           bool
	screenShowExclusions bool
)

func init() {
	rootCmd.AddCommand(screenCmd)
	screenCmd.AddCommand(screenRunCmd)
	screenCmd.AddCommand(screenExplainCmd)

	screenCmd.PersistentFlags().StringVar(&screenDate, "date", "", "평가 날짜 (YYYY-MM-DD)")

	screenRunCmd.Flags().StringSliceVar(&screenSymbols, "symbols", nil, "종목 코드 목록 (쉼표 구분)")
	screenRunCmd.Flags().StringVar(&screenFile, "file", "", "universe 파일 (top_stocks.txt 형식)")
	screenRunCmd.Flags().IntVar(&screenTopN, "top-n", 0, "시가총액 상위 N (기본: UNIVERSE_SIZE)")
	screenRunCmd.Flags().BoolVar(&screenDryRun, "dry-run", false, "결과 저장 생략")
	screenRunCmd.Flags().BoolVar(&screenJSON, "json", false, "JSON 출력")
	screenRunCmd.Flags().BoolVar(&screenShowExclusions, "show-exclusions", false, "제외 종목 전체 출력")
}

// parseRunDate parses --date; 빈 값이면 snapshot 날짜 또는 zero (오늘)
func parseRunDate(a *app) (time.Time, error) {
	if screenDate != "" {
		date, err := time.Parse("2006-01-02", screenDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date format: %w", err)
		}
		return date, nil
	}
	if a.snapshot != nil {
		return a.snapshot.Date(), nil
	}
	return time.Time{}, nil
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseRunDate(a)
	if err != nil {
		return err
	}

	req := a.universeRequest()
	if screenFile != "" {
		req.File = screenFile
	}
	if screenTopN > 0 {
		req.TopN = screenTopN
	}
	req.Symbols = screenSymbols

	o, err := a.orchestrator()
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	result, err := o.Run(ctx, brain.RunConfig{
		Date:     date,
		Universe: req,
		DryRun:   screenDryRun || a.reports == nil,
	})
	if err != nil {
		return fmt.Errorf("screening run failed: %w", err)
	}

	for _, w := range result.Warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Report)
	}

	PrintReport(result.Report, screenShowExclusions || verbose)
	fmt.Println()
	if result.Saved {
		PrintSuccess(fmt.Sprintf("Run %s saved (%.2fs)", result.RunID, result.Duration.Seconds()))
	} else {
		PrintSuccess(fmt.Sprintf("Run %s completed, not saved (%.2fs)", result.RunID, result.Duration.Seconds()))
	}
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := loadReportForExplain(ctx, a)
	if err != nil {
		return err
	}

	rec, exclusion, found := report.Explain(symbol)
	if !found {
		return fmt.Errorf("%s is not in the %s universe", symbol, report.Date.Format("2006-01-02"))
	}
	PrintExplain(symbol, rec, exclusion)
	return nil
}

// loadReportForExplain reads a saved run (postgres) or re-screens the snapshot
func loadReportForExplain(ctx context.Context, a *app) (*contracts.ScreeningReport, error) {
	date, err := parseRunDate(a)
	if err != nil {
		return nil, err
	}

	if a.reports != nil {
		if date.IsZero() {
			return a.reports.LatestReport(ctx)
		}
		return a.reports.ReportByDate(ctx, date)
	}

	o, err := a.orchestrator()
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	result, err := o.Run(ctx, brain.RunConfig{
		Date:     date,
		Universe: a.universeRequest(),
		DryRun:   true,
	})
	if err != nil {
		return nil, err
	}
	return result.Report, nil
}
