package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fingear/internal/s0_data"
	"github.com/wonny/fingear/internal/s0_data/quality"
	"github.com/wonny/fingear/internal/s1_universe"
	"github.com/wonny/fingear/pkg/config"
	"github.com/wonny/fingear/pkg/database"
	"github.com/wonny/fingear/pkg/logger"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "입력 데이터 관리",
	Long: `스냅샷 적재와 데이터 커버리지 점검.

Subcommands:
  import  - JSON 스냅샷을 PostgreSQL 에 적재
  check   - DB 연결과 universe 데이터 커버리지 점검

Example:
  go run ./cmd/quant data import testdata/snapshot.json
  go run ./cmd/quant data check --date 2025-06-30`,
}

var (
	dataImportCmd = &cobra.Command{
		Use:   "import [snapshot.json]",
		Short: "스냅샷 적재",
		Args:  cobra.ExactArgs(1),
		RunE:  runDataImport,
	}

	dataCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "데이터 커버리지 점검",
		RunE:  runDataCheck,
	}

	dataDate string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd)
	dataCmd.AddCommand(dataCheckCmd)

	dataCheckCmd.Flags().StringVar(&dataDate, "date", "", "점검 날짜 (YYYY-MM-DD, 기본: 오늘)")
}

// connectDB opens PostgreSQL regardless of DATA_SOURCE
func connectDB(ctx context.Context) (*config.Config, *logger.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return cfg, log, db, nil
}

func runDataImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== FinGear Snapshot Import ===")

	store, err := s0_data.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Snapshot loaded: %d symbols (date %s)", len(store.Symbols()), store.Date().Format("2006-01-02")))

	_, log, db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	stats, err := s0_data.NewRepository(db.Pool).Import(ctx, store)
	if err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"path":        args[0],
		"quarters":    stats.Quarters,
		"bars":        stats.Bars,
		"flow_days":   stats.FlowDays,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Snapshot imported")

	fmt.Println()
	PrintKeyValue("quarters", fmt.Sprintf("%d", stats.Quarters), 12)
	PrintKeyValue("valuations", fmt.Sprintf("%d", stats.Valuations), 12)
	PrintKeyValue("bars", fmt.Sprintf("%d", stats.Bars), 12)
	PrintKeyValue("flow days", fmt.Sprintf("%d", stats.FlowDays), 12)
	PrintKeyValue("holders", fmt.Sprintf("%d", stats.Holders), 12)
	PrintKeyValue("market caps", fmt.Sprintf("%d", stats.MarketCaps), 12)
	fmt.Println()
	PrintSuccess(fmt.Sprintf("Import complete in %.2fs", time.Since(start).Seconds()))
	return nil
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== FinGear Data Check ===")
	fmt.Println()

	cfg, log, db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	health, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Database healthy (%v, %d/%d conns)", health.ResponseTime, health.Stats.AcquiredConns, health.Stats.MaxConns))

	strategy, _, err := loadStrategy(cfg)
	if err != nil {
		return err
	}
	date := time.Now().In(strategy.Meta.Location())
	if dataDate != "" {
		date, err = time.Parse("2006-01-02", dataDate)
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
	}

	builder := s1_universe.NewBuilder(s1_universe.NewRepository(db.Pool), log)
	universe, err := builder.Build(ctx, date, s1_universe.Request{
		File: cfg.Screening.UniversePath,
		TopN: cfg.Screening.UniverseSize,
	})
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	snapshot, err := quality.NewCoverageGate(db.Pool).Check(ctx, date, universe.Stocks)
	if err != nil {
		return fmt.Errorf("coverage check: %w", err)
	}

	fmt.Println()
	fmt.Printf("📊 Coverage %s (%d symbols, source=%s)\n", date.Format("2006-01-02"), snapshot.TotalStocks, universe.Source)
	PrintSeparator()

	names := make([]string, 0, len(snapshot.Coverage))
	for name := range snapshot.Coverage {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		PrintKeyValue(name, fmt.Sprintf("%5.1f%%", snapshot.Coverage[name]*100), 14)
	}
	PrintSeparator()
	PrintKeyValue("quality score", fmt.Sprintf("%.3f", snapshot.QualityScore), 14)

	if snapshot.QualityScore < 0.8 {
		fmt.Println()
		PrintWarning("coverage below 80%: 다수 종목이 data_not_found / insufficient 로 제외될 수 있음")
	}
	return nil
}
