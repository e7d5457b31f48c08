package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/fingear/internal/strategyconfig"
	"github.com/wonny/fingear/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 관리",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "전략 설정 검증",
	Long: `환경변수와 전략 YAML 을 읽어 검증하고 권고 경고와 config hash 를 출력합니다.

Example:
  go run ./cmd/quant config check
  go run ./cmd/quant config check --strategy config/strategy/fingear_tw.yaml`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FinGear Config Check ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		PrintError(err.Error())
		return err
	}
	PrintSuccess(fmt.Sprintf("Environment loaded (ENV: %s, DATA_SOURCE: %s)", cfg.Env, cfg.DataSource))

	strategy, raw, err := loadStrategy(cfg)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	snap, err := strategyconfig.NewDecisionSnapshot(strategy, raw)
	if err != nil {
		return fmt.Errorf("hash strategy: %w", err)
	}
	source := "built-in defaults"
	if len(snap.ConfigYAML) > 0 {
		source = fmt.Sprintf("YAML (%d bytes)", len(snap.ConfigYAML))
	}

	PrintSuccess("Strategy valid")
	fmt.Println()
	PrintKeyValue("strategy", fmt.Sprintf("%s v%s", snap.StrategyID, strategy.Meta.Version), 18)
	PrintKeyValue("source", source, 18)
	PrintKeyValue("timezone", strategy.Meta.Timezone, 18)
	PrintKeyValue("top_k", fmt.Sprintf("%d", strategy.Fundamental.TopK), 18)
	PrintKeyValue("min_pe_tier", fmt.Sprintf("%d", strategy.Fundamental.MinPETier), 18)
	PrintKeyValue("flow window", fmt.Sprintf("%d days", strategy.Flow.WindowDays), 18)
	PrintKeyValue("flow threshold", fmt.Sprintf("%.1f", strategy.Flow.StrengthThreshold), 18)
	PrintKeyValue("workers", fmt.Sprintf("%d", strategy.Pipeline.Workers), 18)
	PrintKeyValue("schedule", cfg.Screening.Schedule, 18)
	PrintKeyValue("config hash", snap.ConfigHash, 18)

	warnings := strategyconfig.Warn(strategy)
	if len(warnings) > 0 {
		fmt.Println()
		for _, w := range warnings {
			PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
		}
	}
	return nil
}
