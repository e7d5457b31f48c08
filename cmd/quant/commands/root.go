package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "FinGear - 3단계 종목 스크리너",
	Long: `FinGear Unified CLI

재무 7팩터 점수 → 수급 게이트 → 기술적 분류.
S1 Universe → S2 Fundamental Top-K → S3 Flow → S4 Technical

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant screen run
  go run ./cmd/quant screen explain 2330 --date 2025-06-30
  go run ./cmd/quant config check --strategy config/strategy/fingear_tw.yaml
  go run ./cmd/quant scheduler start
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "전략 YAML (기본: STRATEGY_CONFIG 또는 내장 기본값)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
