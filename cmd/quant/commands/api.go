package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fingear/internal/api"
	"github.com/wonny/fingear/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다. (postgres 모드 필요)

Endpoints:
  GET  /health                                - Health check
  GET  /api/screening/latest                  - 최근 스크리닝 결과
  GET  /api/screening/{date}                  - 날짜별 결과
  GET  /api/screening/{date}/stocks/{symbol}  - 종목 판정 설명
  POST /api/screening/run                     - 수동 실행 (RUN_RATE_LIMIT 간격 제한)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FinGear API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.reports == nil {
		return fmt.Errorf("api requires DATA_SOURCE=postgres")
	}
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	o, err := a.orchestrator()
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	screening := handlers.NewScreeningHandler(a.reports, a.latest, o, a.universeRequest(), a.cfg.Screening.RunRateLimit, a.log)
	router := api.NewRouter(screening, a.log)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
