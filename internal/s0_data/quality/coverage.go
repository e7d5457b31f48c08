package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CoverageGate measures how much of the universe has data for a date
type CoverageGate struct {
	db *pgxpool.Pool
}

// CoverageSnapshot is the per-dataset coverage of one date
type CoverageSnapshot struct {
	Date         time.Time          `json:"date"`
	TotalStocks  int                `json:"total_stocks"`
	Coverage     map[string]float64 `json:"coverage"` // 0~1
	QualityScore float64            `json:"quality_score"`
}

// NewCoverageGate creates a new CoverageGate instance
func NewCoverageGate(db *pgxpool.Pool) *CoverageGate {
	return &CoverageGate{db: db}
}

// coverageQueries: $1 = symbols, $2 = date
var coverageQueries = map[string]string{
	"price": `
		SELECT COUNT(DISTINCT stock_code) FROM data.daily_prices
		WHERE stock_code = ANY($1) AND trade_date = $2`,
	"indicators": `
		SELECT COUNT(DISTINCT stock_code) FROM data.daily_prices
		WHERE stock_code = ANY($1) AND trade_date = $2
		  AND ma_long IS NOT NULL AND macd_signal IS NOT NULL AND stoch_d IS NOT NULL`,
	"fundamentals": `
		SELECT COUNT(DISTINCT stock_code) FROM data.quarterly_financials
		WHERE stock_code = ANY($1) AND report_date >= ($2::date - INTERVAL '180 days')`,
	"flow": `
		SELECT COUNT(DISTINCT stock_code) FROM data.investor_flow
		WHERE stock_code = ANY($1) AND trade_date = $2`,
	"holder": `
		SELECT COUNT(DISTINCT stock_code) FROM data.holder_concentration
		WHERE stock_code = ANY($1) AND snapshot_date <= $2`,
}

// Check calculates coverage of each dataset over the given symbols
// ⭐ SSOT: S0 데이터 커버리지 점검
func (g *CoverageGate) Check(ctx context.Context, date time.Time, symbols []string) (*CoverageSnapshot, error) {
	snapshot := &CoverageSnapshot{
		Date:        date,
		TotalStocks: len(symbols),
		Coverage:    make(map[string]float64, len(coverageQueries)),
	}
	if len(symbols) == 0 {
		return snapshot, nil
	}

	for name, query := range coverageQueries {
		var count int
		if err := g.db.QueryRow(ctx, query, symbols, date).Scan(&count); err != nil {
			return nil, fmt.Errorf("query %s coverage: %w", name, err)
		}
		snapshot.Coverage[name] = float64(count) / float64(len(symbols))
	}

	snapshot.QualityScore = calculateScore(snapshot.Coverage)
	return snapshot, nil
}

// calculateScore calculates overall quality score using weighted average
func calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"price":        0.25, // 가격 데이터 필수
		"indicators":   0.20, // 지표 컬럼
		"fundamentals": 0.25, // 재무제표
		"flow":         0.20, // 수급
		"holder":       0.10, // 대주주
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
