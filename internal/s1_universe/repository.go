package s1_universe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fingear/internal/s0_data"
)

// Repository ranks instruments by their latest market cap on or before a date
type Repository struct {
	db *pgxpool.Pool
}

var _ MarketCapRanker = (*Repository)(nil)

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TopByMarketCap implements MarketCapRanker
func (r *Repository) TopByMarketCap(ctx context.Context, date time.Time, n int) ([]string, error) {
	query := `
		SELECT stock_code
		FROM (
			SELECT DISTINCT ON (stock_code) stock_code, market_cap
			FROM data.market_cap
			WHERE trade_date <= $1
			ORDER BY stock_code, trade_date DESC
		) latest
		ORDER BY market_cap DESC, stock_code ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, date, n)
	if err != nil {
		return nil, fmt.Errorf("query market cap: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0, n)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan market cap: %w", err)
		}
		symbols = append(symbols, code)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate market cap: %w", rows.Err())
	}
	return symbols, nil
}

// MemoryRanker ranks from an offline snapshot
type MemoryRanker struct {
	Store *s0_data.MemoryStore
}

var _ MarketCapRanker = MemoryRanker{}

// TopByMarketCap implements MarketCapRanker (스냅샷은 단일 날짜)
func (m MemoryRanker) TopByMarketCap(_ context.Context, _ time.Time, n int) ([]string, error) {
	return m.Store.TopByMarketCap(n), nil
}
