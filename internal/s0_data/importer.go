package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/fingear/internal/contracts"
)

// ImportStats counts rows written per table
type ImportStats struct {
	Quarters   int `json:"quarters"`
	Valuations int `json:"valuations"`
	Bars       int `json:"bars"`
	FlowDays   int `json:"flow_days"`
	Holders    int `json:"holders"`
	MarketCaps int `json:"market_caps"`
}

// Import upserts every record of a snapshot store into PostgreSQL
// 스냅샷 → DB 적재 (data import 커맨드)
func (r *Repository) Import(ctx context.Context, store *MemoryStore) (ImportStats, error) {
	var stats ImportStats
	batch := &pgx.Batch{}

	store.mu.RLock()
	for symbol, rec := range store.fundamentals {
		for _, q := range rec.Quarters {
			batch.Queue(`
				INSERT INTO data.quarterly_financials
					(stock_code, period, report_date, revenue, gross_profit, operating_income, net_income,
					 eps, equity, total_assets, total_liabilities, operating_cash_flow, capex)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (stock_code, period) DO UPDATE SET
					report_date = EXCLUDED.report_date,
					revenue = EXCLUDED.revenue,
					gross_profit = EXCLUDED.gross_profit,
					operating_income = EXCLUDED.operating_income,
					net_income = EXCLUDED.net_income,
					eps = EXCLUDED.eps,
					equity = EXCLUDED.equity,
					total_assets = EXCLUDED.total_assets,
					total_liabilities = EXCLUDED.total_liabilities,
					operating_cash_flow = EXCLUDED.operating_cash_flow,
					capex = EXCLUDED.capex`,
				symbol, q.Period, q.ReportDate,
				floatParam(q.Revenue), floatParam(q.GrossProfit), floatParam(q.OperatingIncome),
				floatParam(q.NetIncome), floatParam(q.EPS), floatParam(q.Equity),
				floatParam(q.TotalAssets), floatParam(q.TotalLiabilities),
				floatParam(q.OperatingCashFlow), floatParam(q.CapitalExpenditure))
			stats.Quarters++
		}
		for _, v := range rec.Valuation {
			batch.Queue(`
				INSERT INTO data.valuation_history (stock_code, trade_date, per)
				VALUES ($1, $2, $3)
				ON CONFLICT (stock_code, trade_date) DO UPDATE SET per = EXCLUDED.per`,
				symbol, v.Date, floatParam(v.PE))
			stats.Valuations++
		}
	}

	for symbol, rec := range store.prices {
		for _, b := range rec.Bars {
			batch.Queue(`
				INSERT INTO data.daily_prices
					(stock_code, trade_date, open_price, high_price, low_price, close_price, volume,
					 ma_short, ma_mid, ma_long, macd_dif, macd_signal, stoch_k, stoch_d)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
				ON CONFLICT (stock_code, trade_date) DO UPDATE SET
					open_price = EXCLUDED.open_price,
					high_price = EXCLUDED.high_price,
					low_price = EXCLUDED.low_price,
					close_price = EXCLUDED.close_price,
					volume = EXCLUDED.volume,
					ma_short = EXCLUDED.ma_short,
					ma_mid = EXCLUDED.ma_mid,
					ma_long = EXCLUDED.ma_long,
					macd_dif = EXCLUDED.macd_dif,
					macd_signal = EXCLUDED.macd_signal,
					stoch_k = EXCLUDED.stoch_k,
					stoch_d = EXCLUDED.stoch_d`,
				symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
				floatParam(b.MAShort), floatParam(b.MAMid), floatParam(b.MALong),
				floatParam(b.MACD), floatParam(b.MACDSignal), floatParam(b.K), floatParam(b.D))
			stats.Bars++
		}
	}

	for symbol, rec := range store.flows {
		for _, d := range rec.Days {
			batch.Queue(`
				INSERT INTO data.investor_flow (stock_code, trade_date, foreign_net, trust_net, dealer_net)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (stock_code, trade_date) DO UPDATE SET
					foreign_net = EXCLUDED.foreign_net,
					trust_net = EXCLUDED.trust_net,
					dealer_net = EXCLUDED.dealer_net`,
				symbol, d.Date, d.ForeignNet, d.TrustNet, d.DealerNet)
			stats.FlowDays++
		}
	}

	holderQuery := `
		INSERT INTO data.holder_concentration (stock_code, snapshot_date, major_pct)
		VALUES ($1, $2, $3)
		ON CONFLICT (stock_code, snapshot_date) DO UPDATE SET major_pct = EXCLUDED.major_pct`
	for symbol, h := range store.holders {
		// 빈 시점은 적재하지 않음 (major_pct NOT NULL)
		if !contracts.IsMissing(h.Prior) && !h.PriorDate.IsZero() {
			batch.Queue(holderQuery, symbol, h.PriorDate, h.Prior)
		}
		if !contracts.IsMissing(h.Latest) && !h.LatestDate.IsZero() {
			batch.Queue(holderQuery, symbol, h.LatestDate, h.Latest)
		}
		stats.Holders++
	}

	if !store.date.IsZero() {
		for symbol, mc := range store.marketCaps {
			batch.Queue(`
				INSERT INTO data.market_cap (stock_code, trade_date, market_cap)
				VALUES ($1, $2, $3)
				ON CONFLICT (stock_code, trade_date) DO UPDATE SET market_cap = EXCLUDED.market_cap`,
				symbol, store.date, mc)
			stats.MarketCaps++
		}
	}
	store.mu.RUnlock()

	if batch.Len() == 0 {
		return stats, nil
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return stats, fmt.Errorf("import row %d: %w", i, err)
		}
	}

	return stats, nil
}
