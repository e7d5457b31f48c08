package s0_data

import (
	"context"

	"github.com/wonny/fingear/internal/contracts"
)

// GetFundamentalHistory returns quarterly financials (oldest first) with PE history
func (r *Repository) GetFundamentalHistory(ctx context.Context, symbol string) (*contracts.FundamentalRecord, error) {
	query := `
		SELECT period, report_date,
		       revenue, gross_profit, operating_income, net_income, eps,
		       equity, total_assets, total_liabilities, operating_cash_flow, capex
		FROM data.quarterly_financials
		WHERE stock_code = $1
		ORDER BY report_date ASC
	`

	rows, err := r.db.Query(ctx, query, symbol)
	if err != nil {
		return nil, wrapQueryErr("fundamentals", symbol, err)
	}
	defer rows.Close()

	rec := &contracts.FundamentalRecord{Symbol: symbol}
	for rows.Next() {
		var q contracts.FundamentalQuarter
		var revenue, gross, opIncome, netIncome, eps, equity, assets, liabilities, ocf, capex *float64
		if err := rows.Scan(
			&q.Period, &q.ReportDate,
			&revenue, &gross, &opIncome, &netIncome, &eps,
			&equity, &assets, &liabilities, &ocf, &capex,
		); err != nil {
			return nil, wrapQueryErr("fundamentals", symbol, err)
		}
		q.Revenue = nullFloat(revenue)
		q.GrossProfit = nullFloat(gross)
		q.OperatingIncome = nullFloat(opIncome)
		q.NetIncome = nullFloat(netIncome)
		q.EPS = nullFloat(eps)
		q.Equity = nullFloat(equity)
		q.TotalAssets = nullFloat(assets)
		q.TotalLiabilities = nullFloat(liabilities)
		q.OperatingCashFlow = nullFloat(ocf)
		q.CapitalExpenditure = nullFloat(capex)
		rec.Quarters = append(rec.Quarters, q)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("fundamentals", symbol, err)
	}
	if len(rec.Quarters) == 0 {
		return nil, notFound("fundamentals", symbol)
	}

	valuation, err := r.getValuationHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rec.Valuation = valuation
	return rec, nil
}

// getValuationHistory returns PE observations, oldest first. NULL PE rows are skipped.
func (r *Repository) getValuationHistory(ctx context.Context, symbol string) ([]contracts.ValuationPoint, error) {
	query := `
		SELECT trade_date, per
		FROM data.valuation_history
		WHERE stock_code = $1 AND per IS NOT NULL
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(ctx, query, symbol)
	if err != nil {
		return nil, wrapQueryErr("valuation", symbol, err)
	}
	defer rows.Close()

	var points []contracts.ValuationPoint
	for rows.Next() {
		var p contracts.ValuationPoint
		if err := rows.Scan(&p.Date, &p.PE); err != nil {
			return nil, wrapQueryErr("valuation", symbol, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
