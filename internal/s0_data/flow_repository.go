package s0_data

import (
	"context"

	"github.com/wonny/fingear/internal/contracts"
)

// GetFlowHistory returns the latest trailingDays of institutional flow, oldest first
func (r *Repository) GetFlowHistory(ctx context.Context, symbol string, trailingDays int) (*contracts.FlowRecord, error) {
	query := `
		SELECT trade_date, foreign_net, trust_net, dealer_net
		FROM (
			SELECT trade_date, foreign_net, trust_net, dealer_net
			FROM data.investor_flow
			WHERE stock_code = $1
			ORDER BY trade_date DESC
			LIMIT $2
		) recent
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(ctx, query, symbol, trailingDays)
	if err != nil {
		return nil, wrapQueryErr("flow", symbol, err)
	}
	defer rows.Close()

	rec := &contracts.FlowRecord{Symbol: symbol}
	for rows.Next() {
		var d contracts.FlowDay
		if err := rows.Scan(&d.Date, &d.ForeignNet, &d.TrustNet, &d.DealerNet); err != nil {
			return nil, wrapQueryErr("flow", symbol, err)
		}
		rec.Days = append(rec.Days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("flow", symbol, err)
	}
	if len(rec.Days) == 0 {
		return nil, notFound("flow", symbol)
	}
	return rec, nil
}

// GetHolderConcentration compares the two most recent large-holder snapshots
func (r *Repository) GetHolderConcentration(ctx context.Context, symbol string) (*contracts.HolderConcentration, error) {
	query := `
		SELECT snapshot_date, major_pct
		FROM data.holder_concentration
		WHERE stock_code = $1
		ORDER BY snapshot_date DESC
		LIMIT 2
	`

	rows, err := r.db.Query(ctx, query, symbol)
	if err != nil {
		return nil, wrapQueryErr("holder", symbol, err)
	}
	defer rows.Close()

	h := &contracts.HolderConcentration{Symbol: symbol}
	n := 0
	for rows.Next() {
		if n == 0 {
			err = rows.Scan(&h.LatestDate, &h.Latest)
		} else {
			err = rows.Scan(&h.PriorDate, &h.Prior)
		}
		if err != nil {
			return nil, wrapQueryErr("holder", symbol, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("holder", symbol, err)
	}
	// 추세 판단에는 두 시점이 필요
	if n < 2 {
		return nil, notFound("holder", symbol)
	}
	return h, nil
}
