package s0_data

import (
	"context"
	"time"

	"github.com/wonny/fingear/internal/contracts"
)

// GetPriceHistory returns daily bars in [from, to], oldest first.
// Zero from/to means unbounded on that side.
func (r *Repository) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceRecord, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume,
		       ma_short, ma_mid, ma_long, macd_dif, macd_signal, stoch_k, stoch_d
		FROM data.daily_prices
		WHERE stock_code = $1
		  AND ($2::date IS NULL OR trade_date >= $2)
		  AND ($3::date IS NULL OR trade_date <= $3)
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(ctx, query, symbol, dateParam(from), dateParam(to))
	if err != nil {
		return nil, wrapQueryErr("prices", symbol, err)
	}
	defer rows.Close()

	rec := &contracts.PriceRecord{Symbol: symbol}
	for rows.Next() {
		var b contracts.PriceBar
		var maS, maM, maL, dif, sig, k, d *float64
		if err := rows.Scan(
			&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
			&maS, &maM, &maL, &dif, &sig, &k, &d,
		); err != nil {
			return nil, wrapQueryErr("prices", symbol, err)
		}
		b.MAShort = nullFloat(maS)
		b.MAMid = nullFloat(maM)
		b.MALong = nullFloat(maL)
		b.MACD = nullFloat(dif)
		b.MACDSignal = nullFloat(sig)
		b.K = nullFloat(k)
		b.D = nullFloat(d)
		rec.Bars = append(rec.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("prices", symbol, err)
	}
	if len(rec.Bars) == 0 {
		return nil, notFound("prices", symbol)
	}
	return rec, nil
}

func dateParam(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
