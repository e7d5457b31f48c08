package s2_signals

import (
	"fmt"
	"time"

	"github.com/wonny/fingear/internal/contracts"
)

var (
	firstReport = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	evalDate    = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
)

// strongQuarters builds n quarters where every factor lands in tier 5
func strongQuarters(n int) []contracts.FundamentalQuarter {
	qs := make([]contracts.FundamentalQuarter, n)
	for i := 0; i < n; i++ {
		revenue := 1000 + 125*float64(i)
		margin := 0.30 + 0.0125*float64(i)
		qs[i] = contracts.FundamentalQuarter{
			Period:             fmt.Sprintf("%dQ%d", 2024+i/4, i%4+1),
			ReportDate:         firstReport.AddDate(0, 3*i, 0),
			Revenue:            revenue,
			GrossProfit:        revenue * margin,
			OperatingIncome:    100,
			NetIncome:          30,
			EPS:                1 + 0.25*float64(i),
			Equity:             500,
			TotalAssets:        1000,
			TotalLiabilities:   200,
			OperatingCashFlow:  8_000_000_000,
			CapitalExpenditure: -1_000_000_000,
		}
	}
	return qs
}

func strongRecord(symbol string) *contracts.FundamentalRecord {
	return &contracts.FundamentalRecord{
		Symbol:   symbol,
		Quarters: strongQuarters(5),
		Valuation: []contracts.ValuationPoint{
			{Date: firstReport, PE: 20},
			{Date: firstReport.AddDate(0, 3, 0), PE: 20},
			{Date: firstReport.AddDate(0, 6, 0), PE: 20},
			{Date: firstReport.AddDate(0, 12, 0), PE: 10},
		},
	}
}

func flowDays(start time.Time, nets ...[3]int64) []contracts.FlowDay {
	days := make([]contracts.FlowDay, len(nets))
	for i, n := range nets {
		days[i] = contracts.FlowDay{
			Date:       start.AddDate(0, 0, i),
			ForeignNet: n[0],
			TrustNet:   n[1],
			DealerNet:  n[2],
		}
	}
	return days
}

// entryBars builds 21 bars whose last bar scores exactly 65:
// MA 100, momentum 100, RSI 0, stochastic golden 100, volume 0, band 50.
func entryBars() []contracts.PriceBar {
	closes := []float64{79, 79, 79, 79, 79, 79}
	for c := 114.0; c >= 100; c-- {
		closes = append(closes, c)
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.PriceBar{
			Date:       start.AddDate(0, 0, i),
			Open:       c,
			High:       c,
			Low:        c,
			Close:      c,
			Volume:     1000,
			MAShort:    c,
			MAMid:      c,
			MALong:     c,
			MACD:       0,
			MACDSignal: 0,
			K:          50,
			D:          50,
		}
	}

	prev := &bars[len(bars)-2]
	prev.MACD, prev.MACDSignal = 1, 0.8
	prev.K, prev.D = 20, 25

	last := &bars[len(bars)-1]
	last.MAShort, last.MAMid, last.MALong = 99, 98, 97
	last.MACD, last.MACDSignal = 2, 1
	last.K, last.D = 30, 25
	return bars
}
