package s0_data

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/wonny/fingear/internal/contracts"
)

// 스냅샷 파일 포맷 (JSON)
// 숫자 컬럼의 null 은 결측(NaN)으로 읽는다
type snapshotFile struct {
	Date         wireDate                   `json:"date"`
	Fundamentals map[string]wireFundamental `json:"fundamentals"`
	Prices       map[string][]wirePriceBar  `json:"prices"`
	Flows        map[string][]wireFlowDay   `json:"flows"`
	Holders      map[string]wireHolder      `json:"holders"`
	MarketCaps   map[string]int64           `json:"market_caps"`
}

type wireDate struct{ time.Time }

func (d *wireDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type wireQuarter struct {
	Period             string   `json:"period"`
	ReportDate         wireDate `json:"report_date"`
	Revenue            *float64 `json:"revenue"`
	GrossProfit        *float64 `json:"gross_profit"`
	OperatingIncome    *float64 `json:"operating_income"`
	NetIncome          *float64 `json:"net_income"`
	EPS                *float64 `json:"eps"`
	Equity             *float64 `json:"equity"`
	TotalAssets        *float64 `json:"total_assets"`
	TotalLiabilities   *float64 `json:"total_liabilities"`
	OperatingCashFlow  *float64 `json:"operating_cash_flow"`
	CapitalExpenditure *float64 `json:"capex"`
}

type wireValuation struct {
	Date wireDate `json:"date"`
	PE   *float64 `json:"pe"`
}

type wireFundamental struct {
	Quarters  []wireQuarter   `json:"quarters"`
	Valuation []wireValuation `json:"valuation"`
}

type wirePriceBar struct {
	Date       wireDate `json:"date"`
	Open       *float64 `json:"open"`
	High       *float64 `json:"high"`
	Low        *float64 `json:"low"`
	Close      *float64 `json:"close"`
	Volume     int64    `json:"volume"`
	MAShort    *float64 `json:"ma_short"`
	MAMid      *float64 `json:"ma_mid"`
	MALong     *float64 `json:"ma_long"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	K          *float64 `json:"k"`
	D          *float64 `json:"d"`
}

type wireFlowDay struct {
	Date       wireDate `json:"date"`
	ForeignNet int64    `json:"foreign_net"`
	TrustNet   int64    `json:"trust_net"`
	DealerNet  int64    `json:"dealer_net"`
}

type wireHolder struct {
	Latest     *float64 `json:"latest"`
	Prior      *float64 `json:"prior"`
	LatestDate wireDate `json:"latest_date"`
	PriorDate  wireDate `json:"prior_date"`
}

// LoadSnapshot reads a JSON snapshot file into a MemoryStore
func LoadSnapshot(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes snapshot bytes into a MemoryStore
func ParseSnapshot(data []byte) (*MemoryStore, error) {
	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	store := NewMemoryStore()
	store.SetDate(f.Date.Time)

	for symbol, wf := range f.Fundamentals {
		rec := &contracts.FundamentalRecord{Symbol: symbol}
		for _, q := range wf.Quarters {
			rec.Quarters = append(rec.Quarters, contracts.FundamentalQuarter{
				Period:             q.Period,
				ReportDate:         q.ReportDate.Time,
				Revenue:            nullFloat(q.Revenue),
				GrossProfit:        nullFloat(q.GrossProfit),
				OperatingIncome:    nullFloat(q.OperatingIncome),
				NetIncome:          nullFloat(q.NetIncome),
				EPS:                nullFloat(q.EPS),
				Equity:             nullFloat(q.Equity),
				TotalAssets:        nullFloat(q.TotalAssets),
				TotalLiabilities:   nullFloat(q.TotalLiabilities),
				OperatingCashFlow:  nullFloat(q.OperatingCashFlow),
				CapitalExpenditure: nullFloat(q.CapitalExpenditure),
			})
		}
		for _, v := range wf.Valuation {
			if v.PE == nil {
				continue
			}
			rec.Valuation = append(rec.Valuation, contracts.ValuationPoint{Date: v.Date.Time, PE: *v.PE})
		}
		store.PutFundamental(rec)
	}

	for symbol, bars := range f.Prices {
		rec := &contracts.PriceRecord{Symbol: symbol, Bars: make([]contracts.PriceBar, 0, len(bars))}
		for _, b := range bars {
			rec.Bars = append(rec.Bars, contracts.PriceBar{
				Date:       b.Date.Time,
				Open:       nullFloat(b.Open),
				High:       nullFloat(b.High),
				Low:        nullFloat(b.Low),
				Close:      nullFloat(b.Close),
				Volume:     b.Volume,
				MAShort:    nullFloat(b.MAShort),
				MAMid:      nullFloat(b.MAMid),
				MALong:     nullFloat(b.MALong),
				MACD:       nullFloat(b.MACD),
				MACDSignal: nullFloat(b.MACDSignal),
				K:          nullFloat(b.K),
				D:          nullFloat(b.D),
			})
		}
		store.PutPrice(rec)
	}

	for symbol, days := range f.Flows {
		rec := &contracts.FlowRecord{Symbol: symbol, Days: make([]contracts.FlowDay, 0, len(days))}
		for _, d := range days {
			rec.Days = append(rec.Days, contracts.FlowDay{
				Date:       d.Date.Time,
				ForeignNet: d.ForeignNet,
				TrustNet:   d.TrustNet,
				DealerNet:  d.DealerNet,
			})
		}
		store.PutFlow(rec)
	}

	for symbol, h := range f.Holders {
		store.PutHolder(&contracts.HolderConcentration{
			Symbol:     symbol,
			Latest:     nullFloat(h.Latest),
			Prior:      nullFloat(h.Prior),
			LatestDate: h.LatestDate.Time,
			PriorDate:  h.PriorDate.Time,
		})
	}

	for symbol, mc := range f.MarketCaps {
		store.PutMarketCap(symbol, mc)
	}

	return store, nil
}
