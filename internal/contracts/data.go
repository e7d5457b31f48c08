package contracts

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// FundamentalQuarter is one quarterly financial observation.
// Missing columns are NaN; S0 quality validation rejects them.
type FundamentalQuarter struct {
	Period             string    `json:"period" validate:"required,fiscalquarter"` // e.g. 2024Q3
	ReportDate         time.Time `json:"report_date" validate:"required"`
	Revenue            float64   `json:"revenue" validate:"notnan"`
	GrossProfit        float64   `json:"gross_profit" validate:"notnan"`
	OperatingIncome    float64   `json:"operating_income" validate:"notnan"`
	NetIncome          float64   `json:"net_income" validate:"notnan"`
	EPS                float64   `json:"eps" validate:"notnan"`
	Equity             float64   `json:"equity" validate:"notnan"`
	TotalAssets        float64   `json:"total_assets" validate:"notnan"`
	TotalLiabilities   float64   `json:"total_liabilities" validate:"notnan"`
	OperatingCashFlow  float64   `json:"operating_cash_flow" validate:"notnan"`
	CapitalExpenditure float64   `json:"capex" validate:"notnan"` // 유출 금액, 부호 무관
}

// ValuationPoint is one observation of the price/earnings ratio
type ValuationPoint struct {
	Date time.Time `json:"date"`
	PE   float64   `json:"pe"`
}

// FundamentalRecord is the quarterly history of one instrument, oldest first
// ⭐ SSOT: S2 펀더멘털 점수 입력
type FundamentalRecord struct {
	Symbol    string               `json:"symbol" validate:"required"`
	Quarters  []FundamentalQuarter `json:"quarters" validate:"dive"`
	Valuation []ValuationPoint     `json:"valuation"`
}

// Latest returns the most recent quarter
func (r *FundamentalRecord) Latest() (FundamentalQuarter, bool) {
	if len(r.Quarters) == 0 {
		return FundamentalQuarter{}, false
	}
	return r.Quarters[len(r.Quarters)-1], true
}

// Trailing returns the last n quarters (fewer if history is shorter)
func (r *FundamentalRecord) Trailing(n int) []FundamentalQuarter {
	if n >= len(r.Quarters) {
		return r.Quarters
	}
	return r.Quarters[len(r.Quarters)-n:]
}

var fiscalQuarterPattern = regexp.MustCompile(`^(\d{4})-?[Qq]([1-4])$`)

// QuarterIndex maps a fiscal period (2024Q3, 2024-Q3) to year*4 + quarter-1
func QuarterIndex(period string) (int, bool) {
	m := fiscalQuarterPattern.FindStringSubmatch(period)
	if m == nil {
		return 0, false
	}
	year, _ := strconv.Atoi(m[1])
	quarter, _ := strconv.Atoi(m[2])
	return year*4 + quarter - 1, true
}

// ContiguousTail counts the trailing quarters with no missing fiscal period between them
func (r *FundamentalRecord) ContiguousTail() int {
	n := len(r.Quarters)
	if n == 0 {
		return 0
	}
	prev, ok := QuarterIndex(r.Quarters[n-1].Period)
	if !ok {
		return 0
	}
	run := 1
	for i := n - 2; i >= 0; i-- {
		idx, ok := QuarterIndex(r.Quarters[i].Period)
		if !ok || idx != prev-1 {
			break
		}
		prev = idx
		run++
	}
	return run
}

// PriceBar is one daily OHLCV bar with precomputed indicator columns.
// Indicator values are NaN until enough leading bars exist.
type PriceBar struct {
	Date       time.Time `json:"date"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	MAShort    float64   `json:"ma_short"`
	MAMid      float64   `json:"ma_mid"`
	MALong     float64   `json:"ma_long"`
	MACD       float64   `json:"macd"`        // DIF
	MACDSignal float64   `json:"macd_signal"` // DEA
	K          float64   `json:"k"`
	D          float64   `json:"d"`
}

// PriceRecord is the daily bar history of one instrument, oldest first
type PriceRecord struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Last returns the most recent bar
func (r *PriceRecord) Last() (PriceBar, bool) {
	if len(r.Bars) == 0 {
		return PriceBar{}, false
	}
	return r.Bars[len(r.Bars)-1], true
}

// Closes returns close prices, oldest first
func (r *PriceRecord) Closes() []float64 {
	closes := make([]float64, len(r.Bars))
	for i, b := range r.Bars {
		closes[i] = b.Close
	}
	return closes
}

// FlowDay is one day of institutional net participation (수급)
type FlowDay struct {
	Date       time.Time `json:"date"`
	ForeignNet int64     `json:"foreign_net"` // 외국인
	TrustNet   int64     `json:"trust_net"`   // 투신
	DealerNet  int64     `json:"dealer_net"`  // 자영
}

// TotalNet returns foreign + trust + dealer
func (d FlowDay) TotalNet() int64 {
	return d.ForeignNet + d.TrustNet + d.DealerNet
}

// FlowRecord holds the trailing institutional flow window of one instrument
type FlowRecord struct {
	Symbol string    `json:"symbol"`
	Days   []FlowDay `json:"days"`
}

// SortedDays returns a date-ascending copy of Days
func (r *FlowRecord) SortedDays() []FlowDay {
	days := make([]FlowDay, len(r.Days))
	copy(days, r.Days)
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// HolderConcentration compares the two latest large-holder snapshots (대주주 비율)
type HolderConcentration struct {
	Symbol     string    `json:"symbol"`
	Latest     float64   `json:"latest"`
	Prior      float64   `json:"prior"`
	LatestDate time.Time `json:"latest_date"`
	PriorDate  time.Time `json:"prior_date"`
}

// Change returns latest minus prior in percentage points
func (h *HolderConcentration) Change() float64 {
	return h.Latest - h.Prior
}

// IsMissing reports whether a value read from storage is absent
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
