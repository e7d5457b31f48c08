package quality

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
)

func quarters(n int) []contracts.FundamentalQuarter {
	qs := make([]contracts.FundamentalQuarter, n)
	for i := range qs {
		qs[i] = contracts.FundamentalQuarter{
			Period:             fmt.Sprintf("2023Q%d", i+1),
			ReportDate:         time.Date(2023, time.Month(3*(i+1)), 28, 0, 0, 0, 0, time.UTC),
			Revenue:            1000,
			GrossProfit:        400,
			OperatingIncome:    200,
			NetIncome:          150,
			EPS:                1.5,
			Equity:             3000,
			TotalAssets:        5000,
			TotalLiabilities:   2000,
			OperatingCashFlow:  300,
			CapitalExpenditure: 100,
		}
	}
	return qs
}

func TestValidateFundamental(t *testing.T) {
	v := NewRecordValidator()

	tests := []struct {
		name   string
		mutate func(r *contracts.FundamentalRecord)
		field  string
	}{
		{"valid", func(r *contracts.FundamentalRecord) {}, ""},
		{"missing eps", func(r *contracts.FundamentalRecord) { r.Quarters[2].EPS = math.NaN() }, "quarters[2].eps"},
		{"missing capex", func(r *contracts.FundamentalRecord) { r.Quarters[0].CapitalExpenditure = math.NaN() }, "quarters[0].capex"},
		{"empty period", func(r *contracts.FundamentalRecord) { r.Quarters[1].Period = "" }, "quarters[1].period"},
		{"period not a fiscal quarter", func(r *contracts.FundamentalRecord) { r.Quarters[1].Period = "2023-06" }, "quarters[1].period"},
		{"duplicate period", func(r *contracts.FundamentalRecord) { r.Quarters[3].Period = r.Quarters[2].Period }, "quarters[3].period"},
		{"unsorted", func(r *contracts.FundamentalRecord) {
			r.Quarters[1].ReportDate, r.Quarters[2].ReportDate = r.Quarters[2].ReportDate, r.Quarters[1].ReportDate
		}, "quarters[2].report_date"},
		{"missing symbol", func(r *contracts.FundamentalRecord) { r.Symbol = "" }, "symbol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &contracts.FundamentalRecord{Symbol: "2330", Quarters: quarters(4)}
			tt.mutate(rec)

			err := v.ValidateFundamental(rec)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *contracts.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidatePrice(t *testing.T) {
	v := NewRecordValidator()
	d := func(day int) time.Time { return time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC) }

	good := &contracts.PriceRecord{Symbol: "2330", Bars: []contracts.PriceBar{
		{Date: d(1), Open: 1, High: 1, Low: 1, Close: 1, Volume: 10, MALong: math.NaN()},
		{Date: d(2), Open: 1, High: 1, Low: 1, Close: 1, Volume: 10},
	}}
	// 지표 NaN 은 허용
	assert.NoError(t, v.ValidatePrice(good))

	missing := &contracts.PriceRecord{Symbol: "2330", Bars: []contracts.PriceBar{
		{Date: d(1), Open: 1, High: 1, Low: 1, Close: math.NaN()},
	}}
	err := v.ValidatePrice(missing)
	var verr *contracts.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bars[0].close", verr.Field)

	dup := &contracts.PriceRecord{Symbol: "2330", Bars: []contracts.PriceBar{
		{Date: d(2), Open: 1, High: 1, Low: 1, Close: 1},
		{Date: d(2), Open: 1, High: 1, Low: 1, Close: 1},
	}}
	assert.True(t, contracts.IsValidation(v.ValidatePrice(dup)))
}

func TestCalculateScore(t *testing.T) {
	tests := []struct {
		name     string
		coverage map[string]float64
		wantMin  float64
		wantMax  float64
	}{
		{
			name: "perfect coverage",
			coverage: map[string]float64{
				"price": 1.0, "indicators": 1.0, "fundamentals": 1.0, "flow": 1.0, "holder": 1.0,
			},
			wantMin: 0.99,
			wantMax: 1.01,
		},
		{
			name: "poor coverage",
			coverage: map[string]float64{
				"price": 0.6, "indicators": 0.5, "fundamentals": 0.4, "flow": 0.5, "holder": 0.3,
			},
			wantMin: 0.45,
			wantMax: 0.50,
		},
		{
			name:     "empty",
			coverage: map[string]float64{},
			wantMin:  0,
			wantMax:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calculateScore(tt.coverage)
			assert.GreaterOrEqual(t, score, tt.wantMin)
			assert.LessOrEqual(t, score, tt.wantMax)
		})
	}
}

func TestCoverageGate_Check(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || testing.Short() {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	defer db.Close()

	gate := NewCoverageGate(db)
	snapshot, err := gate.Check(context.Background(), time.Now(), []string{"2330", "2317"})
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.TotalStocks)
	assert.Contains(t, snapshot.Coverage, "price")
	assert.GreaterOrEqual(t, snapshot.QualityScore, 0.0)
	assert.LessOrEqual(t, snapshot.QualityScore, 1.0)
}
