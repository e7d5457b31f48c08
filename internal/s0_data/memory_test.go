package s0_data

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
)

const sampleSnapshot = `{
  "date": "2024-06-28",
  "fundamentals": {
    "2330": {
      "quarters": [
        {"period": "2024Q1", "report_date": "2024-05-15", "revenue": 100, "gross_profit": 50, "operating_income": 40,
         "net_income": 30, "eps": null, "equity": 200, "total_assets": 400, "total_liabilities": 200,
         "operating_cash_flow": 60, "capex": 20}
      ],
      "valuation": [
        {"date": "2024-03-29", "pe": 18.5},
        {"date": "2024-04-30", "pe": null},
        {"date": "2024-05-31", "pe": 20.1}
      ]
    }
  },
  "prices": {
    "2330": [
      {"date": "2024-06-26", "open": 1, "high": 1, "low": 1, "close": 1, "volume": 10, "ma_long": null},
      {"date": "2024-06-27", "open": 2, "high": 2, "low": 2, "close": 2, "volume": 20, "ma_long": 1.5},
      {"date": "2024-06-28", "open": 3, "high": 3, "low": 3, "close": 3, "volume": 30, "ma_long": 2.0}
    ]
  },
  "flows": {
    "2330": [
      {"date": "2024-06-28", "foreign_net": 3, "trust_net": 0, "dealer_net": 0},
      {"date": "2024-06-26", "foreign_net": 1, "trust_net": 0, "dealer_net": 0},
      {"date": "2024-06-27", "foreign_net": 2, "trust_net": 0, "dealer_net": 0}
    ]
  },
  "holders": {
    "2330": {"latest": 55.2, "prior": 54.9, "latest_date": "2024-06-21", "prior_date": "2024-06-14"}
  },
  "market_caps": {"2330": 900, "2317": 500, "2454": 500}
}`

func TestParseSnapshot(t *testing.T) {
	store, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), store.Date())

	fund, err := store.GetFundamentalHistory(ctx, "2330")
	require.NoError(t, err)
	require.Len(t, fund.Quarters, 1)
	// null → NaN
	assert.True(t, math.IsNaN(fund.Quarters[0].EPS))
	assert.Equal(t, 30.0, fund.Quarters[0].NetIncome)
	// null PE 는 건너뜀
	assert.Len(t, fund.Valuation, 2)

	prices, err := store.GetPriceHistory(ctx, "2330", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, prices.Bars, 3)
	assert.True(t, math.IsNaN(prices.Bars[0].MALong))
	assert.True(t, math.IsNaN(prices.Bars[2].K))
	assert.Equal(t, 2.0, prices.Bars[2].MALong)

	holder, err := store.GetHolderConcentration(ctx, "2330")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, holder.Change(), 1e-9)
}

func TestParseSnapshot_HolderNullIsMissing(t *testing.T) {
	store, err := ParseSnapshot([]byte(`{
  "date": "2024-06-28",
  "holders": {
    "X": {"latest": 42.0, "prior": null, "latest_date": "2024-06-21"},
    "Y": {"prior": 10.5}
  }
}`))
	require.NoError(t, err)
	ctx := context.Background()

	x, err := store.GetHolderConcentration(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 42.0, x.Latest)
	assert.True(t, contracts.IsMissing(x.Prior), "null prior must not decode as 0")

	y, err := store.GetHolderConcentration(ctx, "Y")
	require.NoError(t, err)
	assert.True(t, contracts.IsMissing(y.Latest))
	assert.Equal(t, 10.5, y.Prior)
}

func TestParseSnapshot_Invalid(t *testing.T) {
	_, err := ParseSnapshot([]byte(`{"date": "28/06/2024"}`))
	require.Error(t, err)

	_, err = ParseSnapshot([]byte(`not json`))
	require.Error(t, err)
}

func TestLoadSnapshot_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleSnapshot), 0o644))

	store, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2330"}, store.Symbols())

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestMemoryStore_PriceWindow(t *testing.T) {
	store, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)
	ctx := context.Background()

	to := time.Date(2024, 6, 27, 0, 0, 0, 0, time.UTC)
	prices, err := store.GetPriceHistory(ctx, "2330", time.Time{}, to)
	require.NoError(t, err)
	require.Len(t, prices.Bars, 2)
	assert.Equal(t, 2.0, prices.Bars[1].Close)

	from := time.Date(2024, 6, 27, 0, 0, 0, 0, time.UTC)
	prices, err = store.GetPriceHistory(ctx, "2330", from, time.Time{})
	require.NoError(t, err)
	assert.Len(t, prices.Bars, 2)

	_, err = store.GetPriceHistory(ctx, "2330", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
}

func TestMemoryStore_FlowTrailingSorted(t *testing.T) {
	store, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)

	flow, err := store.GetFlowHistory(context.Background(), "2330", 2)
	require.NoError(t, err)
	require.Len(t, flow.Days, 2)
	assert.Equal(t, int64(2), flow.Days[0].ForeignNet)
	assert.Equal(t, int64(3), flow.Days[1].ForeignNet)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetFundamentalHistory(ctx, "9999")
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
	_, err = store.GetPriceHistory(ctx, "9999", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
	_, err = store.GetFlowHistory(ctx, "9999", 5)
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
	_, err = store.GetHolderConcentration(ctx, "9999")
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	store.PutFundamental(&contracts.FundamentalRecord{
		Symbol:   "2330",
		Quarters: []contracts.FundamentalQuarter{{Period: "2024Q1", EPS: 1}},
	})

	a, err := store.GetFundamentalHistory(context.Background(), "2330")
	require.NoError(t, err)
	a.Quarters[0].EPS = 99

	b, err := store.GetFundamentalHistory(context.Background(), "2330")
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Quarters[0].EPS)
}

func TestMemoryStore_TopByMarketCap(t *testing.T) {
	store, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)

	assert.Equal(t, []string{"2330", "2317"}, store.TopByMarketCap(2))
	assert.Equal(t, []string{"2330", "2317", "2454"}, store.TopByMarketCap(0))
}

func TestNullFloat(t *testing.T) {
	v := 1.5
	assert.Equal(t, 1.5, nullFloat(&v))
	assert.True(t, math.IsNaN(nullFloat(nil)))
	assert.Nil(t, floatParam(math.NaN()))
	assert.Equal(t, 1.5, *floatParam(1.5))
}

func TestRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || testing.Short() {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	store, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)

	ctx := context.Background()
	stats, err := repo.Import(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Bars)
	assert.Equal(t, 3, stats.MarketCaps)

	fund, err := repo.GetFundamentalHistory(ctx, "2330")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fund.Quarters[len(fund.Quarters)-1].EPS))

	flow, err := repo.GetFlowHistory(ctx, "2330", 2)
	require.NoError(t, err)
	assert.Len(t, flow.Days, 2)

	_, err = repo.GetPriceHistory(ctx, "NOPE", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
}
