package s1_universe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/internal/s0_data"
)

var testDate = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func TestParseUniverseFile(t *testing.T) {
	input := `# 시가총액 상위
2330 台積電
2317,鴻海

  2454	聯發科   # comment
# 00878 ETF
00878
`
	symbols, err := ParseUniverseFile(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"2330", "2317", "2454", "00878"}, symbols)
}

func TestParseUniverseFile_Invalid(t *testing.T) {
	_, err := ParseUniverseFile(strings.NewReader("2330\n$bad\n"))
	require.Error(t, err)

	var ve *contracts.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "line 2", ve.Field)
}

func TestBuilder_Build(t *testing.T) {
	store := s0_data.NewMemoryStore()
	store.PutMarketCap("2330", 900)
	store.PutMarketCap("2317", 500)
	store.PutMarketCap("2454", 500)
	store.PutMarketCap("1101", 100)

	dir := t.TempDir()
	file := filepath.Join(dir, "top_stocks.txt")
	require.NoError(t, os.WriteFile(file, []byte("1101\n2330\n1101\n"), 0o644))

	builder := NewBuilder(MemoryRanker{Store: store}, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		req    Request
		source string
		expect []string
	}{
		{"args win", Request{Symbols: []string{" 2330", "2317", "2330"}, File: file, TopN: 1}, SourceArgs, []string{"2330", "2317"}},
		{"file", Request{File: file, TopN: 1}, SourceFile, []string{"1101", "2330"}},
		{"market cap", Request{TopN: 3}, SourceMarketCap, []string{"2330", "2317", "2454"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := builder.Build(ctx, testDate, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.source, u.Source)
			assert.Equal(t, tt.expect, u.Stocks)
			assert.Equal(t, testDate, u.Date)
		})
	}
}

func TestBuilder_BuildErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewBuilder(nil, nil).Build(ctx, testDate, Request{TopN: 10})
	assert.True(t, contracts.IsConfiguration(err))

	_, err = NewBuilder(MemoryRanker{Store: s0_data.NewMemoryStore()}, nil).Build(ctx, testDate, Request{})
	assert.True(t, contracts.IsConfiguration(err))

	_, err = NewBuilder(nil, nil).Build(ctx, testDate, Request{File: "/nonexistent/top_stocks.txt"})
	assert.Error(t, err)
}

func TestRepository_TopByMarketCap(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || testing.Short() {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err, "database connection failed")
	defer db.Close()

	repo := NewRepository(db)
	symbols, err := repo.TopByMarketCap(context.Background(), time.Now(), 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(symbols), 5)

	t.Logf("Top market cap: %v", symbols)
}
