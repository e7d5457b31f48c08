package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만
// 모든 구현은 데이터가 없으면 ErrNotFound 를 wrap 해서 반환해야 함

// FundamentalRepository reads quarterly fundamentals (oldest first)
type FundamentalRepository interface {
	GetFundamentalHistory(ctx context.Context, symbol string) (*FundamentalRecord, error)
}

// PriceRepository reads daily bars with precomputed indicator columns.
// Zero from/to means unbounded on that side.
type PriceRepository interface {
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) (*PriceRecord, error)
}

// FlowRepository reads institutional flow and large-holder snapshots
type FlowRepository interface {
	GetFlowHistory(ctx context.Context, symbol string, trailingDays int) (*FlowRecord, error)
	GetHolderConcentration(ctx context.Context, symbol string) (*HolderConcentration, error)
}

// MarketDataSource bundles the three read contracts
type MarketDataSource interface {
	FundamentalRepository
	PriceRepository
	FlowRepository
}
