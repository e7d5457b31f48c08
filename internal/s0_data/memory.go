package s0_data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/fingear/internal/contracts"
)

// MemoryStore is an in-process MarketDataSource backed by maps.
// Used by snapshot files (오프라인 실행) and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	date         time.Time
	fundamentals map[string]*contracts.FundamentalRecord
	prices       map[string]*contracts.PriceRecord
	flows        map[string]*contracts.FlowRecord
	holders      map[string]*contracts.HolderConcentration
	marketCaps   map[string]int64
}

var _ contracts.MarketDataSource = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fundamentals: make(map[string]*contracts.FundamentalRecord),
		prices:       make(map[string]*contracts.PriceRecord),
		flows:        make(map[string]*contracts.FlowRecord),
		holders:      make(map[string]*contracts.HolderConcentration),
		marketCaps:   make(map[string]int64),
	}
}

// Date returns the as-of date of the loaded snapshot (zero if unset)
func (m *MemoryStore) Date() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.date
}

// SetDate sets the as-of date
func (m *MemoryStore) SetDate(d time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.date = d
}

// PutFundamental stores a fundamental record
func (m *MemoryStore) PutFundamental(rec *contracts.FundamentalRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fundamentals[rec.Symbol] = rec
}

// PutPrice stores a price record
func (m *MemoryStore) PutPrice(rec *contracts.PriceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[rec.Symbol] = rec
}

// PutFlow stores a flow record
func (m *MemoryStore) PutFlow(rec *contracts.FlowRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[rec.Symbol] = rec
}

// PutHolder stores a holder concentration pair
func (m *MemoryStore) PutHolder(h *contracts.HolderConcentration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holders[h.Symbol] = h
}

// PutMarketCap stores a market capitalization
func (m *MemoryStore) PutMarketCap(symbol string, marketCap int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketCaps[symbol] = marketCap
}

// Symbols returns every symbol with fundamentals, sorted
func (m *MemoryStore) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.fundamentals))
	for s := range m.fundamentals {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// TopByMarketCap returns up to n symbols by market cap descending (ties by symbol)
func (m *MemoryStore) TopByMarketCap(n int) []string {
	m.mu.RLock()
	type pair struct {
		symbol string
		cap    int64
	}
	pairs := make([]pair, 0, len(m.marketCaps))
	for s, c := range m.marketCaps {
		pairs = append(pairs, pair{s, c})
	}
	m.mu.RUnlock()

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].cap != pairs[j].cap {
			return pairs[i].cap > pairs[j].cap
		}
		return pairs[i].symbol < pairs[j].symbol
	})
	if n > 0 && n < len(pairs) {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.symbol
	}
	return out
}

// GetFundamentalHistory implements contracts.FundamentalRepository
func (m *MemoryStore) GetFundamentalHistory(_ context.Context, symbol string) (*contracts.FundamentalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.fundamentals[symbol]
	if !ok || len(rec.Quarters) == 0 {
		return nil, notFound("fundamentals", symbol)
	}
	cp := *rec
	cp.Quarters = append([]contracts.FundamentalQuarter(nil), rec.Quarters...)
	cp.Valuation = append([]contracts.ValuationPoint(nil), rec.Valuation...)
	return &cp, nil
}

// GetPriceHistory implements contracts.PriceRepository
func (m *MemoryStore) GetPriceHistory(_ context.Context, symbol string, from, to time.Time) (*contracts.PriceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.prices[symbol]
	if !ok {
		return nil, notFound("prices", symbol)
	}

	out := &contracts.PriceRecord{Symbol: symbol}
	for _, b := range rec.Bars {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	if len(out.Bars) == 0 {
		return nil, notFound("prices", symbol)
	}
	return out, nil
}

// GetFlowHistory implements contracts.FlowRepository
func (m *MemoryStore) GetFlowHistory(_ context.Context, symbol string, trailingDays int) (*contracts.FlowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.flows[symbol]
	if !ok || len(rec.Days) == 0 {
		return nil, notFound("flow", symbol)
	}

	days := rec.SortedDays()
	if trailingDays > 0 && trailingDays < len(days) {
		days = days[len(days)-trailingDays:]
	}
	return &contracts.FlowRecord{Symbol: symbol, Days: days}, nil
}

// GetHolderConcentration implements contracts.FlowRepository
func (m *MemoryStore) GetHolderConcentration(_ context.Context, symbol string) (*contracts.HolderConcentration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.holders[symbol]
	if !ok {
		return nil, notFound("holder", symbol)
	}
	cp := *h
	return &cp, nil
}
