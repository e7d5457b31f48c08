package contracts

import "time"

// Universe is the candidate set entering S2
// ⭐ SSOT: S1 → S2 후보 종목 전달
type Universe struct {
	Date   time.Time `json:"date"`
	Stocks []string  `json:"stocks"`
	Source string    `json:"source"` // market_cap | file | args
}

// Contains checks if a stock code is in the universe
func (u *Universe) Contains(code string) bool {
	for _, stock := range u.Stocks {
		if stock == code {
			return true
		}
	}
	return false
}

// Count returns the number of candidate stocks
func (u *Universe) Count() int {
	return len(u.Stocks)
}

// Dedup removes repeated symbols keeping first occurrence order
func (u *Universe) Dedup() {
	seen := make(map[string]struct{}, len(u.Stocks))
	out := u.Stocks[:0]
	for _, s := range u.Stocks {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	u.Stocks = out
}
