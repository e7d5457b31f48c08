package selection

import (
	"fmt"
	"sort"

	"github.com/wonny/fingear/internal/contracts"
)

// RankFundamentals sorts scores by composite (descending), ties by symbol (ascending).
// The input slice is not modified.
func RankFundamentals(scores []*contracts.FundamentalScore) []*contracts.FundamentalScore {
	ranked := make([]*contracts.FundamentalScore, len(scores))
	copy(ranked, scores)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	return ranked
}

// SplitTopK returns the first k ranked scores and the rest.
// k >= len(ranked) keeps everything, k == 0 keeps nothing.
func SplitTopK(ranked []*contracts.FundamentalScore, k int) (selected, rest []*contracts.FundamentalScore) {
	if k < 0 {
		k = 0
	}
	if k >= len(ranked) {
		return ranked, nil
	}
	return ranked[:k], ranked[k:]
}

// PEPosition checks the PE-relative tier against the pre-filter minimum.
// 0 disables the filter.
func PEPosition(score *contracts.FundamentalScore, minTier int) (bool, string) {
	if minTier <= 0 {
		return true, ""
	}
	pe, ok := score.Factor(contracts.FactorPERelative)
	if !ok {
		return false, "pe_relative factor missing"
	}
	if pe.Tier < minTier {
		return false, fmt.Sprintf("pe tier %d < %d", pe.Tier, minTier)
	}
	return true, ""
}
