package market

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Pair is one venue's view of a token for the current cycle.
type Pair struct {
	PairAddress string
	DexID       string
	URL         string
	BaseSymbol  string
	BaseName    string

	Volume24hUSD float64
	LiquidityUSD float64

	PriceUSD decimal.Decimal
	LowUSD   decimal.Decimal
	HighUSD  decimal.Decimal
}

// Label is the human name for the pair's base token, falling back to the
// pair address when the provider sent no symbol.
func (p Pair) Label() string {
	if p.BaseSymbol != "" {
		return p.BaseSymbol
	}
	return Shorten(p.PairAddress)
}

// SelectPair returns the pair with the highest 24h volume. Exact volume ties go
// to the higher liquidity; anything still tied resolves to the first pair in
// input order. ok is false when pairs is empty.
func SelectPair(pairs []Pair) (best Pair, ok bool) {
	if len(pairs) == 0 {
		return Pair{}, false
	}
	return lo.MaxBy(pairs, outranks), true
}

// outranks reports whether a strictly beats b. Strictness keeps the first
// encountered pair when neither wins.
func outranks(a, b Pair) bool {
	if a.Volume24hUSD != b.Volume24hUSD {
		return a.Volume24hUSD > b.Volume24hUSD
	}
	return a.LiquidityUSD > b.LiquidityUSD
}
