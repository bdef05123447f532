package dexscreener

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/0xsamyy/fibwatch/internal/market"
)

const (
	solanaChainID = "solana"
	divPrecision  = 24
)

var (
	errNoPrice = errors.New("missing priceUsd")
	hundred    = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
)

func isSolana(rp rawPair) bool {
	return strings.EqualFold(rp.ChainID, solanaChainID)
}

// toPair validates a raw pair and converts it. Pairs without a positive USD
// price are rejected.
func toPair(rp rawPair) (market.Pair, error) {
	if rp.PriceUsd == nil || strings.TrimSpace(*rp.PriceUsd) == "" {
		return market.Pair{}, errNoPrice
	}
	price, err := decimal.NewFromString(strings.TrimSpace(*rp.PriceUsd))
	if err != nil {
		return market.Pair{}, fmt.Errorf("priceUsd %q: %w", *rp.PriceUsd, err)
	}
	if !price.IsPositive() {
		return market.Pair{}, fmt.Errorf("priceUsd %s is not positive", price)
	}

	low, high := observedRange(price, rp.PriceChange)

	p := market.Pair{
		PairAddress: rp.PairAddress,
		DexID:       rp.DexID,
		URL:         rp.URL,
		BaseSymbol:  rp.BaseToken.Symbol,
		BaseName:    rp.BaseToken.Name,
		PriceUSD:    price,
		LowUSD:      low,
		HighUSD:     high,
	}
	if rp.Volume != nil && rp.Volume.H24 != nil {
		p.Volume24hUSD = max(*rp.Volume.H24, 0)
	}
	if rp.Liquidity != nil && rp.Liquidity.USD != nil {
		p.LiquidityUSD = max(*rp.Liquidity.USD, 0)
	}
	return p, nil
}

// observedRange reconstructs the price at the start of each reported
// priceChange window (price / (1 + pct/100)) and returns the min and max of
// those and the current price. Windows at or below -100% are ignored. When no
// window moves the range away from the current price, both bounds are zero so
// the level is undefined.
func observedRange(price decimal.Decimal, changes *windowed) (low, high decimal.Decimal) {
	if changes == nil {
		return decimal.Zero, decimal.Zero
	}
	low, high = price, price
	for _, pct := range []*float64{changes.M5, changes.H1, changes.H6, changes.H24} {
		if pct == nil || *pct <= -100 {
			continue
		}
		factor := one.Add(decimal.NewFromFloat(*pct).Div(hundred))
		past := price.DivRound(factor, divPrecision)
		low = decimal.Min(low, past)
		high = decimal.Max(high, past)
	}
	if low.Equal(high) {
		return decimal.Zero, decimal.Zero
	}
	return low, high
}
