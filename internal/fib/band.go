// Package fib computes the 75% Fibonacci retracement level of a pair's range
// and tests whether the current price sits in the band around it.
package fib

import (
	"github.com/shopspring/decimal"

	"github.com/0xsamyy/fibwatch/internal/market"
)

var (
	// Retracement is measured up from the low: level = low + 0.25*(high-low),
	// i.e. 75% of the way back down from high.
	retraceFromLow = decimal.RequireFromString("0.25")
	bandWidth      = decimal.RequireFromString("0.02")

	bandLowFactor  = decimal.NewFromInt(1).Sub(bandWidth)
	bandHighFactor = decimal.NewFromInt(1).Add(bandWidth)
)

// Result is the outcome of evaluating one pair. When Defined is false the
// pair's range could not produce a level and every other field is zero.
type Result struct {
	Defined  bool
	InBand   bool
	Level75  decimal.Decimal
	BandLow  decimal.Decimal
	BandHigh decimal.Decimal
}

// Level75 returns low + 0.25*(high-low). It does not validate its inputs.
func Level75(low, high decimal.Decimal) decimal.Decimal {
	return low.Add(retraceFromLow.Mul(high.Sub(low)))
}

// Band returns the inclusive [level*0.98, level*1.02] interval.
func Band(level decimal.Decimal) (lo, hi decimal.Decimal) {
	return level.Mul(bandLowFactor), level.Mul(bandHighFactor)
}

// Evaluate computes the level and band for p and whether p.PriceUSD is inside
// it. Requires high >= low > 0 and a positive price; otherwise the result is
// undefined.
func Evaluate(p market.Pair) Result {
	if !p.LowUSD.IsPositive() || p.HighUSD.LessThan(p.LowUSD) || !p.PriceUSD.IsPositive() {
		return Result{}
	}

	level := Level75(p.LowUSD, p.HighUSD)
	bandLo, bandHi := Band(level)

	return Result{
		Defined:  true,
		InBand:   p.PriceUSD.GreaterThanOrEqual(bandLo) && p.PriceUSD.LessThanOrEqual(bandHi),
		Level75:  level,
		BandLow:  bandLo,
		BandHigh: bandHi,
	}
}
