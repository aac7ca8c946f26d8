// Package risk holds the pure position math: liquidation price,
// mark-to-market PnL and the liquidation predicate. Functions here
// keep no state so recomputation with the same inputs is idempotent.
package risk

import (
	"math"

	"btcdesk/models"
)

// LiquidationPrice returns the price at which the posted margin is
// fully consumed. At leverage <= 1 a long can never liquidate before a
// zero price and a short can never liquidate at all, expressed as the
// sentinels 0 and +Inf.
func LiquidationPrice(side models.Side, entryPrice, leverage float64) float64 {
	if leverage <= 1 {
		if side == models.Short {
			return math.Inf(1)
		}
		return 0
	}

	var liq float64
	if side == models.Long {
		liq = entryPrice * (1 - 1/leverage)
	} else {
		liq = entryPrice * (1 + 1/leverage)
	}
	if liq < 0 {
		return 0
	}
	return liq
}

// PnL marks a position to the given price. Degenerate inputs yield 0,
// never NaN.
func PnL(p models.Position, currentPrice float64) float64 {
	if p.EntryPrice <= 0 || p.Amount <= 0 || p.Leverage <= 0 || currentPrice <= 0 {
		return 0
	}
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return 0
	}

	priceDiff := currentPrice - p.EntryPrice
	if p.Side == models.Short {
		priceDiff = p.EntryPrice - currentPrice
	}
	return (priceDiff / p.EntryPrice) * p.Amount * p.Leverage
}

// ShouldLiquidate reports whether the price has crossed the
// liquidation threshold.
func ShouldLiquidate(p models.Position, currentPrice float64) bool {
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return false
	}

	liq := LiquidationPrice(p.Side, p.EntryPrice, p.Leverage)
	if p.Side == models.Long {
		return currentPrice <= liq
	}
	return currentPrice >= liq
}

// LiquidationLoss is the forfeited margin reported when a position is
// force-closed, as a negative number.
func LiquidationLoss(p models.Position) float64 {
	return -p.Margin()
}
