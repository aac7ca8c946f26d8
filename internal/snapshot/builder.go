// Package snapshot assembles the read-only market and account
// projection handed to the decision adapter.
package snapshot

import (
	"time"

	"github.com/markcheno/go-talib"

	"btcdesk/internal/candles"
	"btcdesk/internal/indicators"
	"btcdesk/models"
)

const (
	atrPeriod    = 14
	bbandsPeriod = 20
)

// Builder condenses multi-timeframe candle history into one snapshot.
type Builder struct {
	symbol    string
	intervals []string
	stores    map[string]*candles.Store
}

// NewBuilder creates a builder over the given per-interval stores.
// Intervals are reported in the order provided.
func NewBuilder(symbol string, intervals []string, stores map[string]*candles.Store) *Builder {
	return &Builder{
		symbol:    symbol,
		intervals: intervals,
		stores:    stores,
	}
}

// AccountState carries the account-side inputs to a snapshot.
type AccountState struct {
	Positions []models.Position
	Balance   float64
	MinAmount float64
	MaxAmount float64
}

// Build produces a snapshot for the current price and account state.
func (b *Builder) Build(price float64, stats models.TickerStats, acct AccountState) models.MarketSnapshot {
	snap := models.MarketSnapshot{
		Symbol:    b.symbol,
		Price:     price,
		Stats:     stats,
		Positions: acct.Positions,
		Balance:   acct.Balance,
		RiskTier:  riskTier(acct.Balance),
		MinAmount: acct.MinAmount,
		MaxAmount: acct.MaxAmount,
		Taken:     time.Now(),
	}

	for _, interval := range b.intervals {
		store, ok := b.stores[interval]
		if !ok || store.Len() == 0 {
			continue
		}
		snap.Timeframes = append(snap.Timeframes, summarize(interval, store.All()))
	}
	return snap
}

func summarize(interval string, window []models.Candle) models.TimeframeSummary {
	closes := indicators.Closes(window)
	ind := indicators.Compute(closes)

	summary := models.TimeframeSummary{
		Interval:      interval,
		Close:         indicators.Last(closes),
		EMA10:         indicators.Last(ind.EMA10),
		EMA55:         indicators.Last(ind.EMA55),
		RSI:           indicators.Last(ind.RSI),
		MACDHistogram: indicators.Last(ind.MACD.Histogram),
		Trend:         trendLabel(ind),
	}

	// Volatility extras need a minimum lookback
	if len(window) > atrPeriod {
		highs := make([]float64, len(window))
		lows := make([]float64, len(window))
		for i, c := range window {
			highs[i] = c.High
			lows[i] = c.Low
		}
		summary.ATR = indicators.Last(talib.Atr(highs, lows, closes, atrPeriod))
	}
	if len(window) >= bbandsPeriod {
		upper, middle, lower := talib.BBands(closes, bbandsPeriod, 2, 2, talib.SMA)
		if mid := indicators.Last(middle); mid > 0 {
			summary.BandWidth = (indicators.Last(upper) - indicators.Last(lower)) / mid
		}
	}

	return summary
}

func trendLabel(ind models.IndicatorSnapshot) string {
	ema10 := indicators.Last(ind.EMA10)
	ema55 := indicators.Last(ind.EMA55)
	switch {
	case ema10 > ema55:
		return "bullish"
	case ema10 < ema55:
		return "bearish"
	default:
		return "flat"
	}
}

func riskTier(balance float64) string {
	switch {
	case balance < 100:
		return "micro"
	case balance < 1000:
		return "conservative"
	case balance < 10000:
		return "moderate"
	default:
		return "aggressive"
	}
}
