package indicators

import "btcdesk/models"

// RSIPeriod is the default lookback for the RSI oscillator.
const RSIPeriod = 14

// Closes extracts the closing price series from a candle window.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Compute derives every indicator series from one closing price
// series. Identical inputs always produce bit-identical outputs; the
// snapshot feeds both the dashboard and trading decisions.
func Compute(prices []float64) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		EMA10:  EMA(prices, 10),
		EMA55:  EMA(prices, 55),
		EMA200: EMA(prices, 200),
		EMA365: EMA(prices, 365),
		RSI:    RSI(prices, RSIPeriod),
		MACD:   MACD(prices),
	}
}

// Last returns the final element of a series, or 0 when empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
