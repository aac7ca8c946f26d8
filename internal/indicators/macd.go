package indicators

import "btcdesk/models"

// MACD periods are fixed to the conventional 12/26/9 setup.
const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// MACD computes the MACD line as EMA12-EMA26, the signal line as an
// EMA9 of the MACD line, and the histogram as their difference. The
// three series are trimmed to a common length.
func MACD(prices []float64) models.MACDResult {
	fast := EMA(prices, macdFastPeriod)
	slow := EMA(prices, macdSlowPeriod)

	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}
	macd := make([]float64, n)
	for i := 0; i < n; i++ {
		macd[i] = fast[i] - slow[i]
	}

	signal := EMA(macd, macdSignalPeriod)
	if len(signal) < n {
		n = len(signal)
	}

	hist := make([]float64, n)
	for i := 0; i < n; i++ {
		hist[i] = macd[i] - signal[i]
	}

	return models.MACDResult{
		MACD:      macd[:n],
		Signal:    signal[:n],
		Histogram: hist,
	}
}
