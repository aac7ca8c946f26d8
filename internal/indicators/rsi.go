package indicators

// RSI computes the relative strength index using a simple moving
// average of gains and losses over a trailing window, recomputed from
// scratch at each point. This is deliberately not Wilder smoothing.
// The first period points have no defined RSI, so the output length is
// len(prices) - period. Zero average loss resolves to 100, never to a
// division by zero.
func RSI(prices []float64, period int) []float64 {
	if period < 1 || len(prices) <= period {
		return nil
	}

	out := make([]float64, 0, len(prices)-period)
	for i := period; i < len(prices); i++ {
		var gains, losses float64
		for j := i - period + 1; j <= i; j++ {
			change := prices[j] - prices[j-1]
			if change > 0 {
				gains += change
			} else {
				losses -= change
			}
		}

		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)

		if avgLoss == 0 {
			out = append(out, 100.0)
			continue
		}

		rs := avgGain / avgLoss
		out = append(out, 100.0-(100.0/(1.0+rs)))
	}
	return out
}
