package indicators

// EMA computes an exponential moving average series over prices.
// The series is seeded with the first raw price, so the output always
// has the same length as the input and ema[0] == prices[0]. Downstream
// signal thresholds are tuned against this seeding; do not switch to
// an SMA seed.
func EMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period < 1 {
		return nil
	}

	k := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}
