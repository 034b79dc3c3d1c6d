package dqn

import "math"

// Encode builds the state vector for day t of a price series.
//
// The state is the sigmoid of the n consecutive differences between the n+1
// adjusted closes ending at t. When t < n the window is left-padded by
// repeating the earliest price, so the encoder never fails near the start of
// the series.
//
// The output always has exactly `window` elements, each in (0, 1). Encode is
// pure: it never mutates the input series.
func Encode(prices []float64, t, window int) []float64 {
	block := make([]float64, 0, window+1)

	start := t - window
	if start < 0 {
		// Pad with the earliest price so the first differences are zero.
		for i := 0; i < -start; i++ {
			block = append(block, prices[0])
		}
		start = 0
	}
	block = append(block, prices[start:t+1]...)

	state := make([]float64, window)
	for i := 0; i < window; i++ {
		state[i] = sigmoid(block[i+1] - block[i])
	}
	return state
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
