package dqn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_OutputShape(t *testing.T) {
	prices := []float64{100, 101, 102, 103, 104, 105}

	tests := []struct {
		name   string
		t      int
		window int
	}{
		{name: "mid series", t: 4, window: 3},
		{name: "end of series", t: 5, window: 3},
		{name: "needs padding", t: 1, window: 3},
		{name: "first day", t: 0, window: 5},
		{name: "window of one", t: 3, window: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Encode(prices, tt.t, tt.window)
			require.Len(t, state, tt.window)
			for i, v := range state {
				assert.Greater(t, v, 0.0, "element %d", i)
				assert.Less(t, v, 1.0, "element %d", i)
			}
		})
	}
}

func TestEncode_Pure(t *testing.T) {
	prices := []float64{10, 12, 11, 13, 15, 14}

	first := Encode(prices, 4, 3)
	second := Encode(prices, 4, 3)

	assert.Equal(t, first, second)
	assert.Equal(t, []float64{10, 12, 11, 13, 15, 14}, prices, "input must not be mutated")
}

func TestEncode_RisingPricesAboveHalf(t *testing.T) {
	prices := []float64{100, 101, 102, 103, 104, 105}

	state := Encode(prices, 5, 3)
	for i, v := range state {
		assert.Greater(t, v, 0.5, "rising diffs should sigmoid above 0.5, element %d", i)
	}
}

func TestEncode_PaddingRepeatsEarliestPrice(t *testing.T) {
	prices := []float64{100, 110}

	// t=0 with window 3: all diffs come from the padded flat prefix.
	state := Encode(prices, 0, 3)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, state)

	// t=1: two padded zero-diffs, then the real 100->110 move.
	state = Encode(prices, 1, 3)
	assert.Equal(t, 0.5, state[0])
	assert.Equal(t, 0.5, state[1])
	assert.Greater(t, state[2], 0.99)
}
