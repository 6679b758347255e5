// Package features computes rolling indicators over candle history. All
// functions are batch-oriented: they take aligned slices covering the full
// history and return one value per row. Rows without a full trailing window
// are NaN so the data kitchen can drop or mask them.
package features

import (
	"fmt"
	"math"
)

// RollingVWAP returns the volume weighted average price over a trailing
// window of candles, together with the plain price standard deviation over
// the same window. The first window-1 entries are NaN.
func RollingVWAP(closes, volumes []float64, window int) (vwap, std []float64, err error) {
	n := len(closes)
	if len(volumes) != n {
		return nil, nil, fmt.Errorf("features: %d closes but %d volumes", n, len(volumes))
	}
	if window <= 0 {
		return nil, nil, fmt.Errorf("features: window must be positive, got %d", window)
	}

	vwap = make([]float64, n)
	std = make([]float64, n)
	for i := range vwap {
		vwap[i] = math.NaN()
		std[i] = math.NaN()
	}

	var pv, vv, sum, sumSq float64
	for i := 0; i < n; i++ {
		pv += closes[i] * volumes[i]
		vv += volumes[i]
		sum += closes[i]
		sumSq += closes[i] * closes[i]

		if i >= window {
			j := i - window
			pv -= closes[j] * volumes[j]
			vv -= volumes[j]
			sum -= closes[j]
			sumSq -= closes[j] * closes[j]
		}
		if i < window-1 {
			continue
		}

		if vv > 0 {
			vwap[i] = pv / vv
		} else {
			vwap[i] = 0
		}
		mean := sum / float64(window)
		variance := sumSq/float64(window) - mean*mean
		if variance < 0 {
			variance = 0 // rounding
		}
		std[i] = math.Sqrt(variance)
	}
	return vwap, std, nil
}

// VWAPDistance maps each close to its distance from the rolling VWAP in
// standard deviations. A zero or NaN deviation yields 0 for rows inside a
// full window, NaN outside.
func VWAPDistance(closes, vwap, std []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		switch {
		case math.IsNaN(vwap[i]) || math.IsNaN(std[i]):
			out[i] = math.NaN()
		case std[i] == 0:
			out[i] = 0
		default:
			out[i] = (closes[i] - vwap[i]) / std[i]
		}
	}
	return out
}

// TickImbalance returns the mean sign of candle-to-candle moves over a
// trailing window: +1 when every move was up, -1 when every move was down.
// The first window entries are NaN (the very first close has no move).
func TickImbalance(closes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("features: window must be positive, got %d", window)
	}
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	signs := make([]int, n) // signs[i] is the move into row i, 0 for row 0
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			signs[i] = 1
		case closes[i] < closes[i-1]:
			signs[i] = -1
		}
	}

	sum := 0
	for i := 1; i < n; i++ {
		sum += signs[i]
		if i > window {
			sum -= signs[i-window]
		}
		if i >= window {
			out[i] = float64(sum) / float64(window)
		}
	}
	return out, nil
}
