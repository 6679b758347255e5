package feed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candles(closes ...float64) []Kline {
	ks := make([]Kline, len(closes))
	for i, c := range closes {
		ks[i] = Kline{
			OpenTime: int64(i * 300),
			Open:     c * 0.999,
			High:     c * 1.002,
			Low:      c * 0.998,
			Close:    c,
			Volume:   float64(10 + i),
		}
	}
	return ks
}

func TestFrameFromKlines_Columns(t *testing.T) {
	raw, err := FrameFromKlines(candles(100, 101, 102, 103), 1, 0.001)
	require.NoError(t, err)

	assert.Equal(t, []string{"%close", "%return_1", "%range", "%body", "%volume", "%vwap_dev", "%tick_imb"}, raw.Columns())
	assert.Equal(t, []string{"&trend"}, raw.LabelColumns())
	assert.Equal(t, 4, raw.NumRows())
}

func TestFrameFromKlines_Labels(t *testing.T) {
	// labelPeriod 2, threshold 1%: forward returns are
	// row 0: 103/100-1 = +3.0%  -> up
	// row 1: 101/100.5-1 ~ +0.5% -> neutral
	// row 2: 100/103-1 ~ -2.9%  -> down
	// rows 3, 4: no forward window -> empty label
	raw, err := FrameFromKlines(candles(100, 100.5, 103, 101, 100), 2, 0.01)
	require.NoError(t, err)

	labels, ok := raw.LabelColumn("&trend")
	require.True(t, ok)
	assert.Equal(t, []string{LabelUp, LabelNeutral, LabelDown, "", ""}, labels)
}

func TestFrameFromKlines_FirstReturnIsNaN(t *testing.T) {
	raw, err := FrameFromKlines(candles(100, 102, 104), 1, 0.001)
	require.NoError(t, err)

	ret, ok := raw.Column("%return_1")
	require.True(t, ok)
	assert.True(t, math.IsNaN(ret[0]), "no previous close for the first candle")
	assert.InDelta(t, 0.02, ret[1], 1e-9)
	assert.InDelta(t, 104.0/102.0-1, ret[2], 1e-9)
}

func TestFrameFromKlines_IndicatorWarmup(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	raw, err := FrameFromKlines(candles(closes...), 1, 0.001)
	require.NoError(t, err)

	vwapDev, ok := raw.Column("%vwap_dev")
	require.True(t, ok)
	assert.True(t, math.IsNaN(vwapDev[vwapWindow-2]), "row inside warmup should be NaN")
	assert.False(t, math.IsNaN(vwapDev[vwapWindow-1]), "first full window should be numeric")

	tickImb, ok := raw.Column("%tick_imb")
	require.True(t, ok)
	assert.True(t, math.IsNaN(tickImb[tickWindow-1]))
	// strictly rising closes: every move is up
	assert.InDelta(t, 1.0, tickImb[19], 1e-9)
}

func TestFrameFromKlines_Errors(t *testing.T) {
	_, err := FrameFromKlines(nil, 12, 0.002)
	assert.Error(t, err)

	_, err = FrameFromKlines(candles(100, 101), 0, 0.002)
	assert.Error(t, err)
}

func TestFrameFromKlines_ZeroCloseGuard(t *testing.T) {
	ks := candles(100, 101, 102)
	ks[1].Close = 0

	raw, err := FrameFromKlines(ks, 1, 0.001)
	require.NoError(t, err)

	ret, ok := raw.Column("%return_1")
	require.True(t, ok)
	// The candle after a zero close has no usable return.
	assert.True(t, math.IsNaN(ret[2]))

	rng, ok := raw.Column("%range")
	require.True(t, ok)
	assert.Equal(t, 0.0, rng[1])
}
