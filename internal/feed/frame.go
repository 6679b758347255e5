package feed

import (
	"fmt"
	"math"

	"litmus-ml/internal/features"
	"litmus-ml/internal/frame"
	"litmus-ml/internal/kitchen"
)

// Trailing windows for the rolling indicator features. Rows without a full
// window get NaN features, which the kitchen drops or masks.
const (
	vwapWindow = 14
	tickWindow = 10
)

// LabelUp, LabelDown and LabelNeutral are the trend classes assigned by
// forward return over the labeling horizon.
const (
	LabelUp      = "up"
	LabelDown    = "down"
	LabelNeutral = "neutral"
)

// FrameFromKlines converts candles into the raw dataframe the kitchen
// consumes: "%"-prefixed numeric feature columns plus a "&trend" label
// column set by the sign of the forward return over labelPeriod candles
// against threshold. The trailing labelPeriod rows have no forward window
// yet; their label is empty and their return features NaN, which the
// kitchen's training filter drops and the prediction path masks.
func FrameFromKlines(klines []Kline, labelPeriod int, threshold float64) (*frame.Frame, error) {
	n := len(klines)
	if n == 0 {
		return nil, fmt.Errorf("feed: no klines")
	}
	if labelPeriod <= 0 {
		return nil, fmt.Errorf("feed: label period must be positive, got %d", labelPeriod)
	}

	closePx := make([]float64, n)
	ret1 := make([]float64, n)
	rng := make([]float64, n)
	body := make([]float64, n)
	volume := make([]float64, n)
	labels := make([]string, n)

	for i, k := range klines {
		closePx[i] = k.Close
		volume[i] = k.Volume
		if k.Close != 0 {
			rng[i] = (k.High - k.Low) / k.Close
			body[i] = (k.Close - k.Open) / k.Close
		}
		if i == 0 || klines[i-1].Close == 0 {
			ret1[i] = math.NaN()
		} else {
			ret1[i] = k.Close/klines[i-1].Close - 1
		}

		if i+labelPeriod < n && k.Close != 0 {
			fwd := klines[i+labelPeriod].Close/k.Close - 1
			switch {
			case fwd > threshold:
				labels[i] = LabelUp
			case fwd < -threshold:
				labels[i] = LabelDown
			default:
				labels[i] = LabelNeutral
			}
		}
	}

	vwap, std, err := features.RollingVWAP(closePx, volume, vwapWindow)
	if err != nil {
		return nil, err
	}
	vwapDev := features.VWAPDistance(closePx, vwap, std)
	tickImb, err := features.TickImbalance(closePx, tickWindow)
	if err != nil {
		return nil, err
	}

	raw := frame.New()
	cols := []struct {
		name   string
		values []float64
	}{
		{kitchen.FeaturePrefix + "close", closePx},
		{kitchen.FeaturePrefix + "return_1", ret1},
		{kitchen.FeaturePrefix + "range", rng},
		{kitchen.FeaturePrefix + "body", body},
		{kitchen.FeaturePrefix + "volume", volume},
		{kitchen.FeaturePrefix + "vwap_dev", vwapDev},
		{kitchen.FeaturePrefix + "tick_imb", tickImb},
	}
	for _, c := range cols {
		if err := raw.AddColumn(c.name, c.values); err != nil {
			return nil, err
		}
	}
	if err := raw.AddLabelColumn(kitchen.LabelPrefix+"trend", labels); err != nil {
		return nil, err
	}
	return raw, nil
}
