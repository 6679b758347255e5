package kitchen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litmus-ml/internal/frame"
)

func rawFrame(t *testing.T) *frame.Frame {
	t.Helper()
	raw := frame.New()
	require.NoError(t, raw.AddColumn("%close", []float64{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, raw.AddColumn("%volume", []float64{10, 20, math.NaN(), 40, 50, 60, 70, 80}))
	require.NoError(t, raw.AddColumn("timestamp", []float64{0, 1, 2, 3, 4, 5, 6, 7}))
	require.NoError(t, raw.AddLabelColumn("&trend", []string{"up", "down", "up", "down", "up", "down", "up", ""}))
	return raw
}

func newKitchen(t *testing.T, cfg Config) *Kitchen {
	t.Helper()
	k, err := New("BTCUSDT", cfg, nil)
	require.NoError(t, err)
	return k
}

func TestFindFeatures_PrefixConventions(t *testing.T) {
	k := newKitchen(t, Config{})
	k.FindFeatures(rawFrame(t))

	assert.Equal(t, []string{"%close", "%volume"}, k.FeatureList())
	assert.Equal(t, []string{"&trend"}, k.LabelList())
}

func TestFilterFeatures_TrainingDropsNaNRows(t *testing.T) {
	k := newKitchen(t, Config{})
	raw := rawFrame(t)
	k.FindFeatures(raw)

	features, labels, err := k.FilterFeatures(raw, k.FeatureList(), k.LabelList(), true)
	require.NoError(t, err)

	// Row 2 has a NaN feature, row 7 a missing label: both dropped.
	assert.Equal(t, 6, features.NumRows())
	assert.Equal(t, 6, labels.NumRows())
	assert.Equal(t, []string{"%close", "%volume"}, features.Columns())

	closeCol, _ := features.Column("%close")
	assert.Equal(t, []float64{1, 2, 4, 5, 6, 7}, closeCol)
}

func TestFilterFeatures_PredictionMasksNaNRows(t *testing.T) {
	k := newKitchen(t, Config{})
	raw := rawFrame(t)
	k.FindFeatures(raw)

	features, labels, err := k.FilterFeatures(raw, k.FeatureList(), nil, false)
	require.NoError(t, err)
	assert.Nil(t, labels)

	// Every row kept; the NaN row zero-filled and masked out.
	assert.Equal(t, 8, features.NumRows())
	mask := k.DoPredict()
	require.Len(t, mask, 8)
	assert.Equal(t, []int{1, 1, 0, 1, 1, 1, 1, 1}, mask)

	vol, _ := features.Column("%volume")
	assert.Equal(t, 0.0, vol[2])
}

func TestFilterFeatures_MissingColumn(t *testing.T) {
	k := newKitchen(t, Config{})
	raw := rawFrame(t)

	_, _, err := k.FilterFeatures(raw, []string{"%close", "%missing"}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "%missing")
}

func TestMakeTrainTestDatasets_ChronologicalSplit(t *testing.T) {
	k := newKitchen(t, Config{SplitFraction: 0.25})

	features := frame.New()
	require.NoError(t, features.AddColumn("%x", []float64{0, 1, 2, 3, 4, 5, 6, 7}))
	labels := frame.NewLabels()
	require.NoError(t, labels.AddColumn("&y", []string{"a", "b", "a", "b", "a", "b", "a", "b"}))

	part, err := k.MakeTrainTestDatasets(features, labels)
	require.NoError(t, err)

	assert.Equal(t, 6, part.TrainFeatures.NumRows())
	assert.Equal(t, 2, part.TestFeatures.NumRows())
	assert.Len(t, part.TrainWeights, 6)
	assert.Len(t, part.TestWeights, 2)

	// The "test" partition holds the most recent rows.
	testX, _ := part.TestFeatures.Column("%x")
	assert.Equal(t, []float64{6, 7}, testX)
}

func TestMakeTrainTestDatasets_Weights(t *testing.T) {
	features := frame.New()
	require.NoError(t, features.AddColumn("%x", []float64{0, 1, 2, 3}))
	labels := frame.NewLabels()
	require.NoError(t, labels.AddColumn("&y", []string{"a", "b", "a", "b"}))

	// Disabled weighting: everything weighs 1.
	k := newKitchen(t, Config{SplitFraction: 0.25})
	part, err := k.MakeTrainTestDatasets(features, labels)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, part.TrainWeights)

	// Enabled: strictly increasing toward the newest row, newest weighs 1.
	k = newKitchen(t, Config{SplitFraction: 0.25, WeightFactor: 2})
	part, err = k.MakeTrainTestDatasets(features, labels)
	require.NoError(t, err)
	all := append(append([]float64(nil), part.TrainWeights...), part.TestWeights...)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i], all[i-1])
	}
	assert.InDelta(t, 1.0, all[len(all)-1], 1e-12)
	assert.InDelta(t, math.Exp(-2), all[0], 1e-12)
}

func TestMakeTrainTestDatasets_Misaligned(t *testing.T) {
	k := newKitchen(t, Config{})
	features := frame.New()
	require.NoError(t, features.AddColumn("%x", []float64{0, 1, 2}))
	labels := frame.NewLabels()
	require.NoError(t, labels.AddColumn("&y", []string{"a", "b"}))

	_, err := k.MakeTrainTestDatasets(features, labels)
	assert.Error(t, err)
}

func TestPairData_GetPut(t *testing.T) {
	k := newKitchen(t, Config{})

	k.Data.Put("%close_min", 1.5)
	v, ok := k.Data.Get("%close_min")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = k.Data.Get("absent")
	assert.False(t, ok)
}
