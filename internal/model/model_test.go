package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litmus-ml/internal/boost"
	"litmus-ml/internal/frame"
	"litmus-ml/internal/kitchen"
)

// rawTrainingFrame builds n rows of a separable two-class problem: even rows
// sit near +1 and are labeled "up", odd rows near -1 and labeled "down". A
// non-prefixed column is included to check the naming convention filter.
func rawTrainingFrame(t *testing.T, n int) *frame.Frame {
	t.Helper()
	raw := frame.New()

	x := make([]float64, n)
	vol := make([]float64, n)
	ts := make([]float64, n)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		jitter := 0.01 * float64(i%5)
		if i%2 == 0 {
			x[i] = 1.0 + jitter
			labels[i] = "up"
		} else {
			x[i] = -1.0 - jitter
			labels[i] = "down"
		}
		vol[i] = float64(100 + i)
		ts[i] = float64(i)
	}

	require.NoError(t, raw.AddColumn("%x", x))
	require.NoError(t, raw.AddColumn("%volume", vol))
	require.NoError(t, raw.AddColumn("timestamp", ts))
	require.NoError(t, raw.AddLabelColumn("&trend", labels))
	return raw
}

func newTestPlugin(m MetricsInterface) *Plugin {
	return New(boost.Config{Estimators: 40, MaxDepth: 3, Patience: 5}, m)
}

func TestPlugin_TrainPredictRoundTrip(t *testing.T) {
	dk, err := kitchen.New("BTCUSDT", kitchen.Config{}, nil)
	require.NoError(t, err)

	p := newTestPlugin(nil)
	raw := rawTrainingFrame(t, 40)

	m, err := p.Train(raw, "BTCUSDT", dk)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Same(t, m, p.Model())
	assert.ElementsMatch(t, []string{"down", "up"}, m.Classes())

	// The normalizer recorded min/max for every feature column.
	for _, key := range []string{"%x_min", "%x_max", "%volume_min", "%volume_max"} {
		_, ok := dk.Data.Get(key)
		assert.True(t, ok, "missing stored parameter %s", key)
	}

	// The fitted schema excludes the non-prefixed column.
	assert.Equal(t, []string{"%x", "%volume"}, p.FeatureList())

	probs, mask, err := p.Predict(raw, dk, true)
	require.NoError(t, err)
	require.Equal(t, raw.NumRows(), probs.NumRows())
	require.Len(t, mask, raw.NumRows())

	// One probability column per class, each row summing to 1, and the
	// separable feature should dominate the prediction.
	upIdx := indexOf(m.Classes(), "up")
	for i := 0; i < probs.NumRows(); i++ {
		assert.Equal(t, 1, mask[i])
		sum := 0.0
		var rowProbs []float64
		for _, class := range m.Classes() {
			col, ok := probs.Column(class)
			require.True(t, ok)
			sum += col[i]
			rowProbs = append(rowProbs, col[i])
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
		if i%2 == 0 {
			assert.Greater(t, rowProbs[upIdx], 0.5, "row %d should lean up", i)
		} else {
			assert.Less(t, rowProbs[upIdx], 0.5, "row %d should lean down", i)
		}
	}
}

func TestPlugin_PredictBeforeTrain(t *testing.T) {
	dk, err := kitchen.New("BTCUSDT", kitchen.Config{}, nil)
	require.NoError(t, err)

	p := newTestPlugin(nil)
	_, _, err = p.Predict(rawTrainingFrame(t, 20), dk, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predict before train")
}

func TestPlugin_PredictMissingFeatureColumn(t *testing.T) {
	dk, err := kitchen.New("BTCUSDT", kitchen.Config{}, nil)
	require.NoError(t, err)

	p := newTestPlugin(nil)
	_, err = p.Train(rawTrainingFrame(t, 40), "BTCUSDT", dk)
	require.NoError(t, err)

	// A raw frame missing a column the model was fitted on must fail.
	incomplete := frame.New()
	require.NoError(t, incomplete.AddColumn("%x", []float64{0.5, -0.5}))
	_, _, err = p.Predict(incomplete, dk, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "%volume")
}

func TestPlugin_SetModelRestoresSchema(t *testing.T) {
	dk, err := kitchen.New("BTCUSDT", kitchen.Config{}, nil)
	require.NoError(t, err)

	trained := newTestPlugin(nil)
	m, err := trained.Train(rawTrainingFrame(t, 40), "BTCUSDT", dk)
	require.NoError(t, err)

	// A fresh plugin with an installed model predicts without retraining.
	restored := newTestPlugin(nil)
	restored.SetModel(m, trained.FeatureList())

	probs, _, err := restored.Predict(rawTrainingFrame(t, 10), dk, false)
	require.NoError(t, err)
	assert.Equal(t, 10, probs.NumRows())
}

type recordingMetrics struct {
	trainCycles   int
	trainFailures int
	durations     int
	predictions   int
	predictFails  int
	evalLogLoss   float64
	bestIteration float64
}

func (r *recordingMetrics) TrainCyclesInc()                 { r.trainCycles++ }
func (r *recordingMetrics) TrainFailuresInc()               { r.trainFailures++ }
func (r *recordingMetrics) TrainDurationObserve(float64)    { r.durations++ }
func (r *recordingMetrics) PredictionsInc()                 { r.predictions++ }
func (r *recordingMetrics) PredictFailuresInc()             { r.predictFails++ }
func (r *recordingMetrics) EvalLogLossSet(v float64)        { r.evalLogLoss = v }
func (r *recordingMetrics) BestIterationSet(v float64)      { r.bestIteration = v }

func TestPlugin_MetricsBookkeeping(t *testing.T) {
	dk, err := kitchen.New("BTCUSDT", kitchen.Config{}, nil)
	require.NoError(t, err)

	rec := &recordingMetrics{}
	p := newTestPlugin(rec)

	_, _, err = p.Predict(rawTrainingFrame(t, 10), dk, true)
	require.Error(t, err)
	assert.Equal(t, 1, rec.predictFails)

	_, err = p.Train(rawTrainingFrame(t, 40), "BTCUSDT", dk)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.trainCycles)
	assert.Equal(t, 0, rec.trainFailures)
	assert.Equal(t, 1, rec.durations)
	assert.GreaterOrEqual(t, rec.bestIteration, 1.0)

	_, _, err = p.Predict(rawTrainingFrame(t, 10), dk, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.predictions)

	// Training failure path: a frame with no label column.
	broken := frame.New()
	require.NoError(t, broken.AddColumn("%x", []float64{1, 2, 3, 4}))
	_, err = p.Train(broken, "BTCUSDT", dk)
	require.Error(t, err)
	assert.Equal(t, 1, rec.trainFailures)
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	panic(fmt.Sprintf("class %q not found", want))
}
