package metrics

// Wrapper adapts Metrics to the plugin's MetricsInterface without the model
// package importing prometheus directly.
type Wrapper struct {
	m *Metrics
}

// NewWrapper wraps a Metrics set for the plugin.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) TrainCyclesInc()                { w.m.TrainCycles.Inc() }
func (w *Wrapper) TrainFailuresInc()              { w.m.TrainFailures.Inc() }
func (w *Wrapper) TrainDurationObserve(v float64) { w.m.TrainDuration.Observe(v) }
func (w *Wrapper) PredictionsInc()                { w.m.Predictions.Inc() }
func (w *Wrapper) PredictFailuresInc()            { w.m.PredictFailures.Inc() }
func (w *Wrapper) EvalLogLossSet(v float64)       { w.m.EvalLogLoss.Set(v) }
func (w *Wrapper) BestIterationSet(v float64)     { w.m.BestIteration.Set(v) }
