// Package model implements the prediction-model plugin: the train, fit and
// predict hooks the host orchestrator drives per trading pair. The plugin
// owns nothing but the fitted classifier; feature filtering, partitioning
// and parameter persistence belong to the data kitchen it calls into.
package model

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"litmus-ml/internal/boost"
	"litmus-ml/internal/frame"
	"litmus-ml/internal/kitchen"
	"litmus-ml/internal/norm"
)

// MetricsInterface defines the metrics methods the plugin reports to.
type MetricsInterface interface {
	TrainCyclesInc()
	TrainFailuresInc()
	TrainDurationObserve(float64)
	PredictionsInc()
	PredictFailuresInc()
	EvalLogLossSet(float64)
	BestIterationSet(float64)
}

// Trainer is the narrow surface the orchestrator depends on.
type Trainer interface {
	Train(raw *frame.Frame, pair string, dk *kitchen.Kitchen) (*boost.Model, error)
	Predict(raw *frame.Frame, dk *kitchen.Kitchen, first bool) (*frame.Frame, []int, error)
}

// Plugin holds the classifier configuration and, after a Train call, the
// fitted model used by Predict. One Plugin instance serves one pair's cycle.
type Plugin struct {
	cfg     boost.Config
	metrics MetricsInterface
	model   *boost.Model

	// featureList is the ordered column schema the model was fitted on;
	// Predict selects columns in exactly this order.
	featureList []string
}

// New returns a plugin with the given boosting configuration. metrics may
// be nil.
func New(cfg boost.Config, metrics MetricsInterface) *Plugin {
	return &Plugin{cfg: cfg, metrics: metrics}
}

// SetModel installs a previously fitted classifier together with its ordered
// feature schema, e.g. one restored from the model registry after a restart.
func (p *Plugin) SetModel(m *boost.Model, featureList []string) {
	p.model = m
	p.featureList = featureList
}

// Model returns the currently fitted classifier, nil before training.
func (p *Plugin) Model() *boost.Model { return p.model }

// Train filters the raw training data, splits it, normalizes it while
// recording scaling parameters into the kitchen's store, and fits a fresh
// classifier. The returned model supersedes any previous one.
func (p *Plugin) Train(raw *frame.Frame, pair string, dk *kitchen.Kitchen) (*boost.Model, error) {
	start := time.Now()
	log.Info().Str("pair", pair).Msg("-------------------- starting training --------------------")

	model, err := p.train(raw, pair, dk)

	if p.metrics != nil {
		p.metrics.TrainDurationObserve(time.Since(start).Seconds())
		if err != nil {
			p.metrics.TrainFailuresInc()
		} else {
			p.metrics.TrainCyclesInc()
			p.metrics.EvalLogLossSet(model.EvalLogLoss())
			p.metrics.BestIterationSet(float64(model.BestIteration()))
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("pair", pair).Dur("elapsed", time.Since(start)).Msg("-------------------- done training --------------------")
	return model, nil
}

func (p *Plugin) train(raw *frame.Frame, pair string, dk *kitchen.Kitchen) (*boost.Model, error) {
	dk.FindFeatures(raw)

	features, labels, err := dk.FilterFeatures(raw, dk.FeatureList(), dk.LabelList(), true)
	if err != nil {
		return nil, fmt.Errorf("filter training features: %w", err)
	}

	part, err := dk.MakeTrainTestDatasets(features, labels)
	if err != nil {
		return nil, fmt.Errorf("split datasets: %w", err)
	}

	if err := norm.FitTransform(part.TrainFeatures, part.TestFeatures, dk.Data); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	log.Info().
		Str("pair", pair).
		Int("features", part.TrainFeatures.NumCols()).
		Int("data_points", part.TrainFeatures.NumRows()).
		Msg("training model")

	model, err := p.fit(part)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	p.model = model
	p.featureList = part.TrainFeatures.Columns()
	return model, nil
}

// FeatureList returns the ordered schema of the fitted model.
func (p *Plugin) FeatureList() []string { return p.featureList }

// fit trains the classifier on the partition pair. By the fitOnRecent
// policy the "test" partition (most recent rows) is what is fit on, with
// its sample weights, while the older "train" partition serves as the
// early-stopping evaluation set.
func (p *Plugin) fit(part *kitchen.Partition) (*boost.Model, error) {
	if part.TrainLabels.NumCols() > 1 {
		log.Warn().Int("label_columns", part.TrainLabels.NumCols()).Msg("multiple label columns present, fitting on the first only")
	}

	evalY, err := part.TrainLabels.First()
	if err != nil {
		return nil, err
	}
	fitY, err := part.TestLabels.First()
	if err != nil {
		return nil, err
	}

	return boost.Fit(
		p.cfg,
		part.TestFeatures.Matrix(), fitY, part.TestWeights,
		part.TrainFeatures.Matrix(), evalY,
	)
}

// Predict filters the raw features, rescales them with the parameters
// recorded at training time, and maps each row to a probability
// distribution over the classes seen at fit time. The returned frame has
// one column per class label; the mask flags rows the kitchen found
// unreliable.
func (p *Plugin) Predict(raw *frame.Frame, dk *kitchen.Kitchen, first bool) (*frame.Frame, []int, error) {
	probs, mask, err := p.predict(raw, dk)
	if p.metrics != nil {
		if err != nil {
			p.metrics.PredictFailuresInc()
		} else {
			p.metrics.PredictionsInc()
		}
	}
	return probs, mask, err
}

func (p *Plugin) predict(raw *frame.Frame, dk *kitchen.Kitchen) (*frame.Frame, []int, error) {
	if p.model == nil {
		return nil, nil, fmt.Errorf("model: predict before train for pair %s", dk.Pair)
	}

	dk.FindFeatures(raw)
	featureList := p.featureList
	if len(featureList) == 0 {
		featureList = dk.FeatureList()
	}
	filtered, _, err := dk.FilterFeatures(raw, featureList, nil, false)
	if err != nil {
		return nil, nil, fmt.Errorf("filter prediction features: %w", err)
	}

	if err := norm.Apply(filtered, dk.Data); err != nil {
		return nil, nil, fmt.Errorf("apply normalization: %w", err)
	}

	predictions, err := p.model.PredictProba(filtered.Matrix())
	if err != nil {
		return nil, nil, fmt.Errorf("predict: %w", err)
	}

	classes := p.model.Classes()
	probFrame := frame.New()
	for c, class := range classes {
		col := make([]float64, len(predictions))
		for i := range predictions {
			col[i] = predictions[i][c]
		}
		if err := probFrame.AddColumn(class, col); err != nil {
			return nil, nil, err
		}
	}

	log.Debug().
		Str("pair", dk.Pair).
		Int("rows", probFrame.NumRows()).
		Strs("classes", classes).
		Msg("prediction complete")

	return probFrame, dk.DoPredict(), nil
}
