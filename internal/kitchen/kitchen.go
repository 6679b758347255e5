package kitchen

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"litmus-ml/internal/frame"
)

// Column naming conventions inherited from the host framework: feature
// columns are prefixed "%", label columns "&".
const (
	FeaturePrefix = "%"
	LabelPrefix   = "&"
)

// Config holds the kitchen's partitioning knobs.
type Config struct {
	// SplitFraction is the share of rows (newest) assigned to the "test"
	// partition. Defaults to 0.25.
	SplitFraction float64
	// WeightFactor steers the exponential down-weighting of stale rows.
	// 0 disables weighting (every row weighs 1).
	WeightFactor float64
}

// Partition is a (train, test) pair of feature/label/weight triples split
// chronologically: "train" holds the older rows, "test" the most recent.
type Partition struct {
	TrainFeatures *frame.Frame
	TrainLabels   *frame.Labels
	TrainWeights  []float64
	TestFeatures  *frame.Frame
	TestLabels    *frame.Labels
	TestWeights   []float64
}

// Kitchen manages one pair's data preparation and per-pair state for one
// training/inference cycle. The orchestrator invokes one pair at a time, so
// no locking is needed.
type Kitchen struct {
	Pair string

	cfg   Config
	store *Store

	// Data is the pair's mutable key-value store; the normalizer records
	// its per-column parameters here.
	Data *PairData

	featureList []string
	labelList   []string
	doPredict   []int
}

// New builds a kitchen for one pair, loading any previously persisted
// parameter map. store may be nil for purely in-memory use (tests).
func New(pair string, cfg Config, store *Store) (*Kitchen, error) {
	if cfg.SplitFraction <= 0 || cfg.SplitFraction >= 1 {
		cfg.SplitFraction = 0.25
	}

	values := make(map[string]float64)
	if store != nil {
		loaded, err := store.LoadPairData(pair)
		if err != nil {
			return nil, err
		}
		values = loaded
	}

	return &Kitchen{
		Pair:  pair,
		cfg:   cfg,
		store: store,
		Data:  &PairData{values: values},
	}, nil
}

// FindFeatures records the feature and label column lists present in a raw
// frame, by prefix convention.
func (k *Kitchen) FindFeatures(raw *frame.Frame) {
	k.featureList = nil
	k.labelList = nil
	for _, name := range raw.Columns() {
		if strings.HasPrefix(name, FeaturePrefix) {
			k.featureList = append(k.featureList, name)
		}
	}
	for _, name := range raw.LabelColumns() {
		if strings.HasPrefix(name, LabelPrefix) {
			k.labelList = append(k.labelList, name)
		}
	}
}

// FeatureList returns the feature columns recorded by FindFeatures.
func (k *Kitchen) FeatureList() []string { return k.featureList }

// LabelList returns the label columns recorded by FindFeatures.
func (k *Kitchen) LabelList() []string { return k.labelList }

// FilterFeatures selects the requested feature columns (and, when training,
// label columns) from a raw frame and handles NaNs.
//
// With trainingFilter set, rows holding any NaN across features or labels
// are dropped entirely. With it unset every row is kept: NaN features are
// zeroed and the row is flagged 0 in the do-predict mask so downstream
// consumers know the prediction there is unreliable.
func (k *Kitchen) FilterFeatures(raw *frame.Frame, featureList, labelList []string, trainingFilter bool) (*frame.Frame, *frame.Labels, error) {
	if len(featureList) == 0 {
		return nil, nil, fmt.Errorf("kitchen: no feature columns requested")
	}
	features, err := raw.Select(featureList)
	if err != nil {
		return nil, nil, fmt.Errorf("kitchen: %w", err)
	}

	if trainingFilter {
		labels, err := labelsFromFrame(raw, labelList)
		if err != nil {
			return nil, nil, err
		}
		keep := make([]bool, features.NumRows())
		dropped := 0
		for i := range keep {
			keep[i] = !features.RowHasNaN(i) && !labelRowMissing(labels, i)
			if !keep[i] {
				dropped++
			}
		}
		features, err = features.FilterRows(keep)
		if err != nil {
			return nil, nil, err
		}
		labels, err = labels.FilterRows(keep)
		if err != nil {
			return nil, nil, err
		}
		if dropped > 0 {
			log.Debug().Str("pair", k.Pair).Int("dropped", dropped).Msg("dropped NaN rows from training data")
		}
		k.doPredict = nil
		return features, labels, nil
	}

	// Prediction path: zero-fill NaNs and mark those rows unreliable.
	k.doPredict = make([]int, features.NumRows())
	for i := range k.doPredict {
		if features.RowHasNaN(i) {
			k.doPredict[i] = 0
			for _, name := range features.Columns() {
				col, _ := features.Column(name)
				if math.IsNaN(col[i]) {
					col[i] = 0
				}
			}
		} else {
			k.doPredict[i] = 1
		}
	}
	return features, nil, nil
}

// MakeTrainTestDatasets splits features/labels chronologically: the oldest
// rows form the "train" partition, the newest SplitFraction of rows the
// "test" partition, each with exponential time-decay sample weights.
func (k *Kitchen) MakeTrainTestDatasets(features *frame.Frame, labels *frame.Labels) (*Partition, error) {
	n := features.NumRows()
	if n == 0 {
		return nil, fmt.Errorf("kitchen: no rows to split")
	}
	if labels == nil || labels.NumRows() != n {
		return nil, fmt.Errorf("kitchen: labels misaligned with features")
	}

	cut := n - int(float64(n)*k.cfg.SplitFraction)
	if cut <= 0 || cut >= n {
		return nil, fmt.Errorf("kitchen: split fraction %.2f leaves an empty partition for %d rows", k.cfg.SplitFraction, n)
	}

	weights := k.sampleWeights(n)

	trainF, err := features.SliceRows(0, cut)
	if err != nil {
		return nil, err
	}
	testF, err := features.SliceRows(cut, n)
	if err != nil {
		return nil, err
	}
	trainL, err := labels.SliceRows(0, cut)
	if err != nil {
		return nil, err
	}
	testL, err := labels.SliceRows(cut, n)
	if err != nil {
		return nil, err
	}

	return &Partition{
		TrainFeatures: trainF,
		TrainLabels:   trainL,
		TrainWeights:  weights[:cut],
		TestFeatures:  testF,
		TestLabels:    testL,
		TestWeights:   weights[cut:],
	}, nil
}

// DoPredict returns the reliability mask from the last prediction-path
// FilterFeatures call: 1 per trustworthy row, 0 where data was missing.
func (k *Kitchen) DoPredict() []int { return k.doPredict }

// Flush persists the pair's parameter map.
func (k *Kitchen) Flush() error {
	if k.store == nil {
		return nil
	}
	return k.store.SavePairData(k.Pair, k.Data.snapshot())
}

// sampleWeights down-weights stale observations exponentially; the newest
// row weighs 1, the oldest exp(-WeightFactor).
func (k *Kitchen) sampleWeights(n int) []float64 {
	w := make([]float64, n)
	if k.cfg.WeightFactor <= 0 || n < 2 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	for i := range w {
		age := float64(n-1-i) / float64(n-1)
		w[i] = math.Exp(-k.cfg.WeightFactor * age)
	}
	return w
}

func labelsFromFrame(raw *frame.Frame, labelList []string) (*frame.Labels, error) {
	if len(labelList) == 0 {
		return nil, fmt.Errorf("kitchen: no label columns requested")
	}
	labels := frame.NewLabels()
	for _, name := range labelList {
		col, ok := raw.LabelColumn(name)
		if !ok {
			return nil, fmt.Errorf("kitchen: missing label column %q", name)
		}
		if err := labels.AddColumn(name, col); err != nil {
			return nil, err
		}
	}
	return labels, nil
}

func labelRowMissing(labels *frame.Labels, i int) bool {
	for _, name := range labels.Columns() {
		col, _ := labels.Column(name)
		if col[i] == "" {
			return true
		}
	}
	return false
}

// PairData is the mutable per-pair key-value store handed to the normalizer.
// It implements norm.ParamStore; lifetime is scoped to one pair's cycle.
type PairData struct {
	values map[string]float64
}

// Get returns a stored parameter.
func (d *PairData) Get(key string) (float64, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Put records a parameter.
func (d *PairData) Put(key string, value float64) {
	d.values[key] = value
}

// Len returns the number of stored parameters.
func (d *PairData) Len() int { return len(d.values) }

func (d *PairData) snapshot() map[string]float64 {
	out := make(map[string]float64, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}
