// Package boost implements a multi-class gradient-boosted-tree classifier
// with weighted fitting and early stopping against a held-out partition. It
// is the concrete implementation behind the plugin's opaque classifier
// handle; callers interact only with Fit and Model.PredictProba, so the
// algorithm can be swapped without touching the normalizer or orchestrator
// contracts.
package boost

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Config holds the boosting hyperparameters. Zero values fall back to the
// reference configuration via withDefaults.
type Config struct {
	Estimators     int     // maximum boosting rounds
	LearningRate   float64 // shrinkage applied to each tree's contribution
	MaxDepth       int     // maximum tree depth
	MinSamplesLeaf int     // minimum rows per leaf
	Lambda         float64 // L2 regularization on leaf values
	Patience       int     // early-stopping rounds without eval improvement
}

func (c Config) withDefaults() Config {
	if c.Estimators <= 0 {
		c.Estimators = 1000
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 6
	}
	if c.MinSamplesLeaf <= 0 {
		c.MinSamplesLeaf = 1
	}
	if c.Lambda <= 0 {
		c.Lambda = 1.0
	}
	if c.Patience <= 0 {
		c.Patience = 10
	}
	return c
}

// Model is a fitted classifier. It is immutable after Fit; retraining
// produces a new Model rather than mutating an existing one.
type Model struct {
	classes   []string
	nFeatures int
	base      []float64 // initial raw score per class (weighted log priors)
	trees     [][]*tree // [round][class]
	lr        float64

	bestIteration int
	evalLogLoss   float64
}

// Fit trains a fresh classifier on (trainX, trainY) with per-row weights,
// validating against (evalX, evalY) after every boosting round. Boosting
// stops once the eval log-loss has not improved for cfg.Patience rounds
// and the model is trimmed back to the best round.
func Fit(cfg Config, trainX [][]float64, trainY []string, weights []float64, evalX [][]float64, evalY []string) (*Model, error) {
	cfg = cfg.withDefaults()

	if len(trainX) == 0 {
		return nil, fmt.Errorf("boost: empty training set")
	}
	if len(trainY) != len(trainX) {
		return nil, fmt.Errorf("boost: %d feature rows but %d labels", len(trainX), len(trainY))
	}
	if weights == nil {
		weights = make([]float64, len(trainX))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(trainX) {
		return nil, fmt.Errorf("boost: %d feature rows but %d weights", len(trainX), len(weights))
	}
	if len(evalX) != len(evalY) {
		return nil, fmt.Errorf("boost: %d eval rows but %d eval labels", len(evalX), len(evalY))
	}
	nFeatures := len(trainX[0])
	for i, row := range trainX {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("boost: train row %d has %d features, expected %d", i, len(row), nFeatures)
		}
	}
	for i, row := range evalX {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("boost: eval row %d has %d features, expected %d", i, len(row), nFeatures)
		}
	}

	classes, classIdx := collectClasses(trainY)
	if len(classes) < 2 {
		return nil, fmt.Errorf("boost: need at least 2 label classes, got %d", len(classes))
	}
	k := len(classes)

	y := make([]int, len(trainY))
	for i, lab := range trainY {
		y[i] = classIdx[lab]
	}
	evalYIdx := make([]int, len(evalY))
	for i, lab := range evalY {
		ci, ok := classIdx[lab]
		if !ok {
			return nil, fmt.Errorf("boost: eval label %q not present in training labels", lab)
		}
		evalYIdx[i] = ci
	}

	m := &Model{
		classes:   classes,
		nFeatures: nFeatures,
		base:      basePriors(y, weights, k),
		lr:        cfg.LearningRate,
	}

	// Raw scores per row per class, kept incrementally for both partitions.
	trainF := initScores(len(trainX), m.base)
	evalF := initScores(len(evalX), m.base)

	idx := make([]int, len(trainX))
	for i := range idx {
		idx[i] = i
	}
	tp := treeParams{maxDepth: cfg.MaxDepth, minSamplesLeaf: cfg.MinSamplesLeaf, lambda: cfg.Lambda}

	grad := make([]float64, len(trainX))
	hess := make([]float64, len(trainX))
	probs := make([]float64, k)

	best := math.Inf(1)
	bestRound := 0
	sinceBest := 0

	for round := 0; round < cfg.Estimators; round++ {
		roundTrees := make([]*tree, k)
		for c := 0; c < k; c++ {
			for i := range trainX {
				softmaxInto(trainF[i], probs)
				target := 0.0
				if y[i] == c {
					target = 1.0
				}
				p := probs[c]
				grad[i] = weights[i] * (p - target)
				hess[i] = weights[i]*p*(1-p) + 1e-16
			}
			tr := fitTree(trainX, grad, hess, idx, tp)
			roundTrees[c] = tr
			for i := range trainX {
				trainF[i][c] += m.lr * tr.predict(trainX[i])
			}
			for i := range evalX {
				evalF[i][c] += m.lr * tr.predict(evalX[i])
			}
		}
		m.trees = append(m.trees, roundTrees)

		// Without an eval partition there is nothing to stop early on.
		if len(evalX) == 0 {
			continue
		}
		loss := logLoss(evalF, evalYIdx, k)
		if loss < best-1e-9 {
			best = loss
			bestRound = round + 1
			sinceBest = 0
		} else {
			sinceBest++
			if sinceBest >= cfg.Patience {
				break
			}
		}
	}

	if len(evalX) > 0 && bestRound < len(m.trees) {
		m.trees = m.trees[:bestRound]
	}
	m.bestIteration = len(m.trees)
	m.evalLogLoss = best
	if len(evalX) == 0 {
		m.evalLogLoss = math.NaN()
	}
	return m, nil
}

// PredictProba maps each row of X to a probability distribution over the
// classes seen at fit time, in Classes() order. The column count of X must
// exactly match the training schema.
func (m *Model) PredictProba(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != m.nFeatures {
			return nil, fmt.Errorf("boost: row %d has %d features, model expects %d", i, len(row), m.nFeatures)
		}
		f := make([]float64, len(m.classes))
		copy(f, m.base)
		for _, roundTrees := range m.trees {
			for c, tr := range roundTrees {
				f[c] += m.lr * tr.predict(row)
			}
		}
		p := make([]float64, len(m.classes))
		softmaxInto(f, p)
		out[i] = p
	}
	return out, nil
}

// Classes returns the class labels in probability-column order.
func (m *Model) Classes() []string {
	out := make([]string, len(m.classes))
	copy(out, m.classes)
	return out
}

// NumFeatures returns the input dimensionality the model was fitted on.
func (m *Model) NumFeatures() int { return m.nFeatures }

// BestIteration returns the boosting round count kept after early stopping.
func (m *Model) BestIteration() int { return m.bestIteration }

// EvalLogLoss returns the held-out log-loss at the best iteration.
func (m *Model) EvalLogLoss() float64 { return m.evalLogLoss }

func collectClasses(y []string) ([]string, map[string]int) {
	idx := make(map[string]int)
	var classes []string
	for _, lab := range y {
		if _, ok := idx[lab]; !ok {
			idx[lab] = len(classes)
			classes = append(classes, lab)
		}
	}
	return classes, idx
}

// basePriors returns per-class initial raw scores set to weighted log priors,
// so round zero already predicts the class distribution.
func basePriors(y []int, weights []float64, k int) []float64 {
	counts := make([]float64, k)
	for i, c := range y {
		counts[c] += weights[i]
	}
	total := floats.Sum(counts)
	base := make([]float64, k)
	for c := range base {
		p := counts[c] / total
		if p <= 0 {
			p = 1e-9
		}
		base[c] = math.Log(p)
	}
	return base
}

func initScores(n int, base []float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, len(base))
		copy(out[i], base)
	}
	return out
}

func softmaxInto(f, out []float64) {
	max := floats.Max(f)
	var sum float64
	for c, v := range f {
		out[c] = math.Exp(v - max)
		sum += out[c]
	}
	for c := range out {
		out[c] /= sum
	}
}

// logLoss is the unweighted multi-class log-loss over raw scores.
func logLoss(f [][]float64, y []int, k int) float64 {
	if len(f) == 0 {
		return math.Inf(1)
	}
	probs := make([]float64, k)
	var sum float64
	for i := range f {
		softmaxInto(f[i], probs)
		p := probs[y[i]]
		if p < 1e-15 {
			p = 1e-15
		}
		sum += -math.Log(p)
	}
	return sum / float64(len(f))
}

// modelState is the gob wire form of a fitted model.
type modelState struct {
	Classes       []string
	NFeatures     int
	Base          []float64
	Trees         [][]*tree
	LR            float64
	BestIteration int
	EvalLogLoss   float64
}

// MarshalBinary encodes the fitted model with gob for registry persistence.
func (m *Model) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(modelState{
		Classes:       m.classes,
		NFeatures:     m.nFeatures,
		Base:          m.base,
		Trees:         m.trees,
		LR:            m.lr,
		BestIteration: m.bestIteration,
		EvalLogLoss:   m.evalLogLoss,
	})
	if err != nil {
		return nil, fmt.Errorf("boost: encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a model encoded by MarshalBinary.
func (m *Model) UnmarshalBinary(data []byte) error {
	var st modelState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("boost: decode model: %w", err)
	}
	m.classes = st.Classes
	m.nFeatures = st.NFeatures
	m.base = st.Base
	m.trees = st.Trees
	m.lr = st.LR
	m.bestIteration = st.BestIteration
	m.evalLogLoss = st.EvalLogLoss
	return nil
}
