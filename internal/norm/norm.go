// Package norm rescales feature columns into [-1, 1] using statistics taken
// from the training partition only, and replays those statistics on unseen
// data. The per-column (min, max) pairs are persisted in an externally owned
// key-value store under "<column>_min" / "<column>_max" so a later inference
// call scales with the exact parameters the model was trained against.
package norm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"litmus-ml/internal/frame"
)

// ParamStore is the per-pair key-value store owned by the data kitchen.
// Ownership and lifetime are scoped to one pair's training cycle.
type ParamStore interface {
	Get(key string) (float64, bool)
	Put(key string, value float64)
}

// FitTransform computes per-column (min, max) over the train frame, rescales
// every value v in both frames via 2*(v-min)/(max-min) - 1, and records the
// parameters in store. The train frame maps exactly onto [-1, 1]; the test
// frame is scaled with the same parameters and may fall outside that range.
//
// Columns where max == min carry no information for this cycle; every value
// in such a column maps to 0 rather than dividing by zero.
func FitTransform(train, test *frame.Frame, store ParamStore) error {
	if train == nil || train.NumRows() == 0 {
		return fmt.Errorf("norm: train frame is empty")
	}
	if train.NumCols() == 0 {
		return fmt.Errorf("norm: train frame has no columns")
	}

	for _, name := range train.Columns() {
		col, _ := train.Column(name)
		lo := floats.Min(col)
		hi := floats.Max(col)
		if math.IsNaN(lo) || math.IsNaN(hi) {
			return fmt.Errorf("norm: column %q contains NaN", name)
		}

		store.Put(name+"_min", lo)
		store.Put(name+"_max", hi)

		scaleColumn(col, lo, hi)
		if test != nil {
			if tcol, ok := test.Column(name); ok {
				scaleColumn(tcol, lo, hi)
			}
		}
	}
	return nil
}

// Apply rescales every column of f using previously persisted parameters.
// A column whose parameters are missing from the store is a hard error:
// predicting with partial scaling silently corrupts the model input.
func Apply(f *frame.Frame, store ParamStore) error {
	if f == nil || f.NumCols() == 0 {
		return fmt.Errorf("norm: frame has no columns")
	}
	for _, name := range f.Columns() {
		lo, ok := store.Get(name + "_min")
		if !ok {
			return fmt.Errorf("norm: no stored min for column %q", name)
		}
		hi, ok := store.Get(name + "_max")
		if !ok {
			return fmt.Errorf("norm: no stored max for column %q", name)
		}
		col, _ := f.Column(name)
		scaleColumn(col, lo, hi)
	}
	return nil
}

func scaleColumn(col []float64, lo, hi float64) {
	width := hi - lo
	if width == 0 {
		for i := range col {
			col[i] = 0
		}
		return
	}
	for i := range col {
		col[i] = 2*(col[i]-lo)/width - 1
	}
}
