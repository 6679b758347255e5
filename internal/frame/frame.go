// Package frame provides the column-oriented numeric dataframe used as the
// exchange format between the data kitchen, the normalizer and the classifier.
// A Frame is an ordered set of named float64 columns aligned by row; rows are
// temporally ordered (oldest first) and column names are unique.
package frame

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Number covers the numeric column types a Frame accepts on ingestion.
type Number interface {
	constraints.Integer | constraints.Float
}

// Frame is a column-major matrix with named columns. A raw frame coming out
// of the feed additionally carries discrete-class label columns alongside
// the numeric ones, mirroring the host framework's single-dataframe shape.
type Frame struct {
	names []string
	index map[string]int
	cols  [][]float64
	rows  int

	labelNames []string
	labelIndex map[string]int
	labelCols  [][]string
}

// New returns an empty Frame.
func New() *Frame {
	return &Frame{index: make(map[string]int), labelIndex: make(map[string]int)}
}

// AddColumn appends a named float64 column. The first column fixes the row
// count; later columns must match it. Duplicate names are rejected.
func (f *Frame) AddColumn(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("frame: empty column name")
	}
	if _, ok := f.index[name]; ok {
		return fmt.Errorf("frame: duplicate column %q", name)
	}
	if len(f.cols) > 0 && len(values) != f.rows {
		return fmt.Errorf("frame: column %q has %d rows, frame has %d", name, len(values), f.rows)
	}
	if len(f.cols) == 0 {
		f.rows = len(values)
	}
	f.index[name] = len(f.cols)
	f.names = append(f.names, name)
	f.cols = append(f.cols, values)
	return nil
}

// AddColumnOf converts any numeric slice to float64 and appends it.
func AddColumnOf[V Number](f *Frame, name string, values []V) error {
	conv := make([]float64, len(values))
	for i, v := range values {
		conv[i] = float64(v)
	}
	return f.AddColumn(name, conv)
}

// AddLabelColumn appends a named discrete-class column. Missing classes are
// represented by the empty string. Label columns share the frame's row count.
func (f *Frame) AddLabelColumn(name string, values []string) error {
	if name == "" {
		return fmt.Errorf("frame: empty label column name")
	}
	if _, ok := f.labelIndex[name]; ok {
		return fmt.Errorf("frame: duplicate label column %q", name)
	}
	if (len(f.cols) > 0 || len(f.labelCols) > 0) && len(values) != f.rows {
		return fmt.Errorf("frame: label column %q has %d rows, frame has %d", name, len(values), f.rows)
	}
	if len(f.cols) == 0 && len(f.labelCols) == 0 {
		f.rows = len(values)
	}
	f.labelIndex[name] = len(f.labelCols)
	f.labelNames = append(f.labelNames, name)
	f.labelCols = append(f.labelCols, values)
	return nil
}

// LabelColumn returns the values of a named label column.
func (f *Frame) LabelColumn(name string) ([]string, bool) {
	i, ok := f.labelIndex[name]
	if !ok {
		return nil, false
	}
	return f.labelCols[i], true
}

// LabelColumns returns the label column names in insertion order.
func (f *Frame) LabelColumns() []string {
	out := make([]string, len(f.labelNames))
	copy(out, f.labelNames)
	return out
}

// Column returns the backing slice for a named column. Mutating the returned
// slice mutates the frame; the normalizer relies on this for in-place scaling.
func (f *Frame) Column(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// HasColumn reports whether a named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Row copies row i across all columns, in column order.
func (f *Frame) Row(i int) []float64 {
	out := make([]float64, len(f.cols))
	for j, col := range f.cols {
		out[j] = col[i]
	}
	return out
}

// Matrix returns a row-major copy of the frame, the layout the classifier
// consumes. Column order matches Columns().
func (f *Frame) Matrix() [][]float64 {
	out := make([][]float64, f.rows)
	for i := range out {
		out[i] = f.Row(i)
	}
	return out
}

// Select returns a new Frame holding copies of the named columns, in the
// given order. Missing columns are an error.
func (f *Frame) Select(names []string) (*Frame, error) {
	out := New()
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("frame: missing column %q", name)
		}
		cp := make([]float64, len(col))
		copy(cp, col)
		if err := out.AddColumn(name, cp); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	out, _ := f.Select(f.names)
	return out
}

// RowHasNaN reports whether any column holds a NaN at row i.
func (f *Frame) RowHasNaN(i int) bool {
	for _, col := range f.cols {
		if math.IsNaN(col[i]) {
			return true
		}
	}
	return false
}

// FilterRows returns a new Frame keeping only rows where keep[i] is true.
func (f *Frame) FilterRows(keep []bool) (*Frame, error) {
	if len(keep) != f.rows {
		return nil, fmt.Errorf("frame: keep mask has %d entries, frame has %d rows", len(keep), f.rows)
	}
	out := New()
	for j, name := range f.names {
		var vals []float64
		for i, k := range keep {
			if k {
				vals = append(vals, f.cols[j][i])
			}
		}
		if err := out.AddColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SliceRows returns a new Frame with rows [from, to).
func (f *Frame) SliceRows(from, to int) (*Frame, error) {
	if from < 0 || to > f.rows || from > to {
		return nil, fmt.Errorf("frame: slice [%d,%d) out of range for %d rows", from, to, f.rows)
	}
	out := New()
	for j, name := range f.names {
		vals := make([]float64, to-from)
		copy(vals, f.cols[j][from:to])
		if err := out.AddColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}
