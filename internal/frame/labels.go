package frame

import "fmt"

// Labels holds one or more named discrete-class columns aligned row-wise
// with a Frame. Class values are strings from a small fixed enumeration.
type Labels struct {
	names []string
	index map[string]int
	cols  [][]string
	rows  int
}

// NewLabels returns an empty Labels set.
func NewLabels() *Labels {
	return &Labels{index: make(map[string]int)}
}

// AddColumn appends a named class column, enforcing row alignment.
func (l *Labels) AddColumn(name string, values []string) error {
	if name == "" {
		return fmt.Errorf("labels: empty column name")
	}
	if _, ok := l.index[name]; ok {
		return fmt.Errorf("labels: duplicate column %q", name)
	}
	if len(l.cols) > 0 && len(values) != l.rows {
		return fmt.Errorf("labels: column %q has %d rows, labels have %d", name, len(values), l.rows)
	}
	if len(l.cols) == 0 {
		l.rows = len(values)
	}
	l.index[name] = len(l.cols)
	l.names = append(l.names, name)
	l.cols = append(l.cols, values)
	return nil
}

// Column returns the values of a named label column.
func (l *Labels) Column(name string) ([]string, bool) {
	i, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return l.cols[i], true
}

// Columns returns the label column names in insertion order.
func (l *Labels) Columns() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// First returns the first label column, the one the classifier fits on.
func (l *Labels) First() ([]string, error) {
	if len(l.cols) == 0 {
		return nil, fmt.Errorf("labels: no label columns")
	}
	return l.cols[0], nil
}

// NumRows returns the row count.
func (l *Labels) NumRows() int { return l.rows }

// NumCols returns the label column count.
func (l *Labels) NumCols() int { return len(l.cols) }

// FilterRows returns a new Labels keeping only rows where keep[i] is true.
func (l *Labels) FilterRows(keep []bool) (*Labels, error) {
	if len(keep) != l.rows {
		return nil, fmt.Errorf("labels: keep mask has %d entries, labels have %d rows", len(keep), l.rows)
	}
	out := NewLabels()
	for j, name := range l.names {
		var vals []string
		for i, k := range keep {
			if k {
				vals = append(vals, l.cols[j][i])
			}
		}
		if err := out.AddColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SliceRows returns a new Labels with rows [from, to).
func (l *Labels) SliceRows(from, to int) (*Labels, error) {
	if from < 0 || to > l.rows || from > to {
		return nil, fmt.Errorf("labels: slice [%d,%d) out of range for %d rows", from, to, l.rows)
	}
	out := NewLabels()
	for j, name := range l.names {
		vals := make([]string, to-from)
		copy(vals, l.cols[j][from:to])
		if err := out.AddColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}
