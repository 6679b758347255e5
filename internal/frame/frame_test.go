package frame

import (
	"math"
	"testing"
)

func TestFrame_AddColumn(t *testing.T) {
	f := New()
	if err := f.AddColumn("a", []float64{1, 2, 3}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if err := f.AddColumn("a", []float64{4, 5, 6}); err == nil {
		t.Error("expected error for duplicate column name")
	}
	if err := f.AddColumn("b", []float64{1, 2}); err == nil {
		t.Error("expected error for row count mismatch")
	}
	if err := f.AddColumn("", []float64{1, 2, 3}); err == nil {
		t.Error("expected error for empty column name")
	}
	if f.NumRows() != 3 || f.NumCols() != 1 {
		t.Errorf("expected 3x1 frame, got %dx%d", f.NumRows(), f.NumCols())
	}
}

func TestFrame_ColumnOrderPreserved(t *testing.T) {
	f := New()
	names := []string{"z", "a", "m"}
	for _, n := range names {
		if err := f.AddColumn(n, []float64{1}); err != nil {
			t.Fatalf("AddColumn(%s): %v", n, err)
		}
	}
	got := f.Columns()
	for i, n := range names {
		if got[i] != n {
			t.Errorf("column %d: expected %s, got %s", i, n, got[i])
		}
	}
}

func TestFrame_Matrix(t *testing.T) {
	f := New()
	_ = f.AddColumn("a", []float64{1, 2})
	_ = f.AddColumn("b", []float64{3, 4})

	m := f.Matrix()
	if len(m) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m))
	}
	if m[0][0] != 1 || m[0][1] != 3 || m[1][0] != 2 || m[1][1] != 4 {
		t.Errorf("unexpected matrix layout: %v", m)
	}
}

func TestFrame_Select(t *testing.T) {
	f := New()
	_ = f.AddColumn("a", []float64{1, 2})
	_ = f.AddColumn("b", []float64{3, 4})

	sub, err := f.Select([]string{"b"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sub.NumCols() != 1 || !sub.HasColumn("b") {
		t.Error("Select did not keep the requested column")
	}

	// Selected columns are copies: mutating them must not touch the source.
	col, _ := sub.Column("b")
	col[0] = 99
	orig, _ := f.Column("b")
	if orig[0] != 3 {
		t.Error("Select aliased the source column")
	}

	if _, err := f.Select([]string{"missing"}); err == nil {
		t.Error("expected error for missing column")
	}
}

func TestFrame_RowHasNaN(t *testing.T) {
	f := New()
	_ = f.AddColumn("a", []float64{1, math.NaN(), 3})
	_ = f.AddColumn("b", []float64{4, 5, 6})

	want := []bool{false, true, false}
	for i, w := range want {
		if f.RowHasNaN(i) != w {
			t.Errorf("row %d: expected RowHasNaN=%v", i, w)
		}
	}
}

func TestFrame_SliceRows(t *testing.T) {
	f := New()
	_ = f.AddColumn("a", []float64{1, 2, 3, 4})

	s, err := f.SliceRows(1, 3)
	if err != nil {
		t.Fatalf("SliceRows failed: %v", err)
	}
	col, _ := s.Column("a")
	if len(col) != 2 || col[0] != 2 || col[1] != 3 {
		t.Errorf("unexpected slice: %v", col)
	}

	if _, err := f.SliceRows(2, 10); err == nil {
		t.Error("expected error for out-of-range slice")
	}
}

func TestFrame_LabelColumns(t *testing.T) {
	f := New()
	_ = f.AddColumn("a", []float64{1, 2})
	if err := f.AddLabelColumn("&trend", []string{"up", "down"}); err != nil {
		t.Fatalf("AddLabelColumn failed: %v", err)
	}
	if err := f.AddLabelColumn("&trend", []string{"x", "y"}); err == nil {
		t.Error("expected error for duplicate label column")
	}
	if err := f.AddLabelColumn("&other", []string{"x"}); err == nil {
		t.Error("expected error for label row count mismatch")
	}

	col, ok := f.LabelColumn("&trend")
	if !ok || col[0] != "up" {
		t.Error("LabelColumn did not return stored values")
	}
}

func TestAddColumnOf(t *testing.T) {
	f := New()
	if err := AddColumnOf(f, "ints", []int{1, 2, 3}); err != nil {
		t.Fatalf("AddColumnOf failed: %v", err)
	}
	col, _ := f.Column("ints")
	if col[2] != 3.0 {
		t.Errorf("expected converted value 3.0, got %v", col[2])
	}
}

func TestLabels_FirstAndFilter(t *testing.T) {
	l := NewLabels()
	if _, err := l.First(); err == nil {
		t.Error("expected error for empty labels")
	}
	_ = l.AddColumn("&trend", []string{"up", "down", "up"})

	first, err := l.First()
	if err != nil || len(first) != 3 {
		t.Fatalf("First failed: %v", err)
	}

	kept, err := l.FilterRows([]bool{true, false, true})
	if err != nil {
		t.Fatalf("FilterRows failed: %v", err)
	}
	col, _ := kept.Column("&trend")
	if len(col) != 2 || col[1] != "up" {
		t.Errorf("unexpected filtered labels: %v", col)
	}
}
