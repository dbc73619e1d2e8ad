package runtime

import (
	"errors"
	"testing"
)

func mustFromRows(t *testing.T, rows [][]complex128) *Array {
	t.Helper()
	a, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows returned error: %v", err)
	}
	return a
}

func grid23(t *testing.T) *Array {
	// [1 2 3; 4 5 6]
	return mustFromRows(t, [][]complex128{{1, 2, 3}, {4, 5, 6}})
}

func TestFlattenIsColumnMajor(t *testing.T) {
	a := grid23(t)
	want := []complex128{1, 4, 2, 5, 3, 6}
	got := a.Flatten()
	if len(got) != len(want) {
		t.Fatalf("Flatten length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Flatten()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAtLinearWalksColumns(t *testing.T) {
	a := grid23(t)
	v, err := a.AtLinear(2)
	if err != nil {
		t.Fatalf("AtLinear(2) error: %v", err)
	}
	if v != 4 {
		t.Fatalf("AtLinear(2) = %v, want 4 (column-major)", v)
	}
}

func TestAtOutOfRange(t *testing.T) {
	a := grid23(t)
	_, err := a.At(3, 1)
	var idxErr *IndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("error = %v, want *IndexError", err)
	}
}

func TestRaggedRowsRejected(t *testing.T) {
	_, err := FromRows([][]complex128{{1, 2}, {3}})
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error = %v, want *DimensionError", err)
	}
}

func TestRangeEager(t *testing.T) {
	r := NewRange(1, 1, 5)
	if rows, cols := r.Dims(); rows != 1 || cols != 5 {
		t.Fatalf("range dims = %dx%d, want 1x5", rows, cols)
	}
}

func TestRangeFractionalStepHitsEndpoint(t *testing.T) {
	r := NewRange(0, 0.1, 1)
	if r.NumEl() != 11 {
		t.Fatalf("numel(0:0.1:1) = %d, want 11", r.NumEl())
	}
	last := r.Flatten()[10]
	if real(last) < 0.999 || real(last) > 1.001 {
		t.Fatalf("last element = %v, want 1", last)
	}
}

func TestRangeEmptyWhenUnreachable(t *testing.T) {
	if r := NewRange(5, 1, 1); !r.IsEmpty() {
		t.Fatalf("5:1 = %v, want empty", r.Flatten())
	}
}

func TestTransposeConjugates(t *testing.T) {
	a := mustFromRows(t, [][]complex128{{complex(1, 2)}})
	b := a.Transpose(true)
	if got := b.Flatten()[0]; got != complex(1, -2) {
		t.Fatalf("conjugate transpose = %v, want 1-2i", got)
	}
	c := a.Transpose(false)
	if got := c.Flatten()[0]; got != complex(1, 2) {
		t.Fatalf("plain transpose = %v, want 1+2i", got)
	}
}

func TestReshapeKeepsColumnOrder(t *testing.T) {
	a := grid23(t)
	b, err := a.Reshape(3, 2)
	if err != nil {
		t.Fatalf("Reshape error: %v", err)
	}
	// Column-major sequence 1 4 2 5 3 6 refilled into 3x2.
	v, _ := b.At(1, 2)
	if v != 5 {
		t.Fatalf("reshaped (1,2) = %v, want 5", v)
	}
}

func TestSparseRoundTrip(t *testing.T) {
	a := grid23(t)
	s := a.ToSparse()
	if !s.Sparse {
		t.Fatalf("ToSparse did not mark Sparse")
	}
	d := s.ToDense()
	for i, v := range d.Flatten() {
		if v != a.Flatten()[i] {
			t.Fatalf("round-trip element %d = %v, want %v", i, v, a.Flatten()[i])
		}
	}
}

func TestSparseNNZ(t *testing.T) {
	s := NewSparse(3, 3)
	s.setAt(0, 0, 2)
	s.setAt(2, 1, 7)
	if s.NNZ() != 2 {
		t.Fatalf("NNZ = %d, want 2", s.NNZ())
	}
	s.setAt(0, 0, 0)
	if s.NNZ() != 1 {
		t.Fatalf("NNZ after zeroing = %d, want 1 (zeros are not stored)", s.NNZ())
	}
}

func TestCopyIsIndependent(t *testing.T) {
	a := grid23(t)
	b := a.Copy().(*Array)
	b.setAt(0, 0, 99)
	if v, _ := a.At(1, 1); v != 1 {
		t.Fatalf("original mutated through copy: (1,1) = %v", v)
	}
}

func TestHCat(t *testing.T) {
	left := mustFromRows(t, [][]complex128{{1}, {2}})
	right := mustFromRows(t, [][]complex128{{3}, {4}})
	joined, err := HCat(left, right)
	if err != nil {
		t.Fatalf("HCat error: %v", err)
	}
	if rows, cols := joined.Dims(); rows != 2 || cols != 2 {
		t.Fatalf("HCat dims = %dx%d, want 2x2", rows, cols)
	}
	if v, _ := joined.At(1, 2); v != 3 {
		t.Fatalf("HCat (1,2) = %v, want 3", v)
	}
}

func TestVCatDimensionMismatch(t *testing.T) {
	top := mustFromRows(t, [][]complex128{{1, 2}})
	bottom := mustFromRows(t, [][]complex128{{3}})
	_, err := VCat(top, bottom)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error = %v, want *DimensionError", err)
	}
}

func TestCatDropsEmptyParts(t *testing.T) {
	joined, err := HCat(Empty(), RowVector([]complex128{1, 2}))
	if err != nil {
		t.Fatalf("HCat error: %v", err)
	}
	if joined.NumEl() != 2 {
		t.Fatalf("numel = %d, want 2 ([] vanishes in concatenation)", joined.NumEl())
	}
}
