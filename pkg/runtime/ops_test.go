package runtime

import (
	"errors"
	"math"
	"testing"
)

func TestScalarArithmetic(t *testing.T) {
	cases := []struct {
		op   string
		a, b float64
		want float64
	}{
		{"+", 2, 3, 5},
		{"-", 2, 3, -1},
		{"*", 2, 3, 6},
		{"/", 7, 2, 3.5},
		{"\\", 2, 7, 3.5},
		{"^", 2, 10, 1024},
	}
	for _, tc := range cases {
		v, err := Apply(tc.op, NewNum(tc.a), NewNum(tc.b))
		if err != nil {
			t.Fatalf("Apply(%s) error: %v", tc.op, err)
		}
		if got := real(v.(*Num).V); got != tc.want {
			t.Fatalf("%v %s %v = %v, want %v", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestDivisionByZeroIsInf(t *testing.T) {
	v, err := Apply("/", NewNum(1), NewNum(0))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !math.IsInf(real(v.(*Num).V), 1) {
		t.Fatalf("1/0 = %v, want Inf", v.(*Num).V)
	}
}

func TestScalarBroadcast(t *testing.T) {
	a := grid23(t)
	v, err := Apply("+", a, NewNum(10))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	out := v.(*Array)
	if got, _ := out.At(2, 3); got != 16 {
		t.Fatalf("(A+10)(2,3) = %v, want 16", got)
	}
}

func TestElementwiseShapeMismatch(t *testing.T) {
	a := grid23(t)
	b := RowVector([]complex128{1, 2})
	_, err := Apply("+", a, b)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error = %v, want *DimensionError", err)
	}
}

func TestMatMul(t *testing.T) {
	a := mustFromRows(t, [][]complex128{{1, 2}, {3, 4}})
	b := mustFromRows(t, [][]complex128{{5, 6}, {7, 8}})
	v, err := Apply("*", a, b)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	out := v.(*Array)
	want := [][]complex128{{19, 22}, {43, 50}}
	for r := 1; r <= 2; r++ {
		for c := 1; c <= 2; c++ {
			got, _ := out.At(r, c)
			if got != want[r-1][c-1] {
				t.Fatalf("(A*B)(%d,%d) = %v, want %v", r, c, got, want[r-1][c-1])
			}
		}
	}
}

func TestMatMulInnerDimMismatch(t *testing.T) {
	a := grid23(t) // 2x3
	b := grid23(t) // 2x3
	_, err := Apply("*", a, b)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("error = %v, want *DimensionError", err)
	}
}

func TestVectorDotCollapsesToScalar(t *testing.T) {
	row := RowVector([]complex128{1, 2, 3})
	col := ColVector([]complex128{4, 5, 6})
	v, err := Apply("*", row, col)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	n, ok := v.(*Num)
	if !ok || n.V != 32 {
		t.Fatalf("dot product = %#v, want scalar 32", v)
	}
}

func TestSparseMatMulStaysSparse(t *testing.T) {
	a := Identity(3).ToSparse()
	b := grid23(t).Transpose(false).ToSparse() // 3x2
	v, err := Apply("*", a, b)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	out := v.(*Array)
	if !out.Sparse {
		t.Fatalf("sparse*sparse densified")
	}
	if got, _ := out.At(2, 2); got != 5 {
		t.Fatalf("(I*B)(2,2) = %v, want 5", got)
	}
}

func TestSparseAddStaysSparse(t *testing.T) {
	a := NewSparse(2, 2)
	a.setAt(0, 0, 1)
	b := NewSparse(2, 2)
	b.setAt(1, 1, 2)
	v, err := Apply("+", a, b)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	out := v.(*Array)
	if !out.Sparse || out.NNZ() != 2 {
		t.Fatalf("sparse add: Sparse=%v NNZ=%d, want sparse with 2 nonzeros", out.Sparse, out.NNZ())
	}
}

func TestMldivideSquare(t *testing.T) {
	a := mustFromRows(t, [][]complex128{{2, 0}, {0, 4}})
	b := ColVector([]complex128{6, 8})
	v, err := Apply("\\", a, b)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	x := v.(*Array).Flatten()
	if x[0] != 3 || x[1] != 2 {
		t.Fatalf("A\\b = %v, want [3 2]", x)
	}
}

func TestMldividePivots(t *testing.T) {
	// Leading zero forces a row swap.
	a := mustFromRows(t, [][]complex128{{0, 1}, {1, 0}})
	b := ColVector([]complex128{2, 3})
	v, err := Apply("\\", a, b)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	x := v.(*Array).Flatten()
	if x[0] != 3 || x[1] != 2 {
		t.Fatalf("A\\b = %v, want [3 2]", x)
	}
}

func TestMldivideLeastSquares(t *testing.T) {
	// Overdetermined: best fit of y = c over observations 1, 2, 3 is c = 2.
	a := ColVector([]complex128{1, 1, 1})
	b := ColVector([]complex128{1, 2, 3})
	v, err := Apply("\\", a, b)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	c, err := AsReal(v)
	if err != nil {
		t.Fatalf("AsReal error: %v", err)
	}
	if math.Abs(c-2) > 1e-9 {
		t.Fatalf("least squares fit = %v, want 2", c)
	}
}

func TestMldivideSingular(t *testing.T) {
	a := mustFromRows(t, [][]complex128{{1, 2}, {2, 4}})
	b := ColVector([]complex128{1, 2})
	_, err := Apply("\\", a, b)
	if err == nil {
		t.Fatalf("singular solve succeeded, want error")
	}
}

func TestMrdivide(t *testing.T) {
	// x * A = b with diagonal A.
	a := mustFromRows(t, [][]complex128{{2, 0}, {0, 4}})
	b := RowVector([]complex128{6, 8})
	v, err := Apply("/", b, a)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	x := asArray(v).Flatten()
	if x[0] != 3 || x[1] != 2 {
		t.Fatalf("b/A = %v, want [3 2]", x)
	}
}

func TestComparisonsAreLogical(t *testing.T) {
	a := RowVector([]complex128{1, 5, 3})
	v, err := Apply(">", a, NewNum(2))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	out := v.(*Array)
	if !out.Logical {
		t.Fatalf("comparison result not marked logical")
	}
	got := out.Flatten()
	if got[0] != 0 || got[1] != 1 || got[2] != 1 {
		t.Fatalf("A > 2 = %v, want [0 1 1]", got)
	}
}

func TestStringEquality(t *testing.T) {
	v, err := Apply("==", NewStr("on"), NewStr("on"))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if v.(*Num).V != 1 {
		t.Fatalf("'on' == 'on' = %v, want 1", v.(*Num).V)
	}
}

func TestStringConcat(t *testing.T) {
	v, err := Apply("+", NewStr("ab"), NewStr("cd"))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if v.(*Str).V != "abcd" {
		t.Fatalf("'ab' + 'cd' = %q, want abcd", v.(*Str).V)
	}
}

func TestComplexPromotion(t *testing.T) {
	v, err := Apply("^", NewNum(-1), NewNum(0.5))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	n := v.(*Num)
	if math.Abs(imag(n.V)-1) > 1e-12 {
		t.Fatalf("(-1)^0.5 = %v, want i", n.V)
	}
}

func TestMatrixPower(t *testing.T) {
	a := mustFromRows(t, [][]complex128{{1, 1}, {0, 1}})
	v, err := Apply("^", a, NewNum(3))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	out := v.(*Array)
	if got, _ := out.At(1, 2); got != 3 {
		t.Fatalf("(A^3)(1,2) = %v, want 3", got)
	}
}

func TestNotProducesLogical(t *testing.T) {
	v, err := Not(RowVector([]complex128{0, 2}))
	if err != nil {
		t.Fatalf("Not error: %v", err)
	}
	out := v.(*Array)
	if !out.Logical {
		t.Fatalf("negation result not logical")
	}
	got := out.Flatten()
	if got[0] != 1 || got[1] != 0 {
		t.Fatalf("~[0 2] = %v, want [1 0]", got)
	}
}

func TestIsTrue(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{NewNum(1), true},
		{NewNum(0), false},
		{NewStr(""), false},
		{NewStr("x"), true},
		{RowVector([]complex128{1, 1}), true},
		{RowVector([]complex128{1, 0}), false},
		{Empty(), false},
	}
	for _, tc := range cases {
		got, err := IsTrue(tc.v)
		if err != nil {
			t.Fatalf("IsTrue(%#v) error: %v", tc.v, err)
		}
		if got != tc.want {
			t.Fatalf("IsTrue(%#v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestDisplayScalar(t *testing.T) {
	if got := Display("x", NewNum(5)); got != "x = 5" {
		t.Fatalf("Display = %q, want %q", got, "x = 5")
	}
}

func TestDisplayComplex(t *testing.T) {
	if got := FormatScalar(complex(3, -4)); got != "3 - 4i" {
		t.Fatalf("FormatScalar = %q, want %q", got, "3 - 4i")
	}
}

func TestDisplayMatrixMultiline(t *testing.T) {
	a := mustFromRows(t, [][]complex128{{1, 2}, {3, 4}})
	got := Display("A", a)
	want := "A =\n   1   2\n   3   4"
	if got != want {
		t.Fatalf("Display = %q, want %q", got, want)
	}
}

func TestEqualValues(t *testing.T) {
	if !Equal(NewStr("a"), NewStr("a")) {
		t.Fatalf("Equal strings = false, want true")
	}
	if Equal(NewNum(1), NewStr("1")) {
		t.Fatalf("Equal across kinds = true, want false")
	}
	if !Equal(grid23(t), grid23(t)) {
		t.Fatalf("Equal same-shape arrays = false, want true")
	}
}
