package runtime

import (
	"math"
	"math/cmplx"
	"sort"
)

// Array is an N-dimensional numeric array. Dense storage is a column-major
// complex slice; sparse storage is always 2-D and keeps only nonzeros keyed
// by (row, col). Vectors are 1xN or Nx1 matrices; there is no separate
// vector type. Arrays of rank three and above carry the full dimension list
// in nd; rows and cols then hold the folded 2-D view (first dimension by
// everything else), which is what linear indexing and column iteration see.
type Array struct {
	rows, cols int
	nd         []int                   // full dims when rank > 2, nil for matrices
	data       []complex128            // dense, len rows*cols, column-major
	nz         map[[2]int]complex128   // sparse, 0-based keys
	Sparse     bool
	Logical    bool
}

func (Array) Kind() Kind { return KindArray }

func (a *Array) Copy() Value {
	out := &Array{rows: a.rows, cols: a.cols, Sparse: a.Sparse, Logical: a.Logical}
	if a.nd != nil {
		out.nd = append([]int(nil), a.nd...)
	}
	if a.Sparse {
		out.nz = make(map[[2]int]complex128, len(a.nz))
		for k, v := range a.nz {
			out.nz[k] = v
		}
	} else {
		out.data = append([]complex128(nil), a.data...)
	}
	return out
}

// Dims returns (rows, cols); arrays of higher rank report the folded view.
func (a *Array) Dims() (int, int) { return a.rows, a.cols }

// Shape returns the full dimension list.
func (a *Array) Shape() []int {
	if a.nd != nil {
		return append([]int(nil), a.nd...)
	}
	return []int{a.rows, a.cols}
}

// NDims reports the rank; matrices and vectors are rank 2.
func (a *Array) NDims() int {
	if a.nd != nil {
		return len(a.nd)
	}
	return 2
}

// NumEl returns rows*cols.
func (a *Array) NumEl() int { return a.rows * a.cols }

// IsVector reports a single row or column.
func (a *Array) IsVector() bool { return a.rows == 1 || a.cols == 1 }

// IsEmpty reports a zero-element array.
func (a *Array) IsEmpty() bool { return a.NumEl() == 0 }

//-----------------------------------------------------------------------------
// Constructors
//-----------------------------------------------------------------------------

// NewDense allocates a zero-filled rows x cols dense array.
func NewDense(rows, cols int) *Array {
	return &Array{rows: rows, cols: cols, data: make([]complex128, rows*cols)}
}

// NewDenseND allocates a zero-filled dense array with the given dimension
// list. Trailing singleton dimensions collapse, so the rank never exceeds
// what the data needs.
func NewDenseND(dims []int) *Array {
	dims = trimDims(dims)
	cols := 1
	for _, d := range dims[1:] {
		cols *= d
	}
	a := &Array{rows: dims[0], cols: cols, data: make([]complex128, dims[0]*cols)}
	if len(dims) > 2 {
		a.nd = dims
	}
	return a
}

// trimDims drops trailing singleton dimensions down to rank 2.
func trimDims(dims []int) []int {
	out := append([]int(nil), dims...)
	for len(out) > 2 && out[len(out)-1] == 1 {
		out = out[:len(out)-1]
	}
	for len(out) < 2 {
		out = append(out, 1)
	}
	return out
}

// NewSparse allocates an empty rows x cols sparse array.
func NewSparse(rows, cols int) *Array {
	return &Array{rows: rows, cols: cols, nz: map[[2]int]complex128{}, Sparse: true}
}

// Empty is the 0x0 array.
func Empty() *Array { return NewDense(0, 0) }

// FromRows builds a dense array from row-major input rows, the shape a
// bracket literal produces.
func FromRows(rows [][]complex128) (*Array, error) {
	if len(rows) == 0 {
		return Empty(), nil
	}
	cols := len(rows[0])
	for _, r := range rows {
		if len(r) != cols {
			return nil, dimErrorf("Dimensions of arrays being concatenated are not consistent")
		}
	}
	a := NewDense(len(rows), cols)
	for i, r := range rows {
		for j, v := range r {
			a.data[j*a.rows+i] = v
		}
	}
	return a, nil
}

// RowVector builds a 1xN dense array.
func RowVector(vals []complex128) *Array {
	a := NewDense(1, len(vals))
	copy(a.data, vals)
	return a
}

// ColVector builds an Nx1 dense array.
func ColVector(vals []complex128) *Array {
	a := NewDense(len(vals), 1)
	copy(a.data, vals)
	return a
}

// Scalar1x1 wraps a scalar as a 1x1 array.
func Scalar1x1(v complex128) *Array {
	a := NewDense(1, 1)
	a.data[0] = v
	return a
}

// ToArray coerces a value to an array: scalars become 1x1, strings their
// character-code row vector.
func ToArray(v Value) (*Array, error) {
	switch val := v.(type) {
	case *Array:
		return val, nil
	case *Num:
		return Scalar1x1(val.V), nil
	case *Str:
		return strChars(val.V), nil
	default:
		return nil, typeErrorf("Cannot convert %s to a numeric array", v.Kind())
	}
}

// NewRange materializes `start:step:stop` eagerly as a row vector, empty
// when the step cannot reach stop. The endpoint tolerance absorbs float
// accumulation in fractional steps.
func NewRange(start, step, stop float64) *Array {
	if step == 0 {
		return Empty()
	}
	span := (stop - start) / step
	if span < 0 {
		return Empty()
	}
	n := int(math.Floor(span+1e-10)) + 1
	vals := make([]complex128, n)
	for i := 0; i < n; i++ {
		vals[i] = complex(start+float64(i)*step, 0)
	}
	return RowVector(vals)
}

//-----------------------------------------------------------------------------
// Element access (0-based internal, bounds-checked)
//-----------------------------------------------------------------------------

func (a *Array) at(r, c int) complex128 {
	if a.Sparse {
		return a.nz[[2]int{r, c}]
	}
	return a.data[c*a.rows+r]
}

func (a *Array) setAt(r, c int, v complex128) {
	if a.Sparse {
		if v == 0 {
			delete(a.nz, [2]int{r, c})
		} else {
			a.nz[[2]int{r, c}] = v
		}
		return
	}
	a.data[c*a.rows+r] = v
}

// At returns the element at 1-based (row, col).
func (a *Array) At(row, col int) (complex128, error) {
	if row < 1 || row > a.rows || col < 1 || col > a.cols {
		return 0, indexErrorf("Index exceeds matrix dimensions")
	}
	return a.at(row-1, col-1), nil
}

// AtLinear returns the element at a 1-based column-major linear index.
func (a *Array) AtLinear(idx int) (complex128, error) {
	if idx < 1 || idx > a.NumEl() {
		return 0, indexErrorf("Index exceeds the number of array elements")
	}
	idx--
	return a.at(idx%a.rows, idx/a.rows), nil
}

// Flatten returns all elements in column-major order. Sparse arrays
// densify.
func (a *Array) Flatten() []complex128 {
	if !a.Sparse {
		return append([]complex128(nil), a.data...)
	}
	out := make([]complex128, a.NumEl())
	for k, v := range a.nz {
		out[k[1]*a.rows+k[0]] = v
	}
	return out
}

// ToDense returns a dense copy; dense input copies unchanged.
func (a *Array) ToDense() *Array {
	if !a.Sparse {
		return a.Copy().(*Array)
	}
	out := NewDense(a.rows, a.cols)
	for k, v := range a.nz {
		out.data[k[1]*a.rows+k[0]] = v
	}
	out.Logical = a.Logical
	return out
}

// ToSparse returns a sparse copy; sparse input copies unchanged.
func (a *Array) ToSparse() *Array {
	if a.Sparse {
		return a.Copy().(*Array)
	}
	out := NewSparse(a.rows, a.cols)
	for c := 0; c < a.cols; c++ {
		for r := 0; r < a.rows; r++ {
			if v := a.data[c*a.rows+r]; v != 0 {
				out.nz[[2]int{r, c}] = v
			}
		}
	}
	return out
}

// NNZ counts stored nonzeros.
func (a *Array) NNZ() int {
	if a.Sparse {
		n := 0
		for _, v := range a.nz {
			if v != 0 {
				n++
			}
		}
		return n
	}
	n := 0
	for _, v := range a.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// NonzeroKeys returns sparse keys sorted column-major for deterministic
// iteration.
func (a *Array) NonzeroKeys() [][2]int {
	keys := make([][2]int, 0, len(a.nz))
	for k := range a.nz {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][1] != keys[j][1] {
			return keys[i][1] < keys[j][1]
		}
		return keys[i][0] < keys[j][0]
	})
	return keys
}

// IsComplex reports whether any element has a nonzero imaginary part.
func (a *Array) IsComplex() bool {
	if a.Sparse {
		for _, v := range a.nz {
			if imag(v) != 0 {
				return true
			}
		}
		return false
	}
	for _, v := range a.data {
		if imag(v) != 0 {
			return true
		}
	}
	return false
}

//-----------------------------------------------------------------------------
// Shape transforms
//-----------------------------------------------------------------------------

// Reshape reinterprets the column-major element sequence under new
// dimensions.
func (a *Array) Reshape(rows, cols int) (*Array, error) {
	if rows*cols != a.NumEl() {
		return nil, dimErrorf("To reshape the number of elements must not change")
	}
	out := NewDense(rows, cols)
	copy(out.data, a.Flatten())
	out.Logical = a.Logical
	if a.Sparse {
		return out.ToSparse(), nil
	}
	return out, nil
}

// Transpose returns the transpose; conj also conjugates each element.
func (a *Array) Transpose(conj bool) *Array {
	if a.Sparse {
		out := NewSparse(a.cols, a.rows)
		for k, v := range a.nz {
			if conj {
				v = cmplx.Conj(v)
			}
			out.nz[[2]int{k[1], k[0]}] = v
		}
		out.Logical = a.Logical
		return out
	}
	out := NewDense(a.cols, a.rows)
	for c := 0; c < a.cols; c++ {
		for r := 0; r < a.rows; r++ {
			v := a.data[c*a.rows+r]
			if conj {
				v = cmplx.Conj(v)
			}
			out.data[r*out.rows+c] = v
		}
	}
	out.Logical = a.Logical
	return out
}

// Map applies f elementwise, preserving shape. Sparse arrays stay sparse
// only when f(0) == 0.
func (a *Array) Map(f func(complex128) complex128) *Array {
	if a.Sparse && f(0) == 0 {
		out := NewSparse(a.rows, a.cols)
		for k, v := range a.nz {
			if fv := f(v); fv != 0 {
				out.nz[k] = fv
			}
		}
		return out
	}
	src := a.Flatten()
	out := NewDense(a.rows, a.cols)
	if a.nd != nil {
		out.nd = append([]int(nil), a.nd...)
	}
	for i, v := range src {
		out.data[i] = f(v)
	}
	return out
}

// HCat joins arrays left to right.
func HCat(parts ...*Array) (*Array, error) {
	kept := parts[:0]
	for _, p := range parts {
		if !p.IsEmpty() {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return Empty(), nil
	}
	rows := kept[0].rows
	cols := 0
	for _, p := range kept {
		if p.rows != rows {
			return nil, dimErrorf("Dimensions of arrays being concatenated are not consistent")
		}
		cols += p.cols
	}
	out := NewDense(rows, cols)
	off := 0
	for _, p := range kept {
		copy(out.data[off*rows:], p.Flatten())
		off += p.cols
	}
	return out, nil
}

// VCat joins arrays top to bottom.
func VCat(parts ...*Array) (*Array, error) {
	kept := parts[:0]
	for _, p := range parts {
		if !p.IsEmpty() {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return Empty(), nil
	}
	cols := kept[0].cols
	rows := 0
	for _, p := range kept {
		if p.cols != cols {
			return nil, dimErrorf("Dimensions of arrays being concatenated are not consistent")
		}
		rows += p.rows
	}
	out := NewDense(rows, cols)
	rowOff := 0
	for _, p := range kept {
		for c := 0; c < cols; c++ {
			for r := 0; r < p.rows; r++ {
				out.data[c*rows+rowOff+r] = p.at(r, c)
			}
		}
		rowOff += p.rows
	}
	return out, nil
}
