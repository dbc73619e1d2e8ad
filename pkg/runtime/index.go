package runtime

import (
	"math"
)

// Subscript resolution. A subscript is a Num, a numeric or logical Array,
// or the Colon marker. The `end` keyword is resolved to a Num by the
// evaluator before it reaches this package, so only concrete indices arrive
// here.

// toIndex validates one 1-based integer index.
func toIndex(v complex128) (int, error) {
	if imag(v) != 0 {
		return 0, indexErrorf("Subscript indices must be real positive integers or logicals")
	}
	f := real(v)
	i := int(math.Round(f))
	if math.Abs(f-float64(i)) > 1e-9 || i < 1 {
		return 0, indexErrorf("Subscript indices must be real positive integers or logicals")
	}
	return i, nil
}

// resolveSub expands one subscript against a dimension of length dimLen.
// Colon yields the full 1..dimLen run; a logical array yields the positions
// of its true elements and must match the dimension exactly.
func resolveSub(s Value, dimLen int) ([]int, error) {
	switch sub := s.(type) {
	case *ColonValue:
		idxs := make([]int, dimLen)
		for i := range idxs {
			idxs[i] = i + 1
		}
		return idxs, nil
	case *Num:
		i, err := toIndex(sub.V)
		if err != nil {
			return nil, err
		}
		return []int{i}, nil
	case *Array:
		flat := sub.Flatten()
		if sub.Logical {
			if len(flat) != dimLen {
				return nil, indexErrorf("Logical index mask does not match array size")
			}
			var idxs []int
			for i, v := range flat {
				if v != 0 {
					idxs = append(idxs, i+1)
				}
			}
			return idxs, nil
		}
		idxs := make([]int, len(flat))
		for i, v := range flat {
			idx, err := toIndex(v)
			if err != nil {
				return nil, err
			}
			idxs[i] = idx
		}
		return idxs, nil
	default:
		return nil, indexErrorf("Subscript indices must be real positive integers or logicals")
	}
}

// subShape reports the result shape contribution of a single-subscript read:
// the subscript array's own shape is preserved, scalars collapse.
func subShape(s Value, dimLen int, count int) (rows, cols int) {
	if a, ok := s.(*Array); ok && !a.Logical {
		return a.rows, a.cols
	}
	if _, ok := s.(*ColonValue); ok {
		// A(:) is always a column.
		return count, 1
	}
	// Logical masks produce a column, except over row-vector sources where
	// orientation is preserved by the caller.
	return count, 1
}

//-----------------------------------------------------------------------------
// Read
//-----------------------------------------------------------------------------

// Index reads `base(subs...)`. Single-element selections collapse to a
// scalar Num; wider selections produce an Array shaped by the subscripts.
func Index(base Value, subs []Value) (Value, error) {
	switch target := base.(type) {
	case *Num:
		return indexArray(Scalar1x1(target.V), subs)
	case *Array:
		return indexArray(target, subs)
	case *Str:
		return indexString(target, subs)
	case *Cell:
		return indexCell(target, subs)
	default:
		return nil, typeErrorf("Value of class %s cannot be indexed", base.Kind())
	}
}

func indexArray(a *Array, subs []Value) (Value, error) {
	switch len(subs) {
	case 1:
		idxs, err := resolveSub(subs[0], a.NumEl())
		if err != nil {
			return nil, err
		}
		vals := make([]complex128, len(idxs))
		for i, idx := range idxs {
			v, err := a.AtLinear(idx)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		if len(vals) == 1 {
			if _, scalar := subs[0].(*Num); scalar {
				return NewComplex(vals[0]), nil
			}
		}
		rows, cols := subShape(subs[0], a.NumEl(), len(vals))
		if a.rows == 1 && rows != 1 && cols == 1 {
			// Linear selection out of a row vector keeps the row shape.
			rows, cols = 1, rows
		}
		out := NewDense(rows, cols)
		copy(out.data, vals)
		out.Logical = a.Logical
		return out, nil

	case 2:
		rowIdx, err := resolveSub(subs[0], a.rows)
		if err != nil {
			return nil, err
		}
		colIdx, err := resolveSub(subs[1], a.cols)
		if err != nil {
			return nil, err
		}
		if len(rowIdx) == 1 && len(colIdx) == 1 {
			v, err := a.At(rowIdx[0], colIdx[0])
			if err != nil {
				return nil, err
			}
			if isScalarSub(subs[0]) && isScalarSub(subs[1]) {
				return NewComplex(v), nil
			}
		}
		out := NewDense(len(rowIdx), len(colIdx))
		for j, c := range colIdx {
			for i, r := range rowIdx {
				v, err := a.At(r, c)
				if err != nil {
					return nil, err
				}
				out.data[j*out.rows+i] = v
			}
		}
		out.Logical = a.Logical
		if a.Sparse {
			return out.ToSparse(), nil
		}
		return out, nil

	default:
		return indexND(a, subs)
	}
}

// subExtents maps a subscript list onto per-subscript dimension lengths:
// the last subscript folds every remaining dimension, subscripts past the
// rank see singleton dimensions. The extents are a valid reshape of the
// column-major buffer, so strides over them address storage directly.
func subExtents(shape []int, nsubs int) []int {
	eff := make([]int, nsubs)
	for i := range eff {
		switch {
		case i >= len(shape):
			eff[i] = 1
		case i == nsubs-1:
			n := 1
			for _, d := range shape[i:] {
				n *= d
			}
			eff[i] = n
		default:
			eff[i] = shape[i]
		}
	}
	return eff
}

func subStrides(eff []int) []int {
	strides := make([]int, len(eff))
	acc := 1
	for i, d := range eff {
		strides[i] = acc
		acc *= d
	}
	return strides
}

// indexND reads a selection addressed by three or more subscripts: each
// resolves against its dimension, and the result is the outer-product mesh
// with the first subscript varying fastest.
func indexND(a *Array, subs []Value) (Value, error) {
	eff := subExtents(a.Shape(), len(subs))
	strides := subStrides(eff)

	lists := make([][]int, len(subs))
	scalarSel := true
	for i, s := range subs {
		idxs, err := resolveSub(s, eff[i])
		if err != nil {
			return nil, err
		}
		for _, idx := range idxs {
			if idx > eff[i] {
				return nil, indexErrorf("Index exceeds matrix dimensions")
			}
		}
		lists[i] = idxs
		if !isScalarSub(s) || len(idxs) != 1 {
			scalarSel = false
		}
	}

	flat := a.Flatten()
	if scalarSel {
		off := 0
		for i, idxs := range lists {
			off += (idxs[0] - 1) * strides[i]
		}
		return NewComplex(flat[off]), nil
	}

	outDims := make([]int, len(lists))
	for i, idxs := range lists {
		outDims[i] = len(idxs)
	}
	out := NewDenseND(outDims)
	counters := make([]int, len(lists))
	for n := range out.data {
		off := 0
		for i := range lists {
			off += (lists[i][counters[i]] - 1) * strides[i]
		}
		out.data[n] = flat[off]
		for i := 0; i < len(counters); i++ {
			counters[i]++
			if counters[i] < len(lists[i]) {
				break
			}
			counters[i] = 0
		}
	}
	out.Logical = a.Logical
	return out, nil
}

func isScalarSub(s Value) bool {
	_, ok := s.(*Num)
	return ok
}

func indexString(s *Str, subs []Value) (Value, error) {
	if len(subs) != 1 {
		return nil, indexErrorf("Strings take a single subscript")
	}
	idxs, err := resolveSub(subs[0], len(s.V))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(idxs))
	for i, idx := range idxs {
		if idx > len(s.V) {
			return nil, indexErrorf("Index exceeds string length")
		}
		out[i] = s.V[idx-1]
	}
	return NewStr(string(out)), nil
}

// indexCell returns the addressed item directly: with no brace trailer in
// the grammar, parenthesized cell access is content access.
func indexCell(c *Cell, subs []Value) (Value, error) {
	switch len(subs) {
	case 1:
		idxs, err := resolveSub(subs[0], c.NumEl())
		if err != nil {
			return nil, err
		}
		if len(idxs) == 1 {
			return c.At(idxs[0])
		}
		items := make([]Value, len(idxs))
		for i, idx := range idxs {
			v, err := c.At(idx)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &Cell{Rows: 1, Cols: len(items), Items: items}, nil
	case 2:
		rowIdx, err := resolveSub(subs[0], c.Rows)
		if err != nil {
			return nil, err
		}
		colIdx, err := resolveSub(subs[1], c.Cols)
		if err != nil {
			return nil, err
		}
		if len(rowIdx) == 1 && len(colIdx) == 1 {
			r, cc := rowIdx[0], colIdx[0]
			if r > c.Rows || cc > c.Cols {
				return nil, indexErrorf("Index exceeds cell array bounds")
			}
			return c.Items[(cc-1)*c.Rows+(r-1)], nil
		}
		return nil, indexErrorf("Cell range selection requires a single subscript")
	default:
		return nil, indexErrorf("Too many subscripts for cell array")
	}
}

//-----------------------------------------------------------------------------
// Write
//-----------------------------------------------------------------------------

// SetIndex writes `base(subs...) = rhs` and returns the updated value. Dense
// arrays grow automatically when a subscript lands outside the current
// bounds, zero-filling the new region; sparse arrays never grow. A nil base
// starts from an empty array, which is how assignment to a fresh name
// behaves.
func SetIndex(base Value, subs []Value, rhs Value) (Value, error) {
	var a *Array
	switch target := base.(type) {
	case nil:
		a = Empty()
	case *Num:
		a = Scalar1x1(target.V)
	case *Array:
		a = target.Copy().(*Array)
	case *Cell:
		return setCellIndex(target, subs, rhs)
	default:
		return nil, typeErrorf("Value of class %s does not support indexed assignment", base.Kind())
	}

	rhsVals, err := rhsElements(rhs)
	if err != nil {
		return nil, err
	}

	switch len(subs) {
	case 1:
		return setLinear(a, subs[0], rhsVals)
	case 2:
		return setPlanar(a, subs[0], subs[1], rhsVals)
	default:
		return setND(a, subs, rhsVals)
	}
}

// setND writes through three or more subscripts. Dense arrays grow along
// any dimension whose subscript lands outside the current bounds, including
// past the current rank; new positions zero-fill.
func setND(a *Array, subs []Value, rhs []complex128) (Value, error) {
	shape := a.Shape()
	eff := subExtents(shape, len(subs))

	lists := make([][]int, len(subs))
	maxIdx := make([]int, len(subs))
	for i, s := range subs {
		idxs, err := resolveSub(s, eff[i])
		if err != nil {
			return nil, err
		}
		lists[i] = idxs
		maxIdx[i] = eff[i]
		for _, idx := range idxs {
			if idx > maxIdx[i] {
				maxIdx[i] = idx
			}
		}
	}

	grow := false
	for i := range eff {
		if maxIdx[i] > eff[i] {
			grow = true
		}
	}
	if grow {
		if a.Sparse {
			return nil, dimErrorf("Sparse arrays do not auto-expand")
		}
		if len(subs) < len(shape) {
			// The folded trailing subscript cannot say which dimension
			// should stretch.
			return nil, indexErrorf("Attempt to grow array along ambiguous dimension")
		}
		grown := NewDenseND(maxIdx)
		newStrides := subStrides(maxIdx)
		counters := make([]int, len(eff))
		old := a.Flatten()
		for n := range old {
			off := 0
			for i, c := range counters {
				off += c * newStrides[i]
			}
			grown.data[off] = old[n]
			for i := 0; i < len(counters); i++ {
				counters[i]++
				if counters[i] < eff[i] {
					break
				}
				counters[i] = 0
			}
		}
		grown.Logical = a.Logical
		a = grown
		eff = maxIdx
	}

	total := 1
	for _, idxs := range lists {
		total *= len(idxs)
	}
	if len(rhs) != 1 && len(rhs) != total {
		return nil, dimErrorf("Assignment has %d elements for %d destination positions", len(rhs), total)
	}

	strides := subStrides(eff)
	counters := make([]int, len(lists))
	for n := 0; n < total; n++ {
		off := 0
		for i := range lists {
			off += (lists[i][counters[i]] - 1) * strides[i]
		}
		v := rhs[0]
		if len(rhs) > 1 {
			v = rhs[n]
		}
		a.setAt(off%a.rows, off/a.rows, v)
		for i := 0; i < len(counters); i++ {
			counters[i]++
			if counters[i] < len(lists[i]) {
				break
			}
			counters[i] = 0
		}
	}
	return a, nil
}

func rhsElements(rhs Value) ([]complex128, error) {
	switch v := rhs.(type) {
	case *Num:
		return []complex128{v.V}, nil
	case *Array:
		return v.Flatten(), nil
	default:
		return nil, typeErrorf("Cannot assign a %s into a numeric array", rhs.Kind())
	}
}

func setLinear(a *Array, sub Value, rhs []complex128) (Value, error) {
	idxs, err := resolveSub(sub, a.NumEl())
	if err != nil {
		return nil, err
	}

	// Grow to cover the largest linear index. Matrices only grow along a
	// vector shape; a true matrix rejects linear writes past its end.
	maxIdx := 0
	for _, i := range idxs {
		if i > maxIdx {
			maxIdx = i
		}
	}
	if maxIdx > a.NumEl() {
		if a.Sparse {
			return nil, dimErrorf("Sparse arrays do not auto-expand")
		}
		if a.nd != nil {
			return nil, indexErrorf("Attempt to grow array along ambiguous dimension")
		}
		switch {
		case a.rows <= 1:
			grown := NewDense(1, maxIdx)
			copy(grown.data, a.Flatten())
			grown.Logical = a.Logical
			a = grown
		case a.cols == 1:
			grown := NewDense(maxIdx, 1)
			copy(grown.data, a.Flatten())
			grown.Logical = a.Logical
			a = grown
		default:
			return nil, indexErrorf("Attempted to grow a matrix with a linear index")
		}
	}

	if len(rhs) != 1 && len(rhs) != len(idxs) {
		return nil, dimErrorf("Assignment has %d elements for %d destination positions", len(rhs), len(idxs))
	}
	for i, idx := range idxs {
		v := rhs[0]
		if len(rhs) > 1 {
			v = rhs[i]
		}
		idx--
		a.setAt(idx%a.rows, idx/a.rows, v)
	}
	return a, nil
}

func setPlanar(a *Array, rowSub, colSub Value, rhs []complex128) (Value, error) {
	rowIdx, err := resolveSub(rowSub, a.rows)
	if err != nil {
		return nil, err
	}
	colIdx, err := resolveSub(colSub, a.cols)
	if err != nil {
		return nil, err
	}

	maxRow, maxCol := a.rows, a.cols
	for _, r := range rowIdx {
		if r > maxRow {
			maxRow = r
		}
	}
	for _, c := range colIdx {
		if c > maxCol {
			maxCol = c
		}
	}
	if maxRow > a.rows || maxCol > a.cols {
		if a.Sparse {
			return nil, dimErrorf("Sparse arrays do not auto-expand")
		}
		if a.nd != nil {
			return nil, indexErrorf("Attempt to grow array along ambiguous dimension")
		}
		grown := NewDense(maxRow, maxCol)
		for c := 0; c < a.cols; c++ {
			for r := 0; r < a.rows; r++ {
				grown.data[c*maxRow+r] = a.at(r, c)
			}
		}
		grown.Logical = a.Logical
		a = grown
	}

	n := len(rowIdx) * len(colIdx)
	if len(rhs) != 1 && len(rhs) != n {
		return nil, dimErrorf("Assignment has %d elements for %d destination positions", len(rhs), n)
	}
	// rhs elements are consumed column-major over the selection grid.
	for ci, c := range colIdx {
		for ri, r := range rowIdx {
			v := rhs[0]
			if len(rhs) > 1 {
				v = rhs[ci*len(rowIdx)+ri]
			}
			a.setAt(r-1, c-1, v)
		}
	}
	return a, nil
}

func setCellIndex(c *Cell, subs []Value, rhs Value) (Value, error) {
	if len(subs) != 1 {
		return nil, indexErrorf("Cell assignment requires a single subscript")
	}
	idxs, err := resolveSub(subs[0], c.NumEl())
	if err != nil {
		return nil, err
	}
	if len(idxs) != 1 {
		return nil, indexErrorf("Cell assignment requires a scalar subscript")
	}
	idx := idxs[0]
	out := c.Copy().(*Cell)
	if idx > out.NumEl() {
		// Cells grow linearly along a row.
		if out.Rows > 1 && out.Cols > 1 {
			return nil, indexErrorf("Attempted to grow a cell matrix with a linear index")
		}
		items := make([]Value, idx)
		copy(items, out.Items)
		for i := len(out.Items); i < idx; i++ {
			items[i] = Empty()
		}
		out.Items = items
		if out.Rows > 1 {
			out.Rows = idx
			out.Cols = 1
		} else {
			out.Rows = 1
			out.Cols = idx
		}
	}
	out.Items[idx-1] = rhs.Copy()
	return out, nil
}
