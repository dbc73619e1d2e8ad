package runtime

import (
	"math"
	"math/cmplx"
)

// Apply evaluates a binary operator written with the dialect's spelling.
// Scalars broadcast against arrays; `*`, `/`, `\` and `^` take their matrix
// meanings, the dotted forms are elementwise.
func Apply(op string, a, b Value) (Value, error) {
	switch op {
	case "+", "-":
		if s, ok := stringConcat(op, a, b); ok {
			return s, nil
		}
		return elementwise(op, a, b, func(x, y complex128) complex128 {
			if op == "+" {
				return x + y
			}
			return x - y
		})
	case ".*":
		return elementwise(op, a, b, func(x, y complex128) complex128 { return x * y })
	case "./":
		return elementwise(op, a, b, div)
	case ".\\":
		return elementwise(op, a, b, func(x, y complex128) complex128 { return div(y, x) })
	case ".^":
		return elementwise(op, a, b, powScalar)
	case "*":
		return matMul(a, b)
	case "/":
		return mrdivide(a, b)
	case "\\":
		return mldivide(a, b)
	case "^":
		return matPow(a, b)
	case "==", "~=", "<", ">", "<=", ">=":
		return compare(op, a, b)
	case "&", "&&":
		return logicalOp(a, b, func(x, y bool) bool { return x && y })
	case "|", "||":
		return logicalOp(a, b, func(x, y bool) bool { return x || y })
	default:
		return nil, typeErrorf("Unknown operator '%s'", op)
	}
}

// Negate is unary minus.
func Negate(v Value) (Value, error) {
	switch val := v.(type) {
	case *Num:
		return NewComplex(-val.V), nil
	case *Array:
		return val.Map(func(x complex128) complex128 { return -x }), nil
	default:
		return nil, typeErrorf("Unary minus is undefined for %s values", v.Kind())
	}
}

// Not is logical negation; results are logical.
func Not(v Value) (Value, error) {
	switch val := v.(type) {
	case *Num:
		return Bool(val.V == 0), nil
	case *Array:
		out := val.ToDense()
		for i, x := range out.data {
			if x == 0 {
				out.data[i] = 1
			} else {
				out.data[i] = 0
			}
		}
		out.Logical = true
		return out, nil
	default:
		return nil, typeErrorf("Logical negation is undefined for %s values", v.Kind())
	}
}

// TransposeValue applies the postfix transpose to any transposable value.
func TransposeValue(v Value, conj bool) (Value, error) {
	switch val := v.(type) {
	case *Num:
		if conj {
			return NewComplex(cmplx.Conj(val.V)), nil
		}
		return val, nil
	case *Str:
		return val, nil
	case *Array:
		if val.NDims() > 2 {
			return nil, dimErrorf("Transpose on ND array is not defined")
		}
		return val.Transpose(conj), nil
	default:
		return nil, typeErrorf("Transpose is undefined for %s values", v.Kind())
	}
}

// div keeps real division real so x/0 yields Inf rather than the NaN that
// complex division produces.
func div(x, y complex128) complex128 {
	if imag(x) == 0 && imag(y) == 0 {
		return complex(real(x)/real(y), 0)
	}
	return x / y
}

func powScalar(x, y complex128) complex128 {
	if imag(x) == 0 && imag(y) == 0 && (real(x) > 0 || real(y) == math.Trunc(real(y))) {
		return complex(math.Pow(real(x), real(y)), 0)
	}
	return cmplx.Pow(x, y)
}

//-----------------------------------------------------------------------------
// Elementwise core
//-----------------------------------------------------------------------------

// stringConcat implements `+` on two strings as concatenation.
func stringConcat(op string, a, b Value) (Value, bool) {
	if op != "+" {
		return nil, false
	}
	as, aok := a.(*Str)
	bs, bok := b.(*Str)
	if aok && bok {
		return NewStr(as.V + bs.V), true
	}
	return nil, false
}

// strChars converts a string to its character-code row vector so mixed
// string/number arithmetic behaves like char arrays.
func strChars(s string) *Array {
	vals := make([]complex128, len(s))
	for i := 0; i < len(s); i++ {
		vals[i] = complex(float64(s[i]), 0)
	}
	return RowVector(vals)
}

func numericOperand(v Value) (Value, error) {
	switch val := v.(type) {
	case *Num, *Array:
		return v, nil
	case *Str:
		return strChars(val.V), nil
	default:
		return nil, typeErrorf("Arithmetic is undefined for %s values", v.Kind())
	}
}

func elementwise(op string, a, b Value, f func(x, y complex128) complex128) (Value, error) {
	a, err := numericOperand(a)
	if err != nil {
		return nil, err
	}
	b, err = numericOperand(b)
	if err != nil {
		return nil, err
	}

	an, aIsNum := a.(*Num)
	bn, bIsNum := b.(*Num)
	if aIsNum && bIsNum {
		return NewComplex(f(an.V, bn.V)), nil
	}

	if aIsNum {
		arr := b.(*Array)
		return mapPreservingSparse(arr, func(y complex128) complex128 { return f(an.V, y) }), nil
	}
	if bIsNum {
		arr := a.(*Array)
		return mapPreservingSparse(arr, func(x complex128) complex128 { return f(x, bn.V) }), nil
	}

	aa, ba := a.(*Array), b.(*Array)
	if aa.rows != ba.rows || aa.cols != ba.cols {
		if aa.NumEl() == 1 {
			x := aa.Flatten()[0]
			return mapPreservingSparse(ba, func(y complex128) complex128 { return f(x, y) }), nil
		}
		if ba.NumEl() == 1 {
			y := ba.Flatten()[0]
			return mapPreservingSparse(aa, func(x complex128) complex128 { return f(x, y) }), nil
		}
		return nil, dimErrorf("Matrix dimensions must agree (%dx%d vs %dx%d)",
			aa.rows, aa.cols, ba.rows, ba.cols)
	}

	// Both-sparse stays sparse when zero maps to zero under the operator.
	if aa.Sparse && ba.Sparse && f(0, 0) == 0 {
		out := NewSparse(aa.rows, aa.cols)
		seen := map[[2]int]bool{}
		for k, x := range aa.nz {
			seen[k] = true
			if v := f(x, ba.nz[k]); v != 0 {
				out.nz[k] = v
			}
		}
		for k, y := range ba.nz {
			if seen[k] {
				continue
			}
			if v := f(0, y); v != 0 {
				out.nz[k] = v
			}
		}
		return out, nil
	}

	af, bf := aa.Flatten(), ba.Flatten()
	out := NewDense(aa.rows, aa.cols)
	for i := range af {
		out.data[i] = f(af[i], bf[i])
	}
	return out, nil
}

func mapPreservingSparse(a *Array, f func(complex128) complex128) *Array {
	out := a.Map(f)
	out.Logical = false
	return out
}

//-----------------------------------------------------------------------------
// Comparison and logic
//-----------------------------------------------------------------------------

func compare(op string, a, b Value) (Value, error) {
	// String equality compares whole values when both sides are strings.
	if as, ok := a.(*Str); ok {
		if bs, ok := b.(*Str); ok {
			eq := as.V == bs.V
			switch op {
			case "==":
				return Bool(eq), nil
			case "~=":
				return Bool(!eq), nil
			}
		}
	}
	cmp := func(x, y complex128) complex128 {
		var res bool
		switch op {
		case "==":
			res = x == y
		case "~=":
			res = x != y
		case "<":
			res = real(x) < real(y)
		case ">":
			res = real(x) > real(y)
		case "<=":
			res = real(x) <= real(y)
		case ">=":
			res = real(x) >= real(y)
		}
		if res {
			return 1
		}
		return 0
	}
	out, err := elementwise(op, a, b, cmp)
	if err != nil {
		return nil, err
	}
	if arr, ok := out.(*Array); ok {
		arr.Logical = true
	}
	return out, nil
}

func logicalOp(a, b Value, f func(x, y bool) bool) (Value, error) {
	out, err := elementwise("&", a, b, func(x, y complex128) complex128 {
		if f(x != 0, y != 0) {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	if arr, ok := out.(*Array); ok {
		arr.Logical = true
	}
	return out, nil
}

//-----------------------------------------------------------------------------
// Matrix products and solves
//-----------------------------------------------------------------------------

func matMul(a, b Value) (Value, error) {
	a, err := numericOperand(a)
	if err != nil {
		return nil, err
	}
	b, err = numericOperand(b)
	if err != nil {
		return nil, err
	}

	// Scalar operands reduce to elementwise scaling.
	if isScalarValue(a) || isScalarValue(b) {
		return elementwise(".*", a, b, func(x, y complex128) complex128 { return x * y })
	}

	aa, ba := a.(*Array), b.(*Array)
	if aa.cols != ba.rows {
		return nil, dimErrorf("Inner matrix dimensions must agree (%dx%d * %dx%d)",
			aa.rows, aa.cols, ba.rows, ba.cols)
	}

	if aa.Sparse && ba.Sparse {
		return sparseMatMul(aa, ba), nil
	}

	ad, bd := aa.ToDense(), ba.ToDense()
	out := NewDense(aa.rows, ba.cols)
	for j := 0; j < ba.cols; j++ {
		for k := 0; k < aa.cols; k++ {
			bv := bd.data[j*bd.rows+k]
			if bv == 0 {
				continue
			}
			for i := 0; i < aa.rows; i++ {
				out.data[j*out.rows+i] += ad.data[k*ad.rows+i] * bv
			}
		}
	}
	if out.rows == 1 && out.cols == 1 {
		return NewComplex(out.data[0]), nil
	}
	return out, nil
}

func sparseMatMul(a, b *Array) *Array {
	out := NewSparse(a.rows, b.cols)
	byRow := map[int][][2]int{}
	for k := range b.nz {
		byRow[k[0]] = append(byRow[k[0]], k)
	}
	for ak, av := range a.nz {
		for _, bk := range byRow[ak[1]] {
			key := [2]int{ak[0], bk[1]}
			sum := out.nz[key] + av*b.nz[bk]
			if sum == 0 {
				delete(out.nz, key)
			} else {
				out.nz[key] = sum
			}
		}
	}
	return out
}

func isScalarValue(v Value) bool {
	if _, ok := v.(*Num); ok {
		return true
	}
	a, ok := v.(*Array)
	return ok && a.NumEl() == 1
}

func matPow(a, b Value) (Value, error) {
	base, baseIsNum := a.(*Num)
	exp, expIsNum := b.(*Num)
	if baseIsNum && expIsNum {
		return NewComplex(powScalar(base.V, exp.V)), nil
	}

	arr, ok := a.(*Array)
	if !ok || !expIsNum {
		return nil, typeErrorf("Matrix power requires a square matrix and a scalar exponent")
	}
	if arr.NumEl() == 1 {
		return NewComplex(powScalar(arr.Flatten()[0], exp.V)), nil
	}
	if arr.rows != arr.cols {
		return nil, dimErrorf("Matrix power requires a square matrix")
	}
	n, err := intExponent(exp.V)
	if err != nil {
		return nil, err
	}
	result := Identity(arr.rows)
	m := arr.ToDense()
	for i := 0; i < n; i++ {
		prod, err := matMul(result, m)
		if err != nil {
			return nil, err
		}
		result = prod.(*Array)
	}
	return result, nil
}

func intExponent(v complex128) (int, error) {
	if imag(v) != 0 || real(v) != math.Trunc(real(v)) || real(v) < 0 {
		return 0, typeErrorf("Matrix power requires a nonnegative integer exponent")
	}
	return int(real(v)), nil
}

// Identity builds the n x n identity matrix.
func Identity(n int) *Array {
	out := NewDense(n, n)
	for i := 0; i < n; i++ {
		out.data[i*n+i] = 1
	}
	return out
}

// mrdivide solves X*B = A as (B' \ A')'.
func mrdivide(a, b Value) (Value, error) {
	if isScalarValue(b) {
		return elementwise("./", a, b, div)
	}
	at, err := TransposeValue(a, true)
	if err != nil {
		return nil, err
	}
	bt, err := TransposeValue(b, true)
	if err != nil {
		return nil, err
	}
	x, err := mldivide(bt, at)
	if err != nil {
		return nil, err
	}
	return TransposeValue(x, true)
}

// mldivide solves A\b: Gaussian elimination with partial pivoting for
// square systems, normal equations for the rectangular least-squares case.
func mldivide(a, b Value) (Value, error) {
	if isScalarValue(a) {
		return elementwise(".\\", a, b, func(x, y complex128) complex128 { return div(y, x) })
	}
	an, err := numericOperand(a)
	if err != nil {
		return nil, err
	}
	bn, err := numericOperand(b)
	if err != nil {
		return nil, err
	}
	aa, ok := an.(*Array)
	if !ok {
		return nil, typeErrorf("Left divide requires a matrix left operand")
	}
	var ba *Array
	switch rhs := bn.(type) {
	case *Num:
		ba = Scalar1x1(rhs.V)
	case *Array:
		ba = rhs
	}
	if aa.rows != ba.rows {
		return nil, dimErrorf("Matrix dimensions must agree (%dx%d \\ %dx%d)",
			aa.rows, aa.cols, ba.rows, ba.cols)
	}

	if aa.rows != aa.cols {
		// Overdetermined or underdetermined: solve A'A x = A'b.
		ataV, err := matMul(aa.Transpose(true), aa)
		if err != nil {
			return nil, err
		}
		atbV, err := matMul(aa.Transpose(true), ba)
		if err != nil {
			return nil, err
		}
		ata := asArray(ataV)
		atb := asArray(atbV)
		return gaussSolve(ata.ToDense(), atb.ToDense())
	}
	return gaussSolve(aa.ToDense(), ba.ToDense())
}

func asArray(v Value) *Array {
	switch val := v.(type) {
	case *Array:
		return val
	case *Num:
		return Scalar1x1(val.V)
	}
	return nil
}

// gaussSolve runs in-place elimination on copies of a (n x n) and b (n x m).
func gaussSolve(a, b *Array) (Value, error) {
	n := a.rows
	m := b.cols

	for col := 0; col < n; col++ {
		// Partial pivot on largest magnitude.
		pivot := col
		best := cmplx.Abs(a.data[col*n+col])
		for r := col + 1; r < n; r++ {
			if mag := cmplx.Abs(a.data[col*n+r]); mag > best {
				best = mag
				pivot = r
			}
		}
		if best == 0 {
			return nil, dimErrorf("Matrix is singular to working precision")
		}
		if pivot != col {
			for c := 0; c < n; c++ {
				a.data[c*n+pivot], a.data[c*n+col] = a.data[c*n+col], a.data[c*n+pivot]
			}
			for c := 0; c < m; c++ {
				b.data[c*n+pivot], b.data[c*n+col] = b.data[c*n+col], b.data[c*n+pivot]
			}
		}

		inv := 1 / a.data[col*n+col]
		for r := col + 1; r < n; r++ {
			factor := a.data[col*n+r] * inv
			if factor == 0 {
				continue
			}
			a.data[col*n+r] = 0
			for c := col + 1; c < n; c++ {
				a.data[c*n+r] -= factor * a.data[c*n+col]
			}
			for c := 0; c < m; c++ {
				b.data[c*n+r] -= factor * b.data[c*n+col]
			}
		}
	}

	// Back substitution.
	x := NewDense(n, m)
	for c := 0; c < m; c++ {
		for r := n - 1; r >= 0; r-- {
			sum := b.data[c*n+r]
			for k := r + 1; k < n; k++ {
				sum -= a.data[k*n+r] * x.data[c*n+k]
			}
			x.data[c*n+r] = sum / a.data[r*n+r]
		}
	}
	if n == 1 && m == 1 {
		return NewComplex(x.data[0]), nil
	}
	return x, nil
}
