package kernel

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

type builtinFunc func(args []runtime.Value, nargout int) ([]runtime.Value, error)

func builtin(name string, fn builtinFunc) *runtime.Callable {
	return &runtime.Callable{
		Name:      name,
		Class:     runtime.CallBuiltin,
		NumParams: -1,
		Invoke:    fn,
	}
}

func command(name string, fn builtinFunc) *runtime.Callable {
	c := builtin(name, fn)
	c.AutoCall = true
	return c
}

func one(v runtime.Value) []runtime.Value { return []runtime.Value{v} }

func nargchk(name string, args []runtime.Value, lo, hi int) error {
	if len(args) < lo {
		return &runtime.ArgumentError{Msg: fmt.Sprintf("Not enough input arguments to '%s'", name)}
	}
	if hi >= 0 && len(args) > hi {
		return &runtime.ArgumentError{Msg: fmt.Sprintf("Too many input arguments to '%s'", name)}
	}
	return nil
}

// installBuiltins populates the protected function namespace.
func (s *Session) installBuiltins() {
	for name, f := range elementwiseMath() {
		fn := f
		s.reg.RegisterBuiltin(builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if err := nargchk(name, args, 1, 1); err != nil {
				return nil, err
			}
			v, err := mapElem(args[0], fn)
			if err != nil {
				return nil, err
			}
			return one(v), nil
		}))
	}

	for name, val := range map[string]float64{
		"pi":  math.Pi,
		"Inf": math.Inf(1),
		"inf": math.Inf(1),
		"NaN": math.NaN(),
		"nan": math.NaN(),
		"eps": 2.220446049250313e-16,
	} {
		val := val
		s.reg.RegisterBuiltin(builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if len(args) > 0 {
				return nil, &runtime.ArgumentError{Msg: "Too many input arguments"}
			}
			return one(runtime.NewNum(val)), nil
		}))
	}

	s.installConstructors()
	s.installQueries()
	s.installReductions()
	s.installStrings()
	s.installCommands()
}

func elementwiseMath() map[string]func(complex128) complex128 {
	realFn := func(f func(float64) float64, c func(complex128) complex128) func(complex128) complex128 {
		return func(x complex128) complex128 {
			if imag(x) == 0 {
				return complex(f(real(x)), 0)
			}
			return c(x)
		}
	}
	return map[string]func(complex128) complex128{
		"sin":   realFn(math.Sin, cmplx.Sin),
		"cos":   realFn(math.Cos, cmplx.Cos),
		"tan":   realFn(math.Tan, cmplx.Tan),
		"asin":  cmplxWhenOutside(math.Asin, cmplx.Asin, -1, 1),
		"acos":  cmplxWhenOutside(math.Acos, cmplx.Acos, -1, 1),
		"atan":  realFn(math.Atan, cmplx.Atan),
		"exp":   realFn(math.Exp, cmplx.Exp),
		"log":   cmplxWhenOutside(math.Log, cmplx.Log, 0, math.Inf(1)),
		"log10": cmplxWhenOutside(math.Log10, cmplx.Log10, 0, math.Inf(1)),
		"sqrt": func(x complex128) complex128 {
			if imag(x) == 0 && real(x) >= 0 {
				return complex(math.Sqrt(real(x)), 0)
			}
			return cmplx.Sqrt(x)
		},
		"abs": func(x complex128) complex128 { return complex(cmplx.Abs(x), 0) },
		"floor": func(x complex128) complex128 {
			return complex(math.Floor(real(x)), math.Floor(imag(x)))
		},
		"ceil": func(x complex128) complex128 {
			return complex(math.Ceil(real(x)), math.Ceil(imag(x)))
		},
		"round": func(x complex128) complex128 {
			return complex(math.Round(real(x)), math.Round(imag(x)))
		},
		"fix": func(x complex128) complex128 {
			return complex(math.Trunc(real(x)), math.Trunc(imag(x)))
		},
		"real":  func(x complex128) complex128 { return complex(real(x), 0) },
		"imag":  func(x complex128) complex128 { return complex(imag(x), 0) },
		"conj":  cmplx.Conj,
		"angle": func(x complex128) complex128 { return complex(cmplx.Phase(x), 0) },
	}
}

// cmplxWhenOutside keeps results real inside [lo, hi] and promotes to the
// complex branch outside it.
func cmplxWhenOutside(f func(float64) float64, c func(complex128) complex128, lo, hi float64) func(complex128) complex128 {
	return func(x complex128) complex128 {
		if imag(x) == 0 && real(x) >= lo && real(x) <= hi {
			return complex(f(real(x)), 0)
		}
		return c(x)
	}
}

func mapElem(v runtime.Value, f func(complex128) complex128) (runtime.Value, error) {
	switch val := v.(type) {
	case *runtime.Num:
		return runtime.NewComplex(f(val.V)), nil
	case *runtime.Array:
		return val.Map(f), nil
	case *runtime.Str:
		arr, err := runtime.ToArray(val)
		if err != nil {
			return nil, err
		}
		return arr.Map(f), nil
	default:
		return nil, &runtime.TypeError{Msg: fmt.Sprintf("Expected a numeric argument, got %s", v.Kind())}
	}
}

//-----------------------------------------------------------------------------
// Constructors
//-----------------------------------------------------------------------------

func shapeArgs(name string, args []runtime.Value) (int, int, error) {
	switch len(args) {
	case 0:
		return 1, 1, nil
	case 1:
		n, err := runtime.AsReal(args[0])
		if err != nil {
			return 0, 0, err
		}
		return int(n), int(n), nil
	case 2:
		r, err := runtime.AsReal(args[0])
		if err != nil {
			return 0, 0, err
		}
		c, err := runtime.AsReal(args[1])
		if err != nil {
			return 0, 0, err
		}
		return int(r), int(c), nil
	default:
		return 0, 0, &runtime.ArgumentError{Msg: fmt.Sprintf("Too many input arguments to '%s'", name)}
	}
}

// shapeDims reads a dimension list of any rank, the form zeros and ones
// accept.
func shapeDims(args []runtime.Value) ([]int, error) {
	if len(args) == 0 {
		return []int{1, 1}, nil
	}
	if len(args) == 1 {
		n, err := runtime.AsReal(args[0])
		if err != nil {
			return nil, err
		}
		return []int{int(n), int(n)}, nil
	}
	dims := make([]int, len(args))
	for i, a := range args {
		d, err := runtime.AsReal(a)
		if err != nil {
			return nil, err
		}
		dims[i] = int(d)
	}
	return dims, nil
}

func (s *Session) installConstructors() {
	s.reg.RegisterBuiltin(builtin("zeros", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		dims, err := shapeDims(args)
		if err != nil {
			return nil, err
		}
		return one(runtime.NewDenseND(dims)), nil
	}))

	s.reg.RegisterBuiltin(builtin("ones", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		dims, err := shapeDims(args)
		if err != nil {
			return nil, err
		}
		a := runtime.NewDenseND(dims)
		filled := a.Map(func(complex128) complex128 { return 1 })
		return one(filled), nil
	}))

	s.reg.RegisterBuiltin(builtin("eye", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		r, c, err := shapeArgs("eye", args)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return one(runtime.NewNum(1)), nil
		}
		a := runtime.NewDense(r, c)
		out, err := fillEye(a)
		if err != nil {
			return nil, err
		}
		return one(out), nil
	}))

	s.reg.RegisterBuiltin(builtin("rand", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		dims, err := shapeDims(args)
		if err != nil {
			return nil, err
		}
		a := runtime.NewDenseND(dims)
		if a.NumEl() == 1 {
			return one(runtime.NewNum(rand.Float64())), nil
		}
		out := a.Map(func(complex128) complex128 { return complex(rand.Float64(), 0) })
		return one(out), nil
	}))

	s.reg.RegisterBuiltin(builtin("linspace", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("linspace", args, 2, 3); err != nil {
			return nil, err
		}
		lo, err := runtime.AsReal(args[0])
		if err != nil {
			return nil, err
		}
		hi, err := runtime.AsReal(args[1])
		if err != nil {
			return nil, err
		}
		n := 100
		if len(args) == 3 {
			nf, err := runtime.AsReal(args[2])
			if err != nil {
				return nil, err
			}
			n = int(nf)
		}
		if n < 2 {
			return one(runtime.Scalar1x1(complex(hi, 0))), nil
		}
		vals := make([]complex128, n)
		step := (hi - lo) / float64(n-1)
		for i := range vals {
			vals[i] = complex(lo+float64(i)*step, 0)
		}
		return one(runtime.RowVector(vals)), nil
	}))

	s.reg.RegisterBuiltin(builtin("sparse", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		switch len(args) {
		case 1:
			arr, err := runtime.ToArray(args[0])
			if err != nil {
				return nil, err
			}
			return one(arr.ToSparse()), nil
		case 2:
			r, c, err := shapeArgs("sparse", args)
			if err != nil {
				return nil, err
			}
			return one(runtime.NewSparse(r, c)), nil
		default:
			return nil, &runtime.ArgumentError{Msg: "sparse takes a matrix or a size pair"}
		}
	}))

	s.reg.RegisterBuiltin(builtin("full", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("full", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		return one(arr.ToDense()), nil
	}))

	s.reg.RegisterBuiltin(builtin("speye", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		r, c, err := shapeArgs("speye", args)
		if err != nil {
			return nil, err
		}
		out := runtime.NewSparse(r, c)
		filled, err := fillEye(out)
		if err != nil {
			return nil, err
		}
		return one(filled), nil
	}))

	s.reg.RegisterBuiltin(builtin("reshape", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("reshape", args, 3, 3); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		r, err := runtime.AsReal(args[1])
		if err != nil {
			return nil, err
		}
		c, err := runtime.AsReal(args[2])
		if err != nil {
			return nil, err
		}
		out, err := arr.Reshape(int(r), int(c))
		if err != nil {
			return nil, err
		}
		return one(out), nil
	}))
}

func fillEye(a *runtime.Array) (*runtime.Array, error) {
	rows, cols := a.Dims()
	var cur runtime.Value = a
	n := rows
	if cols < n {
		n = cols
	}
	for i := 1; i <= n; i++ {
		idx := []runtime.Value{runtime.NewNum(float64(i)), runtime.NewNum(float64(i))}
		updated, err := runtime.SetIndex(cur, idx, runtime.NewNum(1))
		if err != nil {
			return nil, err
		}
		cur = updated
	}
	return cur.(*runtime.Array), nil
}

//-----------------------------------------------------------------------------
// Queries
//-----------------------------------------------------------------------------

func valueDims(v runtime.Value) (int, int) {
	switch val := v.(type) {
	case *runtime.Num:
		return 1, 1
	case *runtime.Str:
		return 1, len(val.V)
	case *runtime.Array:
		return val.Dims()
	case *runtime.Cell:
		return val.Rows, val.Cols
	default:
		return 1, 1
	}
}

// valueShape is valueDims with the full dimension list for N-D arrays.
func valueShape(v runtime.Value) []int {
	if a, ok := v.(*runtime.Array); ok {
		return a.Shape()
	}
	r, c := valueDims(v)
	return []int{r, c}
}

func (s *Session) installQueries() {
	s.reg.RegisterBuiltin(builtin("size", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("size", args, 1, 2); err != nil {
			return nil, err
		}
		shape := valueShape(args[0])
		if len(args) == 2 {
			dim, err := runtime.AsReal(args[1])
			if err != nil {
				return nil, err
			}
			d := int(dim)
			if d >= 1 && d <= len(shape) {
				return one(runtime.NewNum(float64(shape[d-1]))), nil
			}
			return one(runtime.NewNum(1)), nil
		}
		if nargout >= 2 {
			// The last requested output folds the remaining dimensions.
			out := make([]runtime.Value, nargout)
			for i := 0; i < nargout; i++ {
				d := 1
				if i < len(shape) {
					d = shape[i]
				}
				if i == nargout-1 {
					for j := i + 1; j < len(shape); j++ {
						d *= shape[j]
					}
				}
				out[i] = runtime.NewNum(float64(d))
			}
			return out, nil
		}
		vals := make([]complex128, len(shape))
		for i, d := range shape {
			vals[i] = complex(float64(d), 0)
		}
		return one(runtime.RowVector(vals)), nil
	}))

	s.reg.RegisterBuiltin(builtin("length", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("length", args, 1, 1); err != nil {
			return nil, err
		}
		n := 0
		for _, d := range valueShape(args[0]) {
			if d == 0 {
				return one(runtime.NewNum(0)), nil
			}
			if d > n {
				n = d
			}
		}
		return one(runtime.NewNum(float64(n))), nil
	}))

	s.reg.RegisterBuiltin(builtin("numel", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("numel", args, 1, 1); err != nil {
			return nil, err
		}
		r, c := valueDims(args[0])
		return one(runtime.NewNum(float64(r * c))), nil
	}))

	boolQuery := func(name string, pred func(runtime.Value) bool) {
		s.reg.RegisterBuiltin(builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if err := nargchk(name, args, 1, 1); err != nil {
				return nil, err
			}
			return one(runtime.Bool(pred(args[0]))), nil
		}))
	}
	boolQuery("isempty", func(v runtime.Value) bool {
		r, c := valueDims(v)
		return r*c == 0
	})
	boolQuery("ischar", func(v runtime.Value) bool { return v.Kind() == runtime.KindStr })
	boolQuery("isnumeric", func(v runtime.Value) bool {
		return v.Kind() == runtime.KindNum || v.Kind() == runtime.KindArray
	})
	boolQuery("issparse", func(v runtime.Value) bool {
		a, ok := v.(*runtime.Array)
		return ok && a.Sparse
	})
	boolQuery("isreal", func(v runtime.Value) bool {
		switch val := v.(type) {
		case *runtime.Num:
			return val.IsReal()
		case *runtime.Array:
			return !val.IsComplex()
		default:
			return false
		}
	})
	boolQuery("islogical", func(v runtime.Value) bool {
		a, ok := v.(*runtime.Array)
		return ok && a.Logical
	})
	boolQuery("isstruct", func(v runtime.Value) bool { return v.Kind() == runtime.KindStruct })
	boolQuery("iscell", func(v runtime.Value) bool { return v.Kind() == runtime.KindCell })

	s.reg.RegisterBuiltin(builtin("nnz", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("nnz", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		return one(runtime.NewNum(float64(arr.NNZ()))), nil
	}))

	s.reg.RegisterBuiltin(builtin("class", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("class", args, 1, 1); err != nil {
			return nil, err
		}
		return one(runtime.NewStr(runtime.TypeName(args[0]))), nil
	}))

	s.reg.RegisterBuiltin(builtin("isfield", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("isfield", args, 2, 2); err != nil {
			return nil, err
		}
		st, ok := args[0].(*runtime.Struct)
		if !ok {
			return one(runtime.Bool(false)), nil
		}
		name, err := runtime.AsString(args[1])
		if err != nil {
			return nil, err
		}
		_, found := st.Fields[name]
		return one(runtime.Bool(found)), nil
	}))

	s.reg.RegisterBuiltin(builtin("fieldnames", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("fieldnames", args, 1, 1); err != nil {
			return nil, err
		}
		st, ok := args[0].(*runtime.Struct)
		if !ok {
			return nil, &runtime.TypeError{Msg: "fieldnames requires a struct"}
		}
		items := make([]runtime.Value, len(st.Order))
		for i, n := range st.Order {
			items[i] = runtime.NewStr(n)
		}
		return one(&runtime.Cell{Rows: len(items), Cols: 1, Items: items}), nil
	}))
}
