package interp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// Resolver maps a name that is not a workspace variable onto a value,
// typically a builtin or a lazily-loaded function. The second result is
// false when the name stays undefined.
type Resolver func(name string) (runtime.Value, bool)

// Evaluator executes syntax trees. It is stateless between statements
// except for the subscript context stack, so one instance serves a whole
// session.
type Evaluator struct {
	Resolve Resolver

	// Globals is the table `global` declarations link into, shared with
	// every function activation.
	Globals *Globals

	// endDims carries the dimension `end` resolves to, innermost last.
	endDims []int
}

// New returns an evaluator with the given name resolver.
func New(resolve Resolver) *Evaluator {
	if resolve == nil {
		resolve = func(string) (runtime.Value, bool) { return nil, false }
	}
	return &Evaluator{Resolve: resolve, Globals: NewGlobals()}
}

// LineError tags an execution error with the 1-based source line it was
// raised on. Wrapping happens once, at the innermost failing statement.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return e.Err.Error() }
func (e *LineError) Unwrap() error { return e.Err }

func withLine(err error, line int) error {
	if err == nil {
		return nil
	}
	var le *LineError
	if errors.As(err, &le) {
		return err
	}
	if isFlowSignal(err) {
		return err
	}
	return &LineError{Line: line, Err: err}
}

//-----------------------------------------------------------------------------
// Expression evaluation
//-----------------------------------------------------------------------------

// Eval computes an expression. A nil value with nil error means the
// expression produced no output (a void call).
func (ev *Evaluator) Eval(env Env, node ast.Node) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.Number:
		return parseNumber(n.Lit)
	case *ast.String:
		return runtime.NewStr(n.Val), nil
	case *ast.Variable:
		return ev.evalVariable(env, n)
	case *ast.FuncHandle:
		return ev.evalHandle(env, n)
	case *ast.BinOp:
		return ev.evalBinOp(env, n)
	case *ast.UnaryOp:
		return ev.evalUnary(env, n)
	case *ast.Transpose:
		operand, err := ev.evalValue(env, n.Target)
		if err != nil {
			return nil, err
		}
		return runtime.TransposeValue(operand, n.Conj)
	case *ast.Call:
		results, err := ev.evalCall(env, n, 1)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return results[0], nil
	case *ast.Member:
		return ev.evalMember(env, n)
	case *ast.Matrix:
		return ev.evalMatrix(env, n)
	case *ast.CellArray:
		return ev.evalCell(env, n)
	case *ast.Range:
		return ev.evalRange(env, n)
	case *ast.Colon:
		return runtime.Colon, nil
	case *ast.EndMarker:
		if len(ev.endDims) == 0 {
			return nil, &runtime.IndexError{Msg: "'end' used outside of an index expression"}
		}
		return runtime.NewNum(float64(ev.endDims[len(ev.endDims)-1])), nil
	case *ast.AnonymousFunc:
		return ev.makeAnonymous(env, n), nil
	default:
		return nil, fmt.Errorf("cannot evaluate %T as an expression", node)
	}
}

// evalValue is Eval that rejects void results.
func (ev *Evaluator) evalValue(env Env, node ast.Node) (runtime.Value, error) {
	v, err := ev.Eval(env, node)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &runtime.ArgumentError{Msg: "One or more output arguments not assigned"}
	}
	return v, nil
}

func parseNumber(lit string) (runtime.Value, error) {
	imaginary := strings.HasSuffix(lit, "i")
	if imaginary {
		lit = lit[:len(lit)-1]
		if lit == "" || lit == "+" || lit == "-" {
			lit += "1"
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number literal %q", lit)
	}
	if imaginary {
		return runtime.NewComplex(complex(0, f)), nil
	}
	return runtime.NewNum(f), nil
}

func (ev *Evaluator) evalVariable(env Env, n *ast.Variable) (runtime.Value, error) {
	if v, ok := env.Lookup(n.Name); ok {
		return v, nil
	}
	if env.DeclaredUnset(n.Name) {
		return nil, &runtime.ArgumentError{Msg: fmt.Sprintf("Input argument '%s' is undefined", n.Name)}
	}
	if v, ok := ev.Resolve(n.Name); ok {
		// A bare function reference invokes with no arguments, so `t = tic`
		// and constant functions behave as expected.
		if fn, isFn := v.(*runtime.Callable); isFn && fn.Invoke != nil {
			results, err := fn.Invoke(nil, 1)
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return nil, nil
			}
			return results[0], nil
		}
		return v, nil
	}
	return nil, &runtime.NameError{Name: n.Name}
}

func (ev *Evaluator) evalHandle(env Env, n *ast.FuncHandle) (runtime.Value, error) {
	if v, ok := env.Lookup(n.Name); ok {
		if fn, isFn := v.(*runtime.Callable); isFn {
			return fn, nil
		}
		return nil, &runtime.TypeError{Msg: fmt.Sprintf("'%s' is not a function", n.Name)}
	}
	if v, ok := ev.Resolve(n.Name); ok {
		if fn, isFn := v.(*runtime.Callable); isFn {
			return fn, nil
		}
	}
	return nil, &runtime.NameError{Name: n.Name}
}

func (ev *Evaluator) evalBinOp(env Env, n *ast.BinOp) (runtime.Value, error) {
	// Short-circuit forms decide from the left operand alone when possible.
	if n.Op == "&&" || n.Op == "||" {
		left, err := ev.evalValue(env, n.Left)
		if err != nil {
			return nil, err
		}
		lt, err := runtime.IsTrue(left)
		if err != nil {
			return nil, err
		}
		if n.Op == "&&" && !lt {
			return runtime.Bool(false), nil
		}
		if n.Op == "||" && lt {
			return runtime.Bool(true), nil
		}
		right, err := ev.evalValue(env, n.Right)
		if err != nil {
			return nil, err
		}
		rt, err := runtime.IsTrue(right)
		if err != nil {
			return nil, err
		}
		return runtime.Bool(rt), nil
	}

	left, err := ev.evalValue(env, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalValue(env, n.Right)
	if err != nil {
		return nil, err
	}
	return runtime.Apply(n.Op, left, right)
}

func (ev *Evaluator) evalUnary(env Env, n *ast.UnaryOp) (runtime.Value, error) {
	operand, err := ev.evalValue(env, n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "-":
		return runtime.Negate(operand)
	case "~":
		return runtime.Not(operand)
	default:
		return nil, fmt.Errorf("unknown unary operator %q", n.Op)
	}
}

func (ev *Evaluator) evalRange(env Env, n *ast.Range) (runtime.Value, error) {
	start, err := ev.evalReal(env, n.Start)
	if err != nil {
		return nil, err
	}
	step := 1.0
	if n.Step != nil {
		step, err = ev.evalReal(env, n.Step)
		if err != nil {
			return nil, err
		}
	}
	stop, err := ev.evalReal(env, n.End)
	if err != nil {
		return nil, err
	}
	return runtime.NewRange(start, step, stop), nil
}

func (ev *Evaluator) evalReal(env Env, node ast.Node) (float64, error) {
	v, err := ev.evalValue(env, node)
	if err != nil {
		return 0, err
	}
	return runtime.AsReal(v)
}

//-----------------------------------------------------------------------------
// Calls and indexing
//-----------------------------------------------------------------------------

// evalCall resolves the call-vs-index ambiguity at run time: a target bound
// to data indexes, a target naming a function invokes.
func (ev *Evaluator) evalCall(env Env, n *ast.Call, nargout int) ([]runtime.Value, error) {
	// Fast path: bare-name target.
	if v, ok := n.Target.(*ast.Variable); ok {
		if bound, found := env.Lookup(v.Name); found {
			return ev.dispatchCall(env, bound, n, nargout)
		}
		if env.DeclaredUnset(v.Name) {
			return nil, &runtime.ArgumentError{Msg: fmt.Sprintf("Input argument '%s' is undefined", v.Name)}
		}
		if resolved, found := ev.Resolve(v.Name); found {
			return ev.dispatchCall(env, resolved, n, nargout)
		}
		return nil, &runtime.NameError{Name: v.Name}
	}

	target, err := ev.evalValue(env, n.Target)
	if err != nil {
		return nil, err
	}
	return ev.dispatchCall(env, target, n, nargout)
}

func (ev *Evaluator) dispatchCall(env Env, target runtime.Value, n *ast.Call, nargout int) ([]runtime.Value, error) {
	if fn, ok := target.(*runtime.Callable); ok {
		args, err := ev.evalArgs(env, n.Args)
		if err != nil {
			return nil, err
		}
		if fn.Invoke == nil {
			return nil, &runtime.TypeError{Msg: fmt.Sprintf("'%s' cannot be called with arguments", fn.Name)}
		}
		return fn.Invoke(args, nargout)
	}

	subs, err := ev.evalSubscripts(env, target, n.Args)
	if err != nil {
		return nil, err
	}
	v, err := runtime.Index(target, subs)
	if err != nil {
		return nil, err
	}
	return []runtime.Value{v}, nil
}

func (ev *Evaluator) evalArgs(env Env, args []ast.Node) ([]runtime.Value, error) {
	out := make([]runtime.Value, len(args))
	for i, arg := range args {
		v, err := ev.evalValue(env, arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalSubscripts evaluates index arguments with `end` bound per dimension:
// the element count for a single subscript, the axis extent otherwise.
func (ev *Evaluator) evalSubscripts(env Env, target runtime.Value, args []ast.Node) ([]runtime.Value, error) {
	dims, err := targetDims(target, len(args))
	if err != nil {
		return nil, err
	}
	out := make([]runtime.Value, len(args))
	for i, arg := range args {
		ev.endDims = append(ev.endDims, dims[i])
		v, err := ev.evalValue(env, arg)
		ev.endDims = ev.endDims[:len(ev.endDims)-1]
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func targetDims(target runtime.Value, nsubs int) ([]int, error) {
	var shape []int
	numel := 0
	switch v := target.(type) {
	case *runtime.Num:
		shape, numel = []int{1, 1}, 1
	case *runtime.Str:
		shape, numel = []int{1, len(v.V)}, len(v.V)
	case *runtime.Array:
		shape, numel = v.Shape(), v.NumEl()
	case *runtime.Cell:
		shape, numel = []int{v.Rows, v.Cols}, v.NumEl()
	default:
		return nil, &runtime.TypeError{Msg: fmt.Sprintf("Value of class %s cannot be indexed", target.Kind())}
	}
	if nsubs == 1 {
		return []int{numel}, nil
	}
	// The last subscript folds every remaining dimension; subscripts past
	// the rank see singleton dimensions.
	dims := make([]int, nsubs)
	for i := range dims {
		switch {
		case i >= len(shape):
			dims[i] = 1
		case i == nsubs-1:
			n := 1
			for _, d := range shape[i:] {
				n *= d
			}
			dims[i] = n
		default:
			dims[i] = shape[i]
		}
	}
	return dims, nil
}

func (ev *Evaluator) evalMember(env Env, n *ast.Member) (runtime.Value, error) {
	target, err := ev.evalValue(env, n.Target)
	if err != nil {
		return nil, err
	}
	switch v := target.(type) {
	case *runtime.Struct:
		return v.Get(n.Field)
	case *runtime.Object:
		if field, err := v.Fields.Get(n.Field); err == nil {
			return field, nil
		}
		if method, ok := v.Methods[n.Field]; ok {
			return bindMethod(v, method), nil
		}
		if v.HasProp(n.Field) {
			return nil, &runtime.ArgumentError{
				Msg: fmt.Sprintf("Property '%s' of class %s is used before it is set", n.Field, v.Class),
			}
		}
		return nil, &runtime.TypeError{Msg: fmt.Sprintf("No field or method '%s' in class %s", n.Field, v.Class)}
	default:
		return nil, &runtime.TypeError{Msg: fmt.Sprintf("Field access requires a struct, got %s", target.Kind())}
	}
}

// bindMethod curries the receiver in as the first argument.
func bindMethod(self *runtime.Object, method *runtime.Callable) *runtime.Callable {
	return &runtime.Callable{
		Name:       method.Name,
		Class:      method.Class,
		NumParams:  method.NumParams - 1,
		HasVarargs: method.HasVarargs,
		NumOutputs: method.NumOutputs,
		Invoke: func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			return method.Invoke(append([]runtime.Value{self}, args...), nargout)
		},
	}
}

//-----------------------------------------------------------------------------
// Literals
//-----------------------------------------------------------------------------

func (ev *Evaluator) evalMatrix(env Env, n *ast.Matrix) (runtime.Value, error) {
	if len(n.Rows) == 0 {
		return runtime.Empty(), nil
	}

	// A single row of strings concatenates as text.
	if len(n.Rows) == 1 {
		if s, ok, err := ev.tryStringRow(env, n.Rows[0]); err != nil {
			return nil, err
		} else if ok {
			return s, nil
		}
	}

	rowArrays := make([]*runtime.Array, 0, len(n.Rows))
	for _, row := range n.Rows {
		parts := make([]*runtime.Array, 0, len(row))
		for _, elem := range row {
			v, err := ev.evalValue(env, elem)
			if err != nil {
				return nil, err
			}
			arr, err := runtime.ToArray(v)
			if err != nil {
				return nil, err
			}
			parts = append(parts, arr)
		}
		joined, err := runtime.HCat(parts...)
		if err != nil {
			return nil, err
		}
		rowArrays = append(rowArrays, joined)
	}
	return runtime.VCat(rowArrays...)
}

func (ev *Evaluator) tryStringRow(env Env, row []ast.Node) (runtime.Value, bool, error) {
	vals := make([]runtime.Value, len(row))
	for i, elem := range row {
		if _, isLit := elem.(*ast.String); !isLit {
			if _, isVar := elem.(*ast.Variable); !isVar {
				return nil, false, nil
			}
		}
		v, err := ev.evalValue(env, elem)
		if err != nil {
			return nil, false, err
		}
		if v.Kind() != runtime.KindStr {
			return nil, false, nil
		}
		vals[i] = v
	}
	var b strings.Builder
	for _, v := range vals {
		b.WriteString(v.(*runtime.Str).V)
	}
	return runtime.NewStr(b.String()), true, nil
}

func (ev *Evaluator) evalCell(env Env, n *ast.CellArray) (runtime.Value, error) {
	if len(n.Rows) == 0 {
		return &runtime.Cell{}, nil
	}
	cols := len(n.Rows[0])
	for _, row := range n.Rows {
		if len(row) != cols {
			return nil, &runtime.DimensionError{Msg: "Cell array rows must have equal lengths"}
		}
	}
	rows := len(n.Rows)
	items := make([]runtime.Value, rows*cols)
	for r, row := range n.Rows {
		for c, elem := range row {
			v, err := ev.evalValue(env, elem)
			if err != nil {
				return nil, err
			}
			items[c*rows+r] = v
		}
	}
	return &runtime.Cell{Rows: rows, Cols: cols, Items: items}, nil
}
