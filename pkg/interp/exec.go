package interp

import (
	"errors"
	"fmt"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// Loop and return control flow travels as sentinel errors so nested blocks
// unwind without extra bookkeeping.
var (
	errBreak    = errors.New("break outside loop")
	errContinue = errors.New("continue outside loop")
	errReturn   = errors.New("return outside function")
)

func isFlowSignal(err error) bool {
	return errors.Is(err, errBreak) || errors.Is(err, errContinue) || errors.Is(err, errReturn)
}

// RuntimeError carries a caught user-level error through try/catch with its
// message available to the catch variable.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// ExecStmt runs one statement. Errors other than control-flow signals come
// back tagged with the failing source line.
func (ev *Evaluator) ExecStmt(env Env, node ast.Node) error {
	switch n := node.(type) {
	case *ast.Assign:
		value, err := ev.evalValue(env, n.Value)
		if err != nil {
			return withLine(err, n.Pos())
		}
		return withLine(ev.assignTo(env, n.Target, value.Copy()), n.Pos())

	case *ast.MultiAssign:
		return withLine(ev.execMultiAssign(env, n), n.Pos())

	case *ast.IfBlock:
		return ev.execIf(env, n)

	case *ast.SwitchBlock:
		return ev.execSwitch(env, n)

	case *ast.TryBlock:
		return ev.execTry(env, n)

	case *ast.ForLoop:
		return ev.execFor(env, n)

	case *ast.WhileLoop:
		return ev.execWhile(env, n)

	case *ast.Break:
		return errBreak

	case *ast.Continue:
		return errContinue

	case *ast.Return:
		return errReturn

	case *ast.GlobalDecl:
		for _, name := range n.Names {
			env.DeclareGlobal(name)
		}
		return nil

	case *ast.Variable:
		// A bare reference to a bound variable displays it without touching
		// ans; only resolved function results land in ans.
		v, err := ev.Eval(env, n)
		if err != nil {
			return withLine(err, n.Pos())
		}
		if _, bound := env.Lookup(n.Name); bound {
			return nil
		}
		if v != nil {
			env.Bind("ans", v.Copy())
		}
		return nil

	default:
		// Expression statement: evaluate for effect, bind ans when a value
		// comes back.
		v, err := ev.Eval(env, node)
		if err != nil {
			return withLine(err, node.Pos())
		}
		if v != nil {
			env.Bind("ans", v.Copy())
		}
		return nil
	}
}

// ExecBlock runs a statement list, stopping at the first error or flow
// signal.
func (ev *Evaluator) ExecBlock(env Env, body []ast.Node) error {
	for _, stmt := range body {
		if err := ev.ExecStmt(env, stmt); err != nil {
			return err
		}
	}
	return nil
}

//-----------------------------------------------------------------------------
// Assignment
//-----------------------------------------------------------------------------

// assignTo writes rhs through an assignment target, rebuilding containers
// outside-in so the workspace only ever sees complete values.
func (ev *Evaluator) assignTo(env Env, target ast.Node, rhs runtime.Value) error {
	switch t := target.(type) {
	case *ast.Variable:
		env.Bind(t.Name, rhs)
		return nil

	case *ast.Member:
		base, err := ev.lookupForUpdate(env, t.Target)
		if err != nil {
			return err
		}
		var updated runtime.Value
		switch container := base.(type) {
		case nil:
			s := runtime.NewStruct()
			s.Set(t.Field, rhs)
			updated = s
		case *runtime.Struct:
			s := container.Copy().(*runtime.Struct)
			s.Set(t.Field, rhs)
			updated = s
		case *runtime.Object:
			o := container.Copy().(*runtime.Object)
			o.Fields.Set(t.Field, rhs)
			updated = o
		default:
			return &runtime.TypeError{Msg: fmt.Sprintf("Cannot set field on a %s value", base.Kind())}
		}
		return ev.assignTo(env, t.Target, updated)

	case *ast.Call:
		base, err := ev.lookupForUpdate(env, t.Target)
		if err != nil {
			return err
		}
		endTarget := base
		if endTarget == nil {
			endTarget = runtime.Empty()
		}
		subs, err := ev.evalSubscripts(env, endTarget, t.Args)
		if err != nil {
			return err
		}
		updated, err := runtime.SetIndex(base, subs, rhs)
		if err != nil {
			return err
		}
		return ev.assignTo(env, t.Target, updated)

	default:
		return fmt.Errorf("invalid assignment target %T", target)
	}
}

// lookupForUpdate reads the current value of an assignment path, returning
// nil when the base name is unbound so the write can create it.
func (ev *Evaluator) lookupForUpdate(env Env, node ast.Node) (runtime.Value, error) {
	if v, ok := node.(*ast.Variable); ok {
		if bound, found := env.Lookup(v.Name); found {
			return bound, nil
		}
		return nil, nil
	}
	return ev.evalValue(env, node)
}

func (ev *Evaluator) execMultiAssign(env Env, n *ast.MultiAssign) error {
	call, ok := n.Value.(*ast.Call)
	if !ok {
		if len(n.Targets) != 1 {
			return &runtime.ArgumentError{Msg: "Too many output arguments"}
		}
		v, err := ev.evalValue(env, n.Value)
		if err != nil {
			return err
		}
		env.Bind(n.Targets[0], v.Copy())
		return nil
	}

	results, err := ev.evalCall(env, call, len(n.Targets))
	if err != nil {
		return err
	}
	if len(results) < len(n.Targets) {
		return &runtime.ArgumentError{
			Msg: fmt.Sprintf("Requested %d outputs, function returned %d", len(n.Targets), len(results)),
		}
	}
	for i, name := range n.Targets {
		env.Bind(name, results[i].Copy())
	}
	return nil
}

//-----------------------------------------------------------------------------
// Control flow
//-----------------------------------------------------------------------------

func (ev *Evaluator) execIf(env Env, n *ast.IfBlock) error {
	for _, clause := range n.Clauses {
		cond, err := ev.evalValue(env, clause.Cond)
		if err != nil {
			return withLine(err, clause.Cond.Pos())
		}
		truth, err := runtime.IsTrue(cond)
		if err != nil {
			return withLine(err, clause.Cond.Pos())
		}
		if truth {
			return ev.ExecBlock(env, clause.Body)
		}
	}
	if n.Else != nil {
		return ev.ExecBlock(env, n.Else)
	}
	return nil
}

func (ev *Evaluator) execSwitch(env Env, n *ast.SwitchBlock) error {
	subject, err := ev.evalValue(env, n.Subject)
	if err != nil {
		return withLine(err, n.Pos())
	}
	for _, c := range n.Cases {
		val, err := ev.evalValue(env, c.Value)
		if err != nil {
			return withLine(err, c.Value.Pos())
		}
		if switchMatches(subject, val) {
			return ev.ExecBlock(env, c.Body)
		}
	}
	if n.Otherwise != nil {
		return ev.ExecBlock(env, n.Otherwise)
	}
	return nil
}

// switchMatches treats a cell case value as a membership set.
func switchMatches(subject, caseVal runtime.Value) bool {
	if set, ok := caseVal.(*runtime.Cell); ok {
		for _, item := range set.Items {
			if runtime.Equal(subject, item) {
				return true
			}
		}
		return false
	}
	return runtime.Equal(subject, caseVal)
}

func (ev *Evaluator) execTry(env Env, n *ast.TryBlock) error {
	err := ev.ExecBlock(env, n.Body)
	if err == nil || isFlowSignal(err) {
		return err
	}
	if n.CatchVar != "" {
		msg := err.Error()
		var le *LineError
		if errors.As(err, &le) {
			msg = le.Err.Error()
		}
		env.Bind(n.CatchVar, errorStruct(msg))
	}
	if n.Catch != nil {
		return ev.ExecBlock(env, n.Catch)
	}
	return nil
}

// errorStruct mirrors the message field of an exception object.
func errorStruct(msg string) *runtime.Struct {
	s := runtime.NewStruct()
	s.Set("message", runtime.NewStr(msg))
	return s
}

func (ev *Evaluator) execFor(env Env, n *ast.ForLoop) error {
	iter, err := ev.evalValue(env, n.Iter)
	if err != nil {
		return withLine(err, n.Pos())
	}
	items, err := forItems(iter)
	if err != nil {
		return withLine(err, n.Pos())
	}
	for _, item := range items {
		env.Bind(n.Var, item)
		err := ev.ExecBlock(env, n.Body)
		switch {
		case err == nil, errors.Is(err, errContinue):
		case errors.Is(err, errBreak):
			return nil
		default:
			return err
		}
	}
	return nil
}

// forItems yields one loop value per column: scalars for vectors, column
// vectors for matrices.
func forItems(iter runtime.Value) ([]runtime.Value, error) {
	switch v := iter.(type) {
	case *runtime.Num:
		return []runtime.Value{v}, nil
	case *runtime.Cell:
		return append([]runtime.Value(nil), v.Items...), nil
	case *runtime.Array:
		rows, cols := v.Dims()
		if rows == 1 {
			flat := v.Flatten()
			out := make([]runtime.Value, cols)
			for i, x := range flat {
				out[i] = runtime.NewComplex(x)
			}
			return out, nil
		}
		out := make([]runtime.Value, cols)
		for c := 1; c <= cols; c++ {
			col, err := runtime.Index(v, []runtime.Value{runtime.Colon, runtime.NewNum(float64(c))})
			if err != nil {
				return nil, err
			}
			out[c-1] = col
		}
		return out, nil
	default:
		return nil, &runtime.TypeError{Msg: fmt.Sprintf("Cannot iterate over a %s value", iter.Kind())}
	}
}

func (ev *Evaluator) execWhile(env Env, n *ast.WhileLoop) error {
	for {
		cond, err := ev.evalValue(env, n.Cond)
		if err != nil {
			return withLine(err, n.Cond.Pos())
		}
		truth, err := runtime.IsTrue(cond)
		if err != nil {
			return withLine(err, n.Cond.Pos())
		}
		if !truth {
			return nil
		}
		err = ev.ExecBlock(env, n.Body)
		switch {
		case err == nil, errors.Is(err, errContinue):
		case errors.Is(err, errBreak):
			return nil
		default:
			return err
		}
	}
}
