package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// missingInputs rewrites an undefined-parameter failure into the call-site
// diagnostic when the caller supplied too few arguments. The body's own
// errors pass through untouched.
func missingInputs(err error, short bool) error {
	if err == nil || !short {
		return err
	}
	var argErr *runtime.ArgumentError
	if errors.As(err, &argErr) && strings.HasPrefix(argErr.Msg, "Input argument ") {
		return &runtime.ArgumentError{Msg: "Not enough input arguments"}
	}
	return err
}

// MakeFunction compiles a function definition into a callable. Each
// invocation runs the body in a fresh scope linked to the session globals;
// optional parameters bind only as far as the caller supplied arguments,
// with nargin and varargin reflecting the actual call.
func (ev *Evaluator) MakeFunction(def *ast.FunctionDef, globals *Globals) *runtime.Callable {
	params := def.Params
	hasVarargs := len(params) > 0 && params[len(params)-1] == "varargin"
	fixed := params
	if hasVarargs {
		fixed = params[:len(params)-1]
	}

	return &runtime.Callable{
		Name:       def.Name,
		Class:      runtime.CallFunction,
		NumParams:  len(fixed),
		HasVarargs: hasVarargs,
		NumOutputs: len(def.Outputs),
		Invoke: func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if len(args) > len(fixed) && !hasVarargs {
				return nil, &runtime.ArgumentError{
					Msg: fmt.Sprintf("Too many input arguments to '%s'", def.Name),
				}
			}

			scope := NewScope(globals)
			for i, name := range fixed {
				if i < len(args) {
					scope.Bind(name, args[i].Copy())
				} else {
					scope.MarkUnset(name)
				}
			}
			if hasVarargs {
				rest := args[min(len(args), len(fixed)):]
				items := make([]runtime.Value, len(rest))
				for i, a := range rest {
					items[i] = a.Copy()
				}
				scope.Bind("varargin", &runtime.Cell{Rows: 1, Cols: len(items), Items: items})
			}
			scope.Bind("nargin", runtime.NewNum(float64(len(args))))
			scope.Bind("nargout", runtime.NewNum(float64(nargout)))

			if err := ev.ExecBlock(scope, def.Body); err != nil && !errors.Is(err, errReturn) {
				return nil, missingInputs(err, len(args) < len(fixed))
			}

			want := nargout
			if want < 1 {
				want = 1
			}
			if want > len(def.Outputs) {
				want = len(def.Outputs)
			}
			var results []runtime.Value
			for i := 0; i < want; i++ {
				v, ok := scope.Lookup(def.Outputs[i])
				if !ok {
					if i == 0 {
						// An unassigned sole output surfaces as a void result;
						// the caller errors only if the value is used.
						break
					}
					return nil, &runtime.ArgumentError{
						Msg: fmt.Sprintf("Output argument '%s' not assigned during call to '%s'",
							def.Outputs[i], def.Name),
					}
				}
				results = append(results, v.Copy())
			}
			return results, nil
		},
	}
}

// makeAnonymous builds a handle for `@(params) expr`, capturing the current
// values of the body's free variables.
func (ev *Evaluator) makeAnonymous(env Env, n *ast.AnonymousFunc) *runtime.Callable {
	params := map[string]bool{}
	for _, p := range n.Params {
		params[p] = true
	}
	captured := map[string]runtime.Value{}
	for name := range freeNames(n.Body, map[string]bool{}) {
		if params[name] {
			continue
		}
		if v, ok := env.Lookup(name); ok {
			captured[name] = v.Copy()
		}
	}

	return &runtime.Callable{
		Name:      "anonymous",
		Class:     runtime.CallFunction,
		NumParams: len(n.Params),
		Invoke: func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if len(args) > len(n.Params) {
				return nil, &runtime.ArgumentError{Msg: "Too many input arguments"}
			}
			scope := NewScope(ev.Globals)
			for name, v := range captured {
				scope.Bind(name, v)
			}
			for i, name := range n.Params {
				if i < len(args) {
					scope.Bind(name, args[i].Copy())
				} else {
					scope.MarkUnset(name)
				}
			}
			v, err := ev.evalValue(scope, n.Body)
			if err != nil {
				return nil, missingInputs(err, len(args) < len(n.Params))
			}
			return []runtime.Value{v}, nil
		},
	}
}

// freeNames collects identifier references in an expression subtree.
func freeNames(node ast.Node, acc map[string]bool) map[string]bool {
	switch n := node.(type) {
	case *ast.Variable:
		acc[n.Name] = true
	case *ast.FuncHandle:
		acc[n.Name] = true
	case *ast.BinOp:
		freeNames(n.Left, acc)
		freeNames(n.Right, acc)
	case *ast.UnaryOp:
		freeNames(n.Operand, acc)
	case *ast.Transpose:
		freeNames(n.Target, acc)
	case *ast.Call:
		freeNames(n.Target, acc)
		for _, a := range n.Args {
			freeNames(a, acc)
		}
	case *ast.Member:
		freeNames(n.Target, acc)
	case *ast.Range:
		freeNames(n.Start, acc)
		if n.Step != nil {
			freeNames(n.Step, acc)
		}
		freeNames(n.End, acc)
	case *ast.Matrix:
		for _, row := range n.Rows {
			for _, e := range row {
				freeNames(e, acc)
			}
		}
	case *ast.CellArray:
		for _, row := range n.Rows {
			for _, e := range row {
				freeNames(e, acc)
			}
		}
	case *ast.AnonymousFunc:
		inner := freeNames(n.Body, map[string]bool{})
		nested := map[string]bool{}
		for _, p := range n.Params {
			nested[p] = true
		}
		for name := range inner {
			if !nested[name] {
				acc[name] = true
			}
		}
	}
	return acc
}

// MakeConstructor wires a classdef into a callable that builds instances.
// Methods close over the evaluator; the constructor, when present, runs
// with the fresh instance as its first argument.
func (ev *Evaluator) MakeConstructor(def *ast.ClassDef, globals *Globals) *runtime.Callable {
	methods := map[string]*runtime.Callable{}
	var ctor *ast.FunctionDef
	for _, m := range def.Methods {
		if m.Name == def.Name {
			ctor = m
			continue
		}
		methods[m.Name] = ev.MakeFunction(m, globals)
	}

	return &runtime.Callable{
		Name:  def.Name,
		Class: runtime.CallFunction,
		Invoke: func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			// Declared properties stay unset until the constructor or a
			// method assigns them.
			obj := &runtime.Object{
				Class:   def.Name,
				Props:   def.Properties,
				Fields:  runtime.NewStruct(),
				Methods: methods,
			}
			if ctor == nil {
				return []runtime.Value{obj}, nil
			}

			// The constructor binds the instance to its output name and
			// mutates it through ordinary assignments.
			scope := NewScope(globals)
			if len(ctor.Outputs) != 1 {
				return nil, &runtime.ArgumentError{
					Msg: fmt.Sprintf("Constructor of '%s' must return the instance", def.Name),
				}
			}
			scope.Bind(ctor.Outputs[0], obj)
			for i, name := range ctor.Params {
				if i < len(args) {
					scope.Bind(name, args[i].Copy())
				} else {
					scope.MarkUnset(name)
				}
			}
			scope.Bind("nargin", runtime.NewNum(float64(len(args))))
			if err := ev.ExecBlock(scope, ctor.Body); err != nil && !errors.Is(err, errReturn) {
				return nil, err
			}
			out, ok := scope.Lookup(ctor.Outputs[0])
			if !ok {
				return nil, &runtime.ArgumentError{
					Msg: fmt.Sprintf("Constructor of '%s' did not produce an instance", def.Name),
				}
			}
			return []runtime.Value{out}, nil
		},
	}
}
