package interp

import (
	"errors"
	"math"
	"testing"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/parser"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// run executes src statement by statement against a fresh scope,
// registering function definitions so later statements can call them.
func run(t *testing.T, src string) *Scope {
	t.Helper()
	scope, err := tryRun(src)
	if err != nil {
		t.Fatalf("run(%q) returned error: %v", src, err)
	}
	return scope
}

func tryRun(src string) (*Scope, error) {
	prog, err := parser.ParseSource(src)
	if err != nil {
		return nil, err
	}
	funcs := map[string]*runtime.Callable{}
	ev := New(func(name string) (runtime.Value, bool) {
		fn, ok := funcs[name]
		return fn, ok
	})
	scope := NewScope(ev.Globals)
	for _, stmt := range prog.Stmts {
		switch def := stmt.(type) {
		case *ast.FunctionDef:
			funcs[def.Name] = ev.MakeFunction(def, ev.Globals)
		case *ast.ClassDef:
			funcs[def.Name] = ev.MakeConstructor(def, ev.Globals)
		default:
			if err := ev.ExecStmt(scope, stmt); err != nil {
				return scope, err
			}
		}
	}
	return scope, nil
}

func realVar(t *testing.T, s *Scope, name string) float64 {
	t.Helper()
	v, ok := s.Lookup(name)
	if !ok {
		t.Fatalf("variable %q not bound", name)
	}
	f, err := runtime.AsReal(v)
	if err != nil {
		t.Fatalf("variable %q: %v", name, err)
	}
	return f
}

func TestLiteralAssignment(t *testing.T) {
	s := run(t, "x = 42;")
	if got := realVar(t, s, "x"); got != 42 {
		t.Fatalf("x = %v, want 42", got)
	}
}

func TestImaginaryLiteral(t *testing.T) {
	s := run(t, "z = 3 + 4i;")
	v, _ := s.Lookup("z")
	c, err := runtime.AsScalar(v)
	if err != nil {
		t.Fatalf("AsScalar error: %v", err)
	}
	if c != complex(3, 4) {
		t.Fatalf("z = %v, want 3+4i", c)
	}
}

func TestExpressionBindsAns(t *testing.T) {
	s := run(t, "2 + 3;")
	if got := realVar(t, s, "ans"); got != 5 {
		t.Fatalf("ans = %v, want 5", got)
	}
}

func TestBareVariableReferenceKeepsAns(t *testing.T) {
	s := run(t, "2 + 3;\nx = 7;\nx")
	if got := realVar(t, s, "ans"); got != 5 {
		t.Fatalf("ans = %v, want 5 after referencing x", got)
	}
}

func TestCopyOnAssignment(t *testing.T) {
	s := run(t, "A = [1 2; 3 4];\nB = A;\nB(1,1) = 99;")
	a, _ := s.Lookup("A")
	v, err := runtime.Index(a, []runtime.Value{runtime.NewNum(1), runtime.NewNum(1)})
	if err != nil {
		t.Fatalf("Index error: %v", err)
	}
	if v.(*runtime.Num).V != 1 {
		t.Fatalf("A(1,1) = %v after modifying B, want 1", v.(*runtime.Num).V)
	}
}

func TestIndexedAssignmentAutoExpands(t *testing.T) {
	s := run(t, "v = [1 2];\nv(5) = 9;")
	v, _ := s.Lookup("v")
	arr := v.(*runtime.Array)
	if arr.NumEl() != 5 {
		t.Fatalf("numel(v) = %d, want 5", arr.NumEl())
	}
	if arr.Flatten()[2] != 0 {
		t.Fatalf("v(3) = %v, want 0 (zero fill)", arr.Flatten()[2])
	}
}

func TestAssignmentToFreshNameViaIndex(t *testing.T) {
	s := run(t, "w(3) = 7;")
	w, _ := s.Lookup("w")
	if w.(*runtime.Array).NumEl() != 3 {
		t.Fatalf("numel(w) = %d, want 3", w.(*runtime.Array).NumEl())
	}
}

func TestEndInSubscript(t *testing.T) {
	s := run(t, "v = [10 20 30];\nx = v(end);\ny = v(end-1);")
	if got := realVar(t, s, "x"); got != 30 {
		t.Fatalf("v(end) = %v, want 30", got)
	}
	if got := realVar(t, s, "y"); got != 20 {
		t.Fatalf("v(end-1) = %v, want 20", got)
	}
}

func TestEndRangeSubscript(t *testing.T) {
	s := run(t, "v = [10 20 30 40];\nx = v(2:end);")
	v, _ := s.Lookup("x")
	if v.(*runtime.Array).NumEl() != 3 {
		t.Fatalf("numel(v(2:end)) = %d, want 3", v.(*runtime.Array).NumEl())
	}
}

func TestEndOutsideIndexFails(t *testing.T) {
	_, err := tryRun("v = [1 2];\nx = 1 + end;")
	if err == nil {
		t.Fatalf("end outside subscript succeeded, want error")
	}
}

func TestMatrixLiteralConcatenatesBlocks(t *testing.T) {
	s := run(t, "a = [1 2];\nM = [a a];")
	m, _ := s.Lookup("M")
	if m.(*runtime.Array).NumEl() != 4 {
		t.Fatalf("numel([a a]) = %d, want 4", m.(*runtime.Array).NumEl())
	}
}

func TestStringRowConcat(t *testing.T) {
	s := run(t, "p = 'ab';\nq = [p 'cd'];")
	q, _ := s.Lookup("q")
	str, ok := q.(*runtime.Str)
	if !ok || str.V != "abcd" {
		t.Fatalf("[p 'cd'] = %#v, want 'abcd'", q)
	}
}

func TestIfElse(t *testing.T) {
	s := run(t, "x = -2;\nif x > 0\ns = 1;\nelseif x == 0\ns = 0;\nelse\ns = -1;\nend")
	if got := realVar(t, s, "s"); got != -1 {
		t.Fatalf("s = %v, want -1", got)
	}
}

func TestWhileWithBreak(t *testing.T) {
	s := run(t, "n = 0;\nwhile 1\nn = n + 1;\nif n >= 4\nbreak\nend\nend")
	if got := realVar(t, s, "n"); got != 4 {
		t.Fatalf("n = %v, want 4", got)
	}
}

func TestForWithContinue(t *testing.T) {
	s := run(t, "total = 0;\nfor k = 1:5\nif k == 3\ncontinue\nend\ntotal = total + k;\nend")
	if got := realVar(t, s, "total"); got != 12 {
		t.Fatalf("total = %v, want 12 (3 skipped)", got)
	}
}

func TestForIteratesColumns(t *testing.T) {
	s := run(t, "M = [1 2; 3 4];\nlast = 0;\nfor col = M\nlast = col(2);\nend")
	if got := realVar(t, s, "last"); got != 4 {
		t.Fatalf("last = %v, want 4 (second column bottom)", got)
	}
}

func TestSwitchMembership(t *testing.T) {
	s := run(t, "mode = 'b';\nswitch mode\ncase {'a', 'b'}\nr = 1;\notherwise\nr = 0;\nend")
	if got := realVar(t, s, "r"); got != 1 {
		t.Fatalf("r = %v, want 1 (cell case matches by membership)", got)
	}
}

func TestTryCatchBindsMessage(t *testing.T) {
	s := run(t, "try\nx = nosuchthing;\ncatch err\nm = err.message;\nend")
	m, ok := s.Lookup("m")
	if !ok {
		t.Fatalf("catch body did not run")
	}
	if _, isStr := m.(*runtime.Str); !isStr {
		t.Fatalf("err.message = %#v, want string", m)
	}
}

func TestTryCatchSwallowsError(t *testing.T) {
	s := run(t, "ok = 0;\ntry\nx = nosuchthing;\ncatch\nok = 1;\nend")
	if got := realVar(t, s, "ok"); got != 1 {
		t.Fatalf("ok = %v, want 1", got)
	}
}

func TestFunctionCallAndReturn(t *testing.T) {
	s := run(t, "function y = twice(x)\ny = 2*x;\nend\nr = twice(21);")
	if got := realVar(t, s, "r"); got != 42 {
		t.Fatalf("twice(21) = %v, want 42", got)
	}
}

func TestFunctionLocalsIsolated(t *testing.T) {
	s := run(t, "x = 1;\nfunction y = f(a)\nx = 100;\ny = a;\nend\nr = f(2);")
	if got := realVar(t, s, "x"); got != 1 {
		t.Fatalf("x = %v after call, want 1 (function locals stay local)", got)
	}
}

func TestNargin(t *testing.T) {
	s := run(t, "function n = count(a, b, c)\nn = nargin;\nend\nr = count(1, 2);")
	if got := realVar(t, s, "r"); got != 2 {
		t.Fatalf("nargin = %v, want 2", got)
	}
}

func TestOptionalArgDefault(t *testing.T) {
	src := "function y = f(a, b)\nif nargin < 2\nb = 10;\nend\ny = a + b;\nend\nr = f(1);"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 11 {
		t.Fatalf("f(1) = %v, want 11", got)
	}
}

func TestUnsetParamIsArgumentError(t *testing.T) {
	_, err := tryRun("function y = f(a, b)\ny = a + b;\nend\nr = f(1);")
	var argErr *runtime.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError (not NameError)", err)
	}
}

func TestTooManyArgsRejected(t *testing.T) {
	_, err := tryRun("function y = f(a)\ny = a;\nend\nr = f(1, 2);")
	var argErr *runtime.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError", err)
	}
}

func TestVarargin(t *testing.T) {
	src := "function n = f(a, varargin)\nn = nargin;\nend\nr = f(1, 2, 3, 4);"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 4 {
		t.Fatalf("nargin = %v, want 4", got)
	}
}

func TestMultiOutput(t *testing.T) {
	src := "function [a, b] = pair()\na = 1;\nb = 2;\nend\n[x, y] = pair();"
	s := run(t, src)
	if realVar(t, s, "x") != 1 || realVar(t, s, "y") != 2 {
		t.Fatalf("pair() outputs wrong")
	}
}

func TestSingleOutputFromMultiFunction(t *testing.T) {
	src := "function [a, b] = pair()\na = 1;\nb = 2;\nend\nx = pair();"
	s := run(t, src)
	if got := realVar(t, s, "x"); got != 1 {
		t.Fatalf("x = %v, want first output", got)
	}
}

func TestRecursion(t *testing.T) {
	src := "function y = fact(n)\nif n <= 1\ny = 1;\nelse\ny = n * fact(n-1);\nend\nend\nr = fact(5);"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 120 {
		t.Fatalf("fact(5) = %v, want 120", got)
	}
}

func TestReturnStopsFunction(t *testing.T) {
	src := "function y = f()\ny = 1;\nreturn\ny = 2;\nend\nr = f();"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 1 {
		t.Fatalf("r = %v, want 1 (return stops execution)", got)
	}
}

func TestAnonymousFunctionCapturesByValue(t *testing.T) {
	src := "a = 10;\nf = @(x) x + a;\na = 999;\nr = f(1);"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 11 {
		t.Fatalf("f(1) = %v, want 11 (capture at creation)", got)
	}
}

func TestFunctionHandle(t *testing.T) {
	src := "function y = twice(x)\ny = 2*x;\nend\nh = @twice;\nr = h(4);"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 8 {
		t.Fatalf("h(4) = %v, want 8", got)
	}
}

func TestGlobalSharedWithFunction(t *testing.T) {
	src := "global g\ng = 5;\nfunction bump()\nglobal g\ng = g + 1;\nend\nbump();\nr = g;"
	s := run(t, src)
	if got := realVar(t, s, "r"); got != 6 {
		t.Fatalf("g = %v, want 6", got)
	}
}

func TestShortCircuitSkipsRight(t *testing.T) {
	// The right side would fail if evaluated.
	s := run(t, "x = 0;\nr = x ~= 0 && nosuchthing(1);")
	if got := realVar(t, s, "r"); got != 0 {
		t.Fatalf("r = %v, want 0", got)
	}
}

func TestStructFieldAssignment(t *testing.T) {
	s := run(t, "p.x = 3;\np.y = 4;\nr = p.x + p.y;")
	if got := realVar(t, s, "r"); got != 7 {
		t.Fatalf("r = %v, want 7", got)
	}
}

func TestStructFieldIndexedAssignment(t *testing.T) {
	s := run(t, "p.v = [1 2];\np.v(3) = 9;\nr = p.v(3);")
	if got := realVar(t, s, "r"); got != 9 {
		t.Fatalf("r = %v, want 9", got)
	}
}

func TestUndefinedNameIsNameError(t *testing.T) {
	_, err := tryRun("x = missing + 1;")
	var nameErr *runtime.NameError
	if !errors.As(err, &nameErr) {
		t.Fatalf("error = %v, want *NameError", err)
	}
	if nameErr.Name != "missing" {
		t.Fatalf("NameError.Name = %q, want missing", nameErr.Name)
	}
}

func TestErrorCarriesLine(t *testing.T) {
	_, err := tryRun("x = 1;\ny = 2;\nz = missing;")
	var le *LineError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *LineError", err)
	}
	if le.Line != 3 {
		t.Fatalf("LineError.Line = %d, want 3", le.Line)
	}
}

func TestClassdefConstructorAndMethod(t *testing.T) {
	src := "classdef Point\nproperties\nx\ny\nend\nmethods\nfunction obj = Point(a, b)\nobj.x = a;\nobj.y = b;\nend\nfunction d = dist(obj)\nd = (obj.x^2 + obj.y^2)^0.5;\nend\nend\nend\np = Point(3, 4);\nr = p.dist();"
	s := run(t, src)
	if got := realVar(t, s, "r"); math.Abs(got-5) > 1e-12 {
		t.Fatalf("dist = %v, want 5", got)
	}
}

func TestClassPropertyUnsetUntilAssigned(t *testing.T) {
	src := "classdef Box\nproperties\nv\nw\nend\nmethods\nfunction obj = Box(a)\nobj.v = a;\nend\nend\nend\nb = Box(2);\ny = b.w;"
	_, err := tryRun(src)
	var argErr *runtime.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError for reading an unassigned property", err)
	}

	src = "classdef Box\nproperties\nv\nend\nmethods\nfunction obj = Box(a)\nobj.v = a;\nend\nend\nend\nb = Box(2);\ny = b.v;"
	s := run(t, src)
	if got := realVar(t, s, "y"); got != 2 {
		t.Fatalf("y = %v, want 2", got)
	}
}

func TestCallWithTooFewArguments(t *testing.T) {
	src := "function y = addone(x)\ny = x + 1;\nend\nz = addone();"
	_, err := tryRun(src)
	var argErr *runtime.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError", err)
	}
	if argErr.Msg != "Not enough input arguments" {
		t.Fatalf("message = %q, want %q", argErr.Msg, "Not enough input arguments")
	}
}

func TestCellLiteralAndIndex(t *testing.T) {
	s := run(t, "c = {1, 'two', 3};\nr = c(2);")
	r, _ := s.Lookup("r")
	str, ok := r.(*runtime.Str)
	if !ok || str.V != "two" {
		t.Fatalf("c(2) = %#v, want 'two'", r)
	}
}

func TestLogicalMaskAssignDoesNotGrow(t *testing.T) {
	s := run(t, "v = [1 5 3];\nv(v > 2) = 0;")
	v, _ := s.Lookup("v")
	arr := v.(*runtime.Array)
	if arr.NumEl() != 3 {
		t.Fatalf("numel = %d, want 3 (mask writes never grow)", arr.NumEl())
	}
	flat := arr.Flatten()
	if flat[0] != 1 || flat[1] != 0 || flat[2] != 0 {
		t.Fatalf("v = %v, want [1 0 0]", flat)
	}
}
