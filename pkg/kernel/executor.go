package kernel

import (
	"errors"
	"fmt"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/codegen"
	"github.com/Prime01-oss/MathexLab/pkg/interp"
	"github.com/Prime01-oss/MathexLab/pkg/lexer"
	"github.com/Prime01-oss/MathexLab/pkg/parser"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// Outcome is the result of running one source buffer: the display output in
// execution order, and the formatted diagnostic when execution stopped.
type Outcome struct {
	Output string
	Err    string
}

// OK reports error-free execution.
func (o Outcome) OK() bool { return o.Err == "" }

// Run executes a source buffer against the session. Execution stops at the
// first failing statement; everything already displayed stays in Output.
func (s *Session) Run(src string) Outcome {
	prog, err := codegen.Generate(src)
	if err != nil {
		return Outcome{Err: formatFrontendError(err)}
	}

	for _, unit := range prog.Units {
		switch unit.Class {
		case codegen.ClassFuncDef:
			s.defineFunction(unit.Node.(*ast.FunctionDef))
			continue
		case codegen.ClassClassDef:
			s.defineClass(unit.Node.(*ast.ClassDef))
			continue
		}

		ansBefore, _ := s.ws.Lookup("ans")
		if err := s.runUnit(unit); err != nil {
			return Outcome{
				Output: s.drainOutput(),
				Err:    formatError(err, unit.SrcLine),
			}
		}

		if !unit.Suppressed {
			s.echo(unit, ansBefore)
		}
	}

	return Outcome{Output: s.drainOutput()}
}

// runUnit executes one statement with the lazy-load retry: when execution
// fails on an undefined name that the search path can satisfy, the unit
// runs once more. A second failure on the same name is final.
func (s *Session) runUnit(unit codegen.Unit) error {
	const maxAttempts = 2
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = s.ev.ExecStmt(s.ws, unit.Node)
		if err == nil {
			return nil
		}
		var nameErr *runtime.NameError
		if !errors.As(err, &nameErr) {
			return err
		}
		if !s.loadFromPath(nameErr.Name) {
			return err
		}
	}
	return err
}

// echo displays the names a statement bound. Bare variable references echo
// under their own name; other expressions echo through ans only when the
// statement actually rebound it, so void calls stay silent.
func (s *Session) echo(unit codegen.Unit, ansBefore runtime.Value) {
	_, bareRef := unit.Node.(*ast.Variable)
	for _, name := range unit.EchoNames {
		v, ok := s.ws.Lookup(name)
		if ok && (bareRef || name != "ans" || v != ansBefore) {
			s.println(runtime.Display(name, v))
			continue
		}
		if !ok && unit.Class == codegen.ClassExpr {
			// The name resolved outside the workspace; its result, if any,
			// landed in ans.
			if av, bound := s.ws.Lookup("ans"); bound && av != ansBefore {
				s.println(runtime.Display("ans", av))
			}
		}
	}
}

// formatError renders the user-facing diagnostic, locating the failing
// source line from the innermost tagged statement.
func formatError(err error, fallbackLine int) string {
	line := fallbackLine
	var le *interp.LineError
	if errors.As(err, &le) {
		line = le.Line
		err = le.Err
	}
	return fmt.Sprintf("Error (Line %d): %s", line, err.Error())
}

// formatFrontendError renders lex and parse failures in the same shape as
// execution errors.
func formatFrontendError(err error) string {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return fmt.Sprintf("Error (Line %d): %s", lexErr.Line, lexErr.Error())
	}
	var synErr *parser.SyntaxError
	if errors.As(err, &synErr) {
		return fmt.Sprintf("Error (Line %d): %s", synErr.Tok.Line, synErr.Error())
	}
	return "Error: " + err.Error()
}
