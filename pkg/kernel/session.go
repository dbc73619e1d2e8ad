package kernel

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/interp"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// Session is one interactive execution context: a user workspace, a global
// table, the function registry and the search path. Sessions are not safe
// for concurrent use; each connection or REPL owns its own.
type Session struct {
	cfg *Config

	ws    *interp.Scope
	ev    *interp.Evaluator
	reg   *Registry
	paths *PathManager

	// out buffers display output produced during one Run call.
	out bytes.Buffer

	ticStart time.Time
	depth    int

	// toggles for the stateful environment commands.
	holdOn bool
	format string
}

// NewSession builds a session rooted at the current working directory.
func NewSession(cfg *Config) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxRecursion == 0 {
		c := *cfg
		c.MaxRecursion = DefaultMaxRecursion
		cfg = &c
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	s := &Session{
		cfg:    cfg,
		reg:    NewRegistry(),
		paths:  NewPathManager(cwd, cfg.Paths),
		format: "short",
	}
	if cfg.Format != "" {
		s.format = cfg.Format
	}
	for _, name := range cfg.Toolboxes {
		s.paths.AddPath(filepath.Join(cfg.ToolboxRoot(cwd), name))
	}
	s.ev = interp.New(s.resolve)
	s.ws = interp.NewScope(s.ev.Globals)
	s.ws.Bind("ans", runtime.NewNum(0))
	s.installBuiltins()
	return s
}

// Workspace exposes the user scope, mainly for tests and the REPL's
// completion.
func (s *Session) Workspace() *interp.Scope { return s.ws }

// RegisterBuiltin installs an externally supplied callable into the
// protected function surface. Hosts use this to hand the kernel numeric,
// plotting or I/O routines; the kernel treats each as an opaque value bound
// to a name, and the name survives clear.
func (s *Session) RegisterBuiltin(fn *runtime.Callable) {
	s.reg.RegisterBuiltin(fn)
}

// Paths exposes the search path manager.
func (s *Session) Paths() *PathManager { return s.paths }

// resolve is the evaluator's fallback for names that are not workspace
// variables.
func (s *Session) resolve(name string) (runtime.Value, bool) {
	fn, ok := s.reg.Resolve(name)
	if !ok {
		return nil, false
	}
	return fn, true
}

// ClearUser resets the workspace to its initial state: all user variables
// and globals dropped, ans rebound to zero. Builtins are untouched.
func (s *Session) ClearUser() {
	s.ws.Reset()
	s.ev.Globals.Clear()
	s.ws.Bind("ans", runtime.NewNum(0))
}

// ClearNames drops specific variables. The reserved ans binding is never
// deleted, only reset to zero.
func (s *Session) ClearNames(names []string) {
	for _, n := range names {
		if n == "ans" {
			s.ws.Bind("ans", runtime.NewNum(0))
			continue
		}
		s.ws.Delete(n)
	}
}

//-----------------------------------------------------------------------------
// Definition registration and lazy loading
//-----------------------------------------------------------------------------

// defineFunction registers a function definition from an executed buffer.
func (s *Session) defineFunction(def *ast.FunctionDef) {
	s.reg.Register(s.guarded(s.ev.MakeFunction(def, s.ev.Globals)))
}

// defineClass registers a classdef constructor.
func (s *Session) defineClass(def *ast.ClassDef) {
	s.reg.Register(s.ev.MakeConstructor(def, s.ev.Globals))
}

// guarded wraps a callable with the recursion bound.
func (s *Session) guarded(fn *runtime.Callable) *runtime.Callable {
	inner := fn.Invoke
	fn.Invoke = func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if s.depth >= s.cfg.MaxRecursion {
			return nil, &runtime.ArgumentError{
				Msg: fmt.Sprintf("Maximum recursion limit of %d reached", s.cfg.MaxRecursion),
			}
		}
		s.depth++
		defer func() { s.depth-- }()
		return inner(args, nargout)
	}
	return fn
}

// loadFromPath tries to satisfy an undefined name from the search path.
// Each name is attempted once per path state; the executor retries the
// failing statement only when this reports success.
func (s *Session) loadFromPath(name string) bool {
	if s.reg.MarkAttempted(name) {
		return false
	}
	file := s.paths.Find(name)
	if file == "" {
		return false
	}
	prog, err := loadFile(file)
	if err != nil {
		return false
	}

	if main, subs, isFunc := classifyFile(prog); isFunc {
		// The file's primary function answers to the file name; trailing
		// definitions are registered as siblings.
		if main.Name != name {
			renamed := *main
			renamed.Name = name
			main = &renamed
		}
		s.defineFunction(main)
		for _, sub := range subs {
			s.defineFunction(sub)
		}
		return true
	}

	s.reg.Register(s.makeScript(name, prog))
	return true
}

// makeScript wraps a statement sequence as a callable that runs against the
// live session workspace, the way script files behave.
func (s *Session) makeScript(name string, prog *ast.Program) *runtime.Callable {
	return &runtime.Callable{
		Name:  name,
		Class: runtime.CallScript,
		Invoke: func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if len(args) > 0 {
				return nil, &runtime.ArgumentError{
					Msg: fmt.Sprintf("Attempt to execute script '%s' with input arguments", name),
				}
			}
			for _, stmt := range prog.Stmts {
				if def, ok := stmt.(*ast.FunctionDef); ok {
					s.defineFunction(def)
					continue
				}
				if err := s.ev.ExecStmt(s.ws, stmt); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},
	}
}

//-----------------------------------------------------------------------------
// Display plumbing shared with builtins
//-----------------------------------------------------------------------------

func (s *Session) print(text string) {
	s.out.WriteString(text)
}

func (s *Session) println(text string) {
	s.out.WriteString(text)
	s.out.WriteByte('\n')
}

// drainOutput returns and clears the accumulated display output.
func (s *Session) drainOutput() string {
	text := s.out.String()
	s.out.Reset()
	return text
}
