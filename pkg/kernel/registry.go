package kernel

import (
	"fmt"
	"os"
	"sync"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/parser"
	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// Registry is the function namespace: natively implemented builtins, user
// definitions from executed buffers, and units lazily loaded from the
// search path. Workspace variables shadow all of it; shadowing is undone by
// `clear`. Resolution is safe against concurrent registration.
type Registry struct {
	mu       sync.Mutex
	builtins map[string]*runtime.Callable
	funcs    map[string]*runtime.Callable

	// attempted records names whose path load already ran, successful or
	// not, so the executor's retry stays bounded.
	attempted map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builtins:  map[string]*runtime.Callable{},
		funcs:     map[string]*runtime.Callable{},
		attempted: map[string]bool{},
	}
}

// RegisterBuiltin installs a native function.
func (r *Registry) RegisterBuiltin(fn *runtime.Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[fn.Name] = fn
}

// Register installs a user function or script, shadowing any builtin of the
// same name.
func (r *Registry) Register(fn *runtime.Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[fn.Name] = fn
}

// Resolve finds a callable by name. User definitions win over builtins.
func (r *Registry) Resolve(name string) (*runtime.Callable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn, ok := r.funcs[name]; ok {
		return fn, true
	}
	fn, ok := r.builtins[name]
	return fn, ok
}

// IsBuiltin reports whether name is natively implemented.
func (r *Registry) IsBuiltin(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.builtins[name]
	return ok
}

// Names lists every resolvable name.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.builtins)+len(r.funcs))
	for n := range r.builtins {
		names = append(names, n)
	}
	for n := range r.funcs {
		if _, dup := r.builtins[n]; !dup {
			names = append(names, n)
		}
	}
	return names
}

// MarkAttempted records a load attempt and reports whether one already
// happened.
func (r *Registry) MarkAttempted(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempted[name] {
		return true
	}
	r.attempted[name] = true
	return false
}

// ResetAttempts forgets failed load attempts, e.g. after the path changes.
func (r *Registry) ResetAttempts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempted = map[string]bool{}
}

// ClearUserFunctions drops loaded and defined functions, keeping builtins.
func (r *Registry) ClearUserFunctions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs = map[string]*runtime.Callable{}
	r.attempted = map[string]bool{}
}

// classifyFile decides whether a parsed file is a function file or a
// script: a file whose first meaningful unit is a function definition is a
// function file, anything else runs as a script against the caller's
// workspace.
func classifyFile(prog *ast.Program) (*ast.FunctionDef, []*ast.FunctionDef, bool) {
	var defs []*ast.FunctionDef
	script := false
	for _, stmt := range prog.Stmts {
		if def, ok := stmt.(*ast.FunctionDef); ok {
			defs = append(defs, def)
			continue
		}
		script = true
	}
	if script || len(defs) == 0 {
		return nil, defs, false
	}
	return defs[0], defs[1:], true
}

// loadFile parses a source file from the search path.
func loadFile(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parser.ParseSource(string(data))
}
