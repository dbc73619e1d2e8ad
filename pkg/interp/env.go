// Package interp evaluates lowered syntax trees against a workspace. It
// owns scoping (function locals, globals, captured anonymous-function
// state) and the control-flow plumbing; name resolution outside the
// workspace is delegated to the kernel through the Resolver hook.
package interp

import (
	"sort"

	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

// Env is a variable namespace. The evaluator reads and writes through it;
// the kernel's workspace and the function-local scopes both implement it.
type Env interface {
	Lookup(name string) (runtime.Value, bool)
	Bind(name string, v runtime.Value)
	// DeclareGlobal links a name to the session's global table.
	DeclareGlobal(name string)
	// DeclaredUnset reports a parameter that was declared but not bound by
	// the call, so that reading it is an argument error rather than an
	// undefined name.
	DeclaredUnset(name string) bool
}

// Globals is the session-wide table `global` declarations link into.
type Globals struct {
	vars map[string]runtime.Value
}

// NewGlobals returns an empty global table.
func NewGlobals() *Globals {
	return &Globals{vars: map[string]runtime.Value{}}
}

// Get reads a global; absent globals read as empty.
func (g *Globals) Get(name string) (runtime.Value, bool) {
	v, ok := g.vars[name]
	return v, ok
}

// Set writes a global.
func (g *Globals) Set(name string, v runtime.Value) { g.vars[name] = v }

// Clear drops every global.
func (g *Globals) Clear() { g.vars = map[string]runtime.Value{} }

// Scope is a map-backed Env used for the user workspace and for each
// function activation.
type Scope struct {
	vars    map[string]runtime.Value
	globals map[string]bool
	table   *Globals
	unset   map[string]bool
}

// NewScope returns an empty scope linked to a global table. A nil table
// makes `global` declarations inert.
func NewScope(table *Globals) *Scope {
	return &Scope{
		vars:    map[string]runtime.Value{},
		globals: map[string]bool{},
		table:   table,
		unset:   map[string]bool{},
	}
}

func (s *Scope) Lookup(name string) (runtime.Value, bool) {
	if s.globals[name] && s.table != nil {
		return s.table.Get(name)
	}
	v, ok := s.vars[name]
	return v, ok
}

func (s *Scope) Bind(name string, v runtime.Value) {
	delete(s.unset, name)
	if s.globals[name] && s.table != nil {
		s.table.Set(name, v)
		return
	}
	s.vars[name] = v
}

func (s *Scope) DeclareGlobal(name string) {
	s.globals[name] = true
	delete(s.vars, name)
}

func (s *Scope) DeclaredUnset(name string) bool { return s.unset[name] }

// MarkUnset records a declared parameter the caller did not supply.
func (s *Scope) MarkUnset(name string) { s.unset[name] = true }

// Delete removes a binding.
func (s *Scope) Delete(name string) {
	delete(s.vars, name)
	delete(s.globals, name)
	delete(s.unset, name)
}

// Names lists bound names in sorted order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	if s.table != nil {
		for n := range s.globals {
			if _, ok := s.table.Get(n); ok {
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Reset drops all bindings and global links.
func (s *Scope) Reset() {
	s.vars = map[string]runtime.Value{}
	s.globals = map[string]bool{}
	s.unset = map[string]bool{}
}
