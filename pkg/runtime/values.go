// Package runtime implements the dialect's value model: complex scalars,
// character strings, dense and sparse 2-D arrays with 1-based column-major
// indexing, cell arrays, structs, callables and class instances. All values
// copy on assignment; nothing in this package aliases caller-visible state.
package runtime

import (
	"fmt"
	"strings"
)

// Kind discriminates the closed set of value kinds.
type Kind int

const (
	KindNum Kind = iota
	KindStr
	KindArray
	KindCell
	KindStruct
	KindCallable
	KindObject
	KindColon
)

func (k Kind) String() string {
	switch k {
	case KindNum:
		return "number"
	case KindStr:
		return "string"
	case KindArray:
		return "array"
	case KindCell:
		return "cell"
	case KindStruct:
		return "struct"
	case KindCallable:
		return "function"
	case KindObject:
		return "object"
	case KindColon:
		return "colon"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is implemented by every runtime value.
type Value interface {
	Kind() Kind
	// Copy returns an independent value with pass-by-value semantics. Kinds
	// with no mutable interior return themselves.
	Copy() Value
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

// Num is a complex scalar. Real values carry a zero imaginary part.
type Num struct {
	V complex128
}

func (Num) Kind() Kind       { return KindNum }
func (n *Num) Copy() Value   { return n }
func (n *Num) Real() float64 { return real(n.V) }

// IsReal reports whether the scalar has no imaginary component.
func (n *Num) IsReal() bool { return imag(n.V) == 0 }

// NewNum wraps a real scalar.
func NewNum(v float64) *Num { return &Num{V: complex(v, 0)} }

// NewComplex wraps a complex scalar.
func NewComplex(v complex128) *Num { return &Num{V: v} }

// Bool converts a truth value to the dialect's 1/0 convention.
func Bool(b bool) *Num {
	if b {
		return NewNum(1)
	}
	return NewNum(0)
}

// Str is a character string.
type Str struct {
	V string
}

func (Str) Kind() Kind     { return KindStr }
func (s *Str) Copy() Value { return s }

// NewStr wraps a string.
func NewStr(v string) *Str { return &Str{V: v} }

//-----------------------------------------------------------------------------
// Aggregates
//-----------------------------------------------------------------------------

// Cell is a 2-D cell array. Items are stored column-major like Array data.
type Cell struct {
	Rows, Cols int
	Items      []Value
}

func (Cell) Kind() Kind { return KindCell }

func (c *Cell) Copy() Value {
	items := make([]Value, len(c.Items))
	for i, it := range c.Items {
		items[i] = it.Copy()
	}
	return &Cell{Rows: c.Rows, Cols: c.Cols, Items: items}
}

// NumEl returns the element count.
func (c *Cell) NumEl() int { return len(c.Items) }

// At returns the 1-based linear element in column-major order.
func (c *Cell) At(idx int) (Value, error) {
	if idx < 1 || idx > len(c.Items) {
		return nil, indexErrorf("Index exceeds cell array bounds")
	}
	return c.Items[idx-1], nil
}

// Struct is a field-addressed record. Order holds fields in first-assignment
// order for display.
type Struct struct {
	Order  []string
	Fields map[string]Value
}

func (Struct) Kind() Kind { return KindStruct }

func (s *Struct) Copy() Value {
	out := NewStruct()
	for _, name := range s.Order {
		out.Set(name, s.Fields[name].Copy())
	}
	return out
}

// NewStruct returns an empty struct value.
func NewStruct() *Struct {
	return &Struct{Fields: map[string]Value{}}
}

// Get returns a field or a NameError naming the missing field.
func (s *Struct) Get(name string) (Value, error) {
	if v, ok := s.Fields[name]; ok {
		return v, nil
	}
	return nil, typeErrorf("Reference to non-existent field '%s'", name)
}

// Set writes a field, creating it on first use.
func (s *Struct) Set(name string, v Value) {
	if _, ok := s.Fields[name]; !ok {
		s.Order = append(s.Order, name)
	}
	s.Fields[name] = v
}

//-----------------------------------------------------------------------------
// Callables and class instances
//-----------------------------------------------------------------------------

// CallableClass distinguishes how a registry entry executes.
type CallableClass int

const (
	// CallFunction is a defined `function ... end` unit.
	CallFunction CallableClass = iota
	// CallScript is a statement sequence run against the caller's live
	// workspace.
	CallScript
	// CallBuiltin is implemented natively.
	CallBuiltin
)

// Callable is an invocable value. Invoke receives already-evaluated
// arguments and the requested output count; scripts use Script instead and
// leave Invoke nil.
type Callable struct {
	Name  string
	Class CallableClass

	// NumParams and HasVarargs describe the declared parameter list; builtins
	// with free arity use NumParams -1.
	NumParams  int
	HasVarargs bool
	NumOutputs int

	// AutoCall marks names that execute with zero arguments when referenced
	// bare, the way environment commands do.
	AutoCall bool

	Invoke func(args []Value, nargout int) ([]Value, error)

	// Script runs the unit's statements; the kernel supplies the closure
	// bound to the live workspace.
	Script func() error
}

func (Callable) Kind() Kind     { return KindCallable }
func (c *Callable) Copy() Value { return c }

// Object is a classdef instance. Declared properties start unset: they are
// listed in Props but absent from Fields until first assignment.
type Object struct {
	Class  string
	Props  []string
	Fields *Struct
	// Methods resolves by name to a bound-self invoker.
	Methods map[string]*Callable
}

func (Object) Kind() Kind { return KindObject }

func (o *Object) Copy() Value {
	return &Object{
		Class:   o.Class,
		Props:   o.Props,
		Fields:  o.Fields.Copy().(*Struct),
		Methods: o.Methods,
	}
}

// HasProp reports a declared property name.
func (o *Object) HasProp(name string) bool {
	for _, p := range o.Props {
		if p == name {
			return true
		}
	}
	return false
}

//-----------------------------------------------------------------------------
// Subscript markers
//-----------------------------------------------------------------------------

// ColonValue is the `:` subscript ("entire dimension"). It only appears as a
// call argument during indexing.
type ColonValue struct{}

func (ColonValue) Kind() Kind     { return KindColon }
func (c *ColonValue) Copy() Value { return c }

// Colon is the shared instance.
var Colon = &ColonValue{}

//-----------------------------------------------------------------------------
// Truthiness and coercion
//-----------------------------------------------------------------------------

// IsTrue evaluates a value as a condition: scalars are true when nonzero,
// arrays when non-empty and all-nonzero, strings when non-empty.
func IsTrue(v Value) (bool, error) {
	switch val := v.(type) {
	case *Num:
		return val.V != 0, nil
	case *Str:
		return val.V != "", nil
	case *Array:
		if val.NumEl() == 0 {
			return false, nil
		}
		for _, x := range val.Flatten() {
			if x == 0 {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, typeErrorf("Conversion to logical from %s is not possible", v.Kind())
	}
}

// AsScalar extracts a complex scalar from a Num or 1x1 array.
func AsScalar(v Value) (complex128, error) {
	switch val := v.(type) {
	case *Num:
		return val.V, nil
	case *Array:
		if val.NumEl() == 1 {
			return val.Flatten()[0], nil
		}
		return 0, typeErrorf("Expected a scalar value")
	default:
		return 0, typeErrorf("Expected a numeric value, got %s", v.Kind())
	}
}

// AsReal extracts a real scalar, rejecting complex values.
func AsReal(v Value) (float64, error) {
	c, err := AsScalar(v)
	if err != nil {
		return 0, err
	}
	if imag(c) != 0 {
		return 0, typeErrorf("Expected a real value")
	}
	return real(c), nil
}

// AsString extracts a character string.
func AsString(v Value) (string, error) {
	if s, ok := v.(*Str); ok {
		return s.V, nil
	}
	return "", typeErrorf("Expected a string, got %s", v.Kind())
}

// Equal compares two values for the switch/case membership test.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case *Num:
		bv, ok := b.(*Num)
		return ok && av.V == bv.V
	case *Str:
		bv, ok := b.(*Str)
		return ok && av.V == bv.V
	case *Array:
		bv, ok := b.(*Array)
		if !ok || av.rows != bv.rows || av.cols != bv.cols {
			return false
		}
		af, bf := av.Flatten(), bv.Flatten()
		for i := range af {
			if af[i] != bf[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// TypeName returns the display class of a value (`double`, `char`, ...).
func TypeName(v Value) string {
	switch val := v.(type) {
	case *Num:
		return "double"
	case *Str:
		return "char"
	case *Array:
		switch {
		case val.Sparse:
			return "sparse"
		case val.Logical:
			return "logical"
		default:
			return "double"
		}
	case *Cell:
		return "cell"
	case *Struct:
		return "struct"
	case *Callable:
		return "function_handle"
	case *Object:
		return val.Class
	default:
		return strings.ToLower(v.Kind().String())
	}
}
