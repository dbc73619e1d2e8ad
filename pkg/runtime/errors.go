package runtime

import "fmt"

// NameError is an unresolved identifier. The kernel uses it as the trigger
// for lazy function loading, so only genuinely-undefined names may produce
// it.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("Undefined function or variable '%s'", e.Name)
}

// IndexError is an out-of-range or malformed subscript.
type IndexError struct {
	Msg string
}

func (e *IndexError) Error() string { return e.Msg }

// DimensionError is a shape mismatch between operands.
type DimensionError struct {
	Msg string
}

func (e *DimensionError) Error() string { return e.Msg }

// ArgumentError is a call with the wrong number or kind of arguments. Using
// a declared-but-unbound optional parameter also raises it, so that the
// lazy-loader never mistakes it for an undefined name.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return e.Msg }

// TypeError is an operation applied to a value kind that does not support
// it.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

func indexErrorf(format string, args ...any) error {
	return &IndexError{Msg: fmt.Sprintf(format, args...)}
}

func dimErrorf(format string, args ...any) error {
	return &DimensionError{Msg: fmt.Sprintf(format, args...)}
}

func typeErrorf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}
