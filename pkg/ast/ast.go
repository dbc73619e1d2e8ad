// Package ast defines the syntax tree for the MATLAB-compatible dialect.
// Nodes own their children exclusively; every node carries the source line
// it originated from so later stages can localize diagnostics.
package ast

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() int
}

// Span records the 1-based source line a node originated from. A zero line
// means "unknown" (synthesized nodes).
type Span struct {
	Line int
}

// Pos returns the originating source line.
func (s Span) Pos() int { return s.Line }

// Program is the root of a parsed unit.
type Program struct {
	Span
	Stmts []Node
}

// Assign covers `x = expr`, `s.field = expr` and the indexed form
// `A(i) = expr`. Target is a *Variable, *Member or *Call; the indexed and
// member shapes are preserved as-is for the code generator to special-case.
type Assign struct {
	Span
	Target Node
	Value  Node
}

// MultiAssign is `[a, b] = expr` with plain variable targets.
type MultiAssign struct {
	Span
	Targets []string
	Value   Node
}

// BinOp is a binary operation with the dialect's operator spelling
// (`*`, `.*`, `~=`, `&&`, ...).
type BinOp struct {
	Span
	Left  Node
	Op    string
	Right Node
}

// UnaryOp is `-x` or `~x`.
type UnaryOp struct {
	Span
	Op      string
	Operand Node
}

// Number is a numeric literal. The lexeme keeps its source spelling; an
// imaginary literal ends in 'i'.
type Number struct {
	Span
	Lit string
}

// String is a quoted character literal.
type String struct {
	Span
	Val string
}

// Variable is a bare identifier reference.
type Variable struct {
	Span
	Name string
}

// Call is `target(args...)`. Whether it indexes an array or calls a
// function is decided at run time, exactly as in the source dialect.
type Call struct {
	Span
	Target Node
	Args   []Node
}

// Member is `target.field`.
type Member struct {
	Span
	Target Node
	Field  string
}

// Transpose is the postfix `'` (conjugate) or `.'` (plain) operator.
type Transpose struct {
	Span
	Target Node
	Conj   bool
}

// Matrix is a bracket literal `[rows]`; rows are `;`/newline delimited,
// elements `,`/whitespace delimited.
type Matrix struct {
	Span
	Rows [][]Node
}

// CellArray is a brace literal `{rows}` with the same row shape as Matrix.
type CellArray struct {
	Span
	Rows [][]Node
}

// Range is `start:end` or `start:step:end`; Step is nil for the two-operand
// form.
type Range struct {
	Span
	Start Node
	Step  Node
	End   Node
}

// Colon is the bare `:` subscript marker ("entire dimension").
type Colon struct {
	Span
}

// EndMarker is the `end` keyword used inside a subscript ("last valid
// index").
type EndMarker struct {
	Span
}

// Command is word-style invocation: `hold on`, `clc`.
type Command struct {
	Span
	Name string
	Args []string
}

// IfClause pairs one condition with its body.
type IfClause struct {
	Cond Node
	Body []Node
}

// IfBlock is `if/elseif/else/end`. Else is nil when absent.
type IfBlock struct {
	Span
	Clauses []IfClause
	Else    []Node
}

// SwitchCase is one `case` arm. A brace-delimited value set parses into a
// *CellArray value and compiles to a membership test.
type SwitchCase struct {
	Value Node
	Body  []Node
}

// SwitchBlock is `switch/case/otherwise/end`. Otherwise is nil when absent.
type SwitchBlock struct {
	Span
	Subject   Node
	Cases     []SwitchCase
	Otherwise []Node
}

// TryBlock is `try/catch/end`. CatchVar is empty when the error is not
// captured.
type TryBlock struct {
	Span
	Body     []Node
	CatchVar string
	Catch    []Node
}

// ForLoop is `for var = iterable ... end`.
type ForLoop struct {
	Span
	Var  string
	Iter Node
	Body []Node
}

// WhileLoop is `while cond ... end`.
type WhileLoop struct {
	Span
	Cond Node
	Body []Node
}

// Break is the `break` statement.
type Break struct {
	Span
}

// Continue is the `continue` statement.
type Continue struct {
	Span
}

// Return is `return` with an optional value.
type Return struct {
	Span
	Value Node
}

// GlobalDecl is `global a b c`.
type GlobalDecl struct {
	Span
	Names []string
}

// FunctionDef is `function [outs] = name(params) ... end`. A trailing
// `varargin` parameter captures remaining arguments.
type FunctionDef struct {
	Span
	Name    string
	Params  []string
	Outputs []string
	Body    []Node
}

// FuncHandle is `@name`, a reference to a function without calling it.
type FuncHandle struct {
	Span
	Name string
}

// AnonymousFunc is `@(params) expr`.
type AnonymousFunc struct {
	Span
	Params []string
	Body   Node
}

// ClassDef is `classdef Name` with one properties block and one or more
// methods blocks. A method named like the class is the constructor.
type ClassDef struct {
	Span
	Name       string
	Properties []string
	Methods    []*FunctionDef
}
