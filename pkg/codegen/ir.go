// Package codegen lowers a parsed program into the executable form the
// kernel runs: a flat unit list with per-statement classification, output
// suppression, and a rendered listing whose lines map back to source lines.
// Diagnostics raised during execution carry listing lines; the map converts
// them to user-facing source lines.
package codegen

import (
	"github.com/Prime01-oss/MathexLab/pkg/ast"
)

// UnitClass says how the kernel treats a top-level unit.
type UnitClass int

const (
	// ClassStmt is a plain statement: control flow, declarations, loops.
	ClassStmt UnitClass = iota
	// ClassAssign binds one or more names and echoes them unless
	// suppressed.
	ClassAssign
	// ClassExpr evaluates, binds ans, and echoes unless suppressed.
	ClassExpr
	// ClassFuncDef registers a function without executing anything.
	ClassFuncDef
	// ClassClassDef registers a class.
	ClassClassDef
)

// Unit is one executable top-level statement.
type Unit struct {
	Node  ast.Node
	Class UnitClass

	// SrcLine and GenLine are 1-based; GenLine points into the Listing.
	SrcLine int
	GenLine int

	// Suppressed is set when the statement's source line ends with `;`.
	Suppressed bool

	// EchoNames are the workspace names to display after execution. For a
	// bare expression this is ["ans"].
	EchoNames []string
}

// Program is the lowered form of one source buffer.
type Program struct {
	Units []Unit

	// Listing is the rendered lowered code, one statement per line with
	// command syntax rewritten to calls.
	Listing string

	// LineMap translates Listing lines back to source lines.
	LineMap map[int]int
}

// SourceLine maps a listing line to its source line, falling back to the
// input when unmapped.
func (p *Program) SourceLine(genLine int) int {
	if src, ok := p.LineMap[genLine]; ok {
		return src
	}
	return genLine
}

// AutoCallCommands are environment names that execute as zero-argument
// calls when referenced bare, so `clc` on its own line runs rather than
// reads a variable.
var AutoCallCommands = map[string]bool{
	"clc": true, "clear": true, "clf": true, "cla": true,
	"hold": true, "grid": true, "box": true,
	"tic": true, "toc": true,
	"who": true, "whos": true, "pwd": true,
	"drawnow": true, "axis": true, "shading": true, "lighting": true,
	"view": true, "figure": true, "shg": true,
}
