package codegen

import (
	"fmt"
	"strings"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
)

// renderer prints lowered units into the listing, recording the source line
// of every emitted line.
type renderer struct {
	lines   []string
	lineMap map[int]int
	indent  int
}

func newRenderer(lineMap map[int]int) *renderer {
	return &renderer{lineMap: lineMap}
}

func (r *renderer) String() string { return strings.Join(r.lines, "\n") }

// nextLine is the 1-based listing line the next emit will land on.
func (r *renderer) nextLine() int { return len(r.lines) + 1 }

func (r *renderer) emit(text string, srcLine int) {
	r.lines = append(r.lines, strings.Repeat("    ", r.indent)+text)
	if srcLine > 0 {
		r.lineMap[len(r.lines)] = srcLine
	}
}

func (r *renderer) renderUnit(node ast.Node) {
	switch n := node.(type) {
	case *ast.Assign:
		r.emit(ExprString(n.Target)+" = "+ExprString(n.Value), n.Pos())
	case *ast.MultiAssign:
		r.emit("["+strings.Join(n.Targets, ", ")+"] = "+ExprString(n.Value), n.Pos())
	case *ast.IfBlock:
		for i, clause := range n.Clauses {
			kw := "if"
			if i > 0 {
				kw = "elseif"
			}
			r.emit(kw+" "+ExprString(clause.Cond), clause.Cond.Pos())
			r.renderBody(clause.Body)
		}
		if n.Else != nil {
			r.emit("else", 0)
			r.renderBody(n.Else)
		}
		r.emit("end", 0)
	case *ast.SwitchBlock:
		r.emit("switch "+ExprString(n.Subject), n.Pos())
		for _, c := range n.Cases {
			r.emit("case "+ExprString(c.Value), c.Value.Pos())
			r.renderBody(c.Body)
		}
		if n.Otherwise != nil {
			r.emit("otherwise", 0)
			r.renderBody(n.Otherwise)
		}
		r.emit("end", 0)
	case *ast.TryBlock:
		r.emit("try", n.Pos())
		r.renderBody(n.Body)
		if n.Catch != nil || n.CatchVar != "" {
			if n.CatchVar != "" {
				r.emit("catch "+n.CatchVar, 0)
			} else {
				r.emit("catch", 0)
			}
			r.renderBody(n.Catch)
		}
		r.emit("end", 0)
	case *ast.ForLoop:
		r.emit("for "+n.Var+" = "+ExprString(n.Iter), n.Pos())
		r.renderBody(n.Body)
		r.emit("end", 0)
	case *ast.WhileLoop:
		r.emit("while "+ExprString(n.Cond), n.Pos())
		r.renderBody(n.Body)
		r.emit("end", 0)
	case *ast.Break:
		r.emit("break", n.Pos())
	case *ast.Continue:
		r.emit("continue", n.Pos())
	case *ast.Return:
		if n.Value != nil {
			r.emit("return "+ExprString(n.Value), n.Pos())
		} else {
			r.emit("return", n.Pos())
		}
	case *ast.GlobalDecl:
		r.emit("global "+strings.Join(n.Names, " "), n.Pos())
	case *ast.FunctionDef:
		r.renderFunction(n)
	case *ast.ClassDef:
		r.renderClass(n)
	default:
		r.emit(ExprString(node), node.Pos())
	}
}

func (r *renderer) renderBody(body []ast.Node) {
	r.indent++
	for _, stmt := range body {
		r.renderUnit(stmt)
	}
	r.indent--
}

func (r *renderer) renderFunction(fn *ast.FunctionDef) {
	header := "function "
	switch len(fn.Outputs) {
	case 0:
	case 1:
		header += fn.Outputs[0] + " = "
	default:
		header += "[" + strings.Join(fn.Outputs, ", ") + "] = "
	}
	header += fn.Name + "(" + strings.Join(fn.Params, ", ") + ")"
	r.emit(header, fn.Pos())
	r.renderBody(fn.Body)
	r.emit("end", 0)
}

func (r *renderer) renderClass(cls *ast.ClassDef) {
	r.emit("classdef "+cls.Name, cls.Pos())
	r.indent++
	if len(cls.Properties) > 0 {
		r.emit("properties", 0)
		r.indent++
		for _, p := range cls.Properties {
			r.emit(p, 0)
		}
		r.indent--
		r.emit("end", 0)
	}
	if len(cls.Methods) > 0 {
		r.emit("methods", 0)
		r.indent++
		for _, m := range cls.Methods {
			r.renderFunction(m)
		}
		r.indent--
		r.emit("end", 0)
	}
	r.indent--
	r.emit("end", 0)
}

// ExprString renders an expression in canonical one-line form.
func ExprString(node ast.Node) string {
	switch n := node.(type) {
	case *ast.Number:
		return n.Lit
	case *ast.String:
		return "'" + n.Val + "'"
	case *ast.Variable:
		return n.Name
	case *ast.Colon:
		return ":"
	case *ast.EndMarker:
		return "end"
	case *ast.BinOp:
		return ExprString(n.Left) + " " + n.Op + " " + ExprString(n.Right)
	case *ast.UnaryOp:
		return n.Op + ExprString(n.Operand)
	case *ast.Transpose:
		if n.Conj {
			return ExprString(n.Target) + "'"
		}
		return ExprString(n.Target) + ".'"
	case *ast.Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = ExprString(a)
		}
		return ExprString(n.Target) + "(" + strings.Join(args, ", ") + ")"
	case *ast.Member:
		return ExprString(n.Target) + "." + n.Field
	case *ast.Range:
		if n.Step != nil {
			return ExprString(n.Start) + ":" + ExprString(n.Step) + ":" + ExprString(n.End)
		}
		return ExprString(n.Start) + ":" + ExprString(n.End)
	case *ast.Matrix:
		return "[" + rowsString(n.Rows) + "]"
	case *ast.CellArray:
		return "{" + rowsString(n.Rows) + "}"
	case *ast.FuncHandle:
		return "@" + n.Name
	case *ast.AnonymousFunc:
		return "@(" + strings.Join(n.Params, ", ") + ") " + ExprString(n.Body)
	default:
		return fmt.Sprintf("<%T>", node)
	}
}

func rowsString(rows [][]ast.Node) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		elems := make([]string, len(row))
		for j, e := range row {
			elems[j] = ExprString(e)
		}
		parts[i] = strings.Join(elems, ", ")
	}
	return strings.Join(parts, "; ")
}
