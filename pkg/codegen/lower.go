package codegen

import (
	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/lexer"
	"github.com/Prime01-oss/MathexLab/pkg/parser"
)

// Generate parses and lowers one source buffer.
func Generate(src string) (*Program, error) {
	prog, err := parser.ParseSource(src)
	if err != nil {
		return nil, err
	}
	return Lower(prog, src), nil
}

// Lower flattens a parse tree into executable units. Command syntax is
// rewritten into ordinary calls with string arguments, so downstream stages
// see a single call shape.
func Lower(prog *ast.Program, src string) *Program {
	separators := lineSeparators(src)
	seen := map[int]int{}
	out := &Program{LineMap: map[int]int{}}
	r := newRenderer(out.LineMap)

	for _, stmt := range prog.Stmts {
		unit := Unit{SrcLine: stmt.Pos()}

		switch node := stmt.(type) {
		case *ast.FunctionDef:
			unit.Class = ClassFuncDef
			unit.Node = node
		case *ast.ClassDef:
			unit.Class = ClassClassDef
			unit.Node = node
		case *ast.Command:
			unit.Class = ClassStmt
			unit.Node = commandToCall(node)
			unit.Suppressed = true
		case *ast.Assign:
			unit.Class = ClassAssign
			unit.Node = node
			unit.EchoNames = []string{assignName(node.Target)}
		case *ast.MultiAssign:
			unit.Class = ClassAssign
			unit.Node = node
			unit.EchoNames = append([]string(nil), node.Targets...)
		case *ast.IfBlock, *ast.SwitchBlock, *ast.TryBlock,
			*ast.ForLoop, *ast.WhileLoop,
			*ast.Break, *ast.Continue, *ast.Return, *ast.GlobalDecl:
			unit.Class = ClassStmt
			unit.Node = stmt
		default:
			unit.Class = ClassExpr
			unit.Node = stmt
			if v, ok := stmt.(*ast.Variable); ok {
				unit.EchoNames = []string{v.Name}
			} else {
				unit.EchoNames = []string{"ans"}
			}
		}

		// Each statement is suppressed by the separator that follows it, so
		// `a = 1; b = 2` echoes only b.
		seps := separators[unit.SrcLine]
		pos := seen[unit.SrcLine]
		seen[unit.SrcLine]++
		if pos < len(seps) && seps[pos] == ';' {
			unit.Suppressed = true
		}
		unit.GenLine = r.nextLine()
		r.renderUnit(unit.Node)
		out.Units = append(out.Units, unit)
	}

	out.Listing = r.String()
	return out
}

// commandToCall rewrites `hold on` as hold('on').
func commandToCall(cmd *ast.Command) *ast.Call {
	call := &ast.Call{
		Span:   cmd.Span,
		Target: &ast.Variable{Span: cmd.Span, Name: cmd.Name},
	}
	for _, arg := range cmd.Args {
		call.Args = append(call.Args, &ast.String{Span: cmd.Span, Val: arg})
	}
	return call
}

// assignName extracts the workspace name an assignment binds, walking
// through index and member shapes to the base variable.
func assignName(target ast.Node) string {
	for {
		switch n := target.(type) {
		case *ast.Variable:
			return n.Name
		case *ast.Call:
			target = n.Target
		case *ast.Member:
			target = n.Target
		default:
			return ""
		}
	}
}

// lineSeparators lists the top-level statement separators on each source
// line in order. Separators nested in brackets belong to literals and calls,
// not statements.
func lineSeparators(src string) map[int][]byte {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil
	}
	out := map[int][]byte{}
	depth := 0
	for _, t := range toks {
		switch t.Kind {
		case lexer.TkLParen, lexer.TkLBracket, lexer.TkLBrace:
			depth++
		case lexer.TkRParen, lexer.TkRBracket, lexer.TkRBrace:
			depth--
		case lexer.TkSemicolon:
			if depth == 0 {
				out[t.Line] = append(out[t.Line], ';')
			}
		case lexer.TkComma:
			if depth == 0 {
				out[t.Line] = append(out[t.Line], ',')
			}
		}
	}
	return out
}
