package parser

import (
	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/lexer"
)

// Expression grammar, loosest first:
//
//	expression -> logicOr
//	logicOr    -> logicAnd  (('||' | '|') logicAnd)*
//	logicAnd   -> relation  (('&&' | '&') relation)*
//	relation   -> rangeExpr (('==' | '~=' | '<' | '>' | '<=' | '>=') rangeExpr)*
//	rangeExpr  -> term (':' term (':' term)?)?
//	term       -> factor (('+' | '-') factor)*
//	factor     -> power  (('*' | '/' | '\' | '.*' | './' | '.\') power)*
//	power      -> atom   (('^' | '.^') atom)*
//
// The colon sits between relation and term so `1:n+1` spans to n+1 while
// `x < 1:3` compares against the whole range.

func (p *parser) expression() (ast.Node, error) {
	return p.logicOr()
}

func (p *parser) binChain(next func() (ast.Node, error), ops ...string) (ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		t := p.curr()
		if t.Kind != lexer.TkOp || !lexIn(t.Lex, ops) {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Span: span(t), Left: left, Op: t.Lex, Right: right}
	}
}

func lexIn(lex string, set []string) bool {
	for _, s := range set {
		if lex == s {
			return true
		}
	}
	return false
}

func (p *parser) logicOr() (ast.Node, error) {
	return p.binChain(p.logicAnd, "||", "|")
}

func (p *parser) logicAnd() (ast.Node, error) {
	return p.binChain(p.relation, "&&", "&")
}

func (p *parser) relation() (ast.Node, error) {
	return p.binChain(p.rangeExpr, "==", "~=", "<", ">", "<=", ">=")
}

func (p *parser) rangeExpr() (ast.Node, error) {
	start, err := p.term()
	if err != nil {
		return nil, err
	}
	t := p.curr()
	if t.Kind != lexer.TkOp || t.Lex != ":" {
		return start, nil
	}
	p.advance()
	second, err := p.term()
	if err != nil {
		return nil, err
	}
	if p.curr().Kind == lexer.TkOp && p.curr().Lex == ":" {
		p.advance()
		stop, err := p.term()
		if err != nil {
			return nil, err
		}
		return &ast.Range{Span: span(t), Start: start, Step: second, End: stop}, nil
	}
	return &ast.Range{Span: span(t), Start: start, End: second}, nil
}

func (p *parser) term() (ast.Node, error) {
	return p.binChain(p.factor, "+", "-")
}

func (p *parser) factor() (ast.Node, error) {
	return p.binChain(p.power, "*", "/", "\\", ".*", "./", ".\\")
}

func (p *parser) power() (ast.Node, error) {
	return p.binChain(p.atom, "^", ".^")
}

//-----------------------------------------------------------------------------
// Atoms and trailers
//-----------------------------------------------------------------------------

func (p *parser) atom() (ast.Node, error) {
	t := p.curr()

	switch {
	case t.Kind == lexer.TkOp && (t.Lex == "-" || t.Lex == "~" || t.Lex == "+"):
		p.advance()
		operand, err := p.atom()
		if err != nil {
			return nil, err
		}
		if t.Lex == "+" {
			return operand, nil
		}
		return &ast.UnaryOp{Span: span(t), Op: t.Lex, Operand: operand}, nil

	case t.Kind == lexer.TkNumber:
		p.advance()
		return p.trailers(&ast.Number{Span: span(t), Lit: t.Lex})

	case t.Kind == lexer.TkString:
		p.advance()
		return &ast.String{Span: span(t), Val: t.Lex}, nil

	case t.Kind == lexer.TkIdent:
		p.advance()
		return p.trailers(&ast.Variable{Span: span(t), Name: t.Lex})

	case t.Kind == lexer.TkKeyword && t.Lex == "end":
		// `end` inside a subscript means the last valid index.
		p.advance()
		return &ast.EndMarker{Span: span(t)}, nil

	case t.Kind == lexer.TkOp && t.Lex == ":":
		p.advance()
		return &ast.Colon{Span: span(t)}, nil

	case t.Kind == lexer.TkLParen:
		p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(lexer.TkRParen); err != nil {
			return nil, err
		}
		return p.trailers(inner)

	case t.Kind == lexer.TkLBracket:
		return p.parseMatrix()

	case t.Kind == lexer.TkLBrace:
		return p.parseCell()

	case t.Kind == lexer.TkAt:
		return p.parseAt()
	}

	return nil, &SyntaxError{Msg: "unexpected token", Tok: t}
}

// trailers consumes postfix operators: calls, member access and transpose.
func (p *parser) trailers(node ast.Node) (ast.Node, error) {
	for {
		t := p.curr()
		switch {
		case t.Kind == lexer.TkLParen:
			p.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			node = &ast.Call{Span: span(t), Target: node, Args: args}

		case t.Kind == lexer.TkDot:
			p.advance()
			field, err := p.expectKind(lexer.TkIdent)
			if err != nil {
				return nil, err
			}
			node = &ast.Member{Span: span(t), Target: node, Field: field.Lex}

		case t.Kind == lexer.TkOp && t.Lex == "'":
			p.advance()
			node = &ast.Transpose{Span: span(t), Target: node, Conj: true}

		case t.Kind == lexer.TkOp && t.Lex == ".'":
			p.advance()
			node = &ast.Transpose{Span: span(t), Target: node}

		default:
			return node, nil
		}
	}
}

func (p *parser) parseArgs() ([]ast.Node, error) {
	args := []ast.Node{}
	if p.curr().Kind == lexer.TkRParen {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.curr().Kind == lexer.TkComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectKind(lexer.TkRParen); err != nil {
		return nil, err
	}
	return args, nil
}

//-----------------------------------------------------------------------------
// Bracket literals
//-----------------------------------------------------------------------------

// parseRows reads the shared row grammar of matrix and cell literals: `;` or
// a newline breaks the row, `,` or plain adjacency separates elements.
func (p *parser) parseRows(close lexer.TokenKind) ([][]ast.Node, error) {
	var rows [][]ast.Node
	var row []ast.Node

	flush := func() {
		if len(row) > 0 {
			rows = append(rows, row)
			row = nil
		}
	}

	for {
		t := p.curr()
		switch {
		case t.Kind == lexer.TkEOF:
			return nil, &SyntaxError{Msg: "unterminated bracket literal", Tok: t}
		case t.Kind == close:
			p.advance()
			flush()
			return rows, nil
		case t.Kind == lexer.TkSemicolon || t.Kind == lexer.TkNewline:
			p.advance()
			flush()
		case t.Kind == lexer.TkComma:
			p.advance()
		default:
			elem, err := p.expression()
			if err != nil {
				return nil, err
			}
			row = append(row, elem)
		}
	}
}

func (p *parser) parseMatrix() (ast.Node, error) {
	open, err := p.expectKind(lexer.TkLBracket)
	if err != nil {
		return nil, err
	}
	rows, err := p.parseRows(lexer.TkRBracket)
	if err != nil {
		return nil, err
	}
	return p.trailers(&ast.Matrix{Span: span(open), Rows: rows})
}

func (p *parser) parseCell() (ast.Node, error) {
	open, err := p.expectKind(lexer.TkLBrace)
	if err != nil {
		return nil, err
	}
	rows, err := p.parseRows(lexer.TkRBrace)
	if err != nil {
		return nil, err
	}
	return p.trailers(&ast.CellArray{Span: span(open), Rows: rows})
}

//-----------------------------------------------------------------------------
// Function handles
//-----------------------------------------------------------------------------

// parseAt handles `@(x) expr` and the named form `@f`.
func (p *parser) parseAt() (ast.Node, error) {
	at := p.advance() // '@'

	if p.curr().Kind == lexer.TkIdent {
		name := p.advance()
		return &ast.FuncHandle{Span: span(name), Name: name.Lex}, nil
	}

	if _, err := p.expectKind(lexer.TkLParen); err != nil {
		return nil, err
	}
	var params []string
	if p.curr().Kind == lexer.TkIdent {
		params = append(params, p.advance().Lex)
		for p.curr().Kind == lexer.TkComma {
			p.advance()
			param, err := p.expectKind(lexer.TkIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, param.Lex)
		}
	}
	if _, err := p.expectKind(lexer.TkRParen); err != nil {
		return nil, err
	}
	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.AnonymousFunc{Span: span(at), Params: params, Body: body}, nil
}

//-----------------------------------------------------------------------------
// classdef
//-----------------------------------------------------------------------------

func (p *parser) parseClassdef() (*ast.ClassDef, error) {
	kw := p.curr()
	if err := p.expectKeyword("classdef"); err != nil {
		return nil, err
	}
	name, err := p.expectKind(lexer.TkIdent)
	if err != nil {
		return nil, err
	}
	cls := &ast.ClassDef{Span: span(kw), Name: name.Lex}

	for {
		t := p.curr()
		switch {
		case isSeparator(t):
			p.advance()
		case t.Kind == lexer.TkKeyword && t.Lex == "end":
			p.advance()
			return cls, nil
		case t.Kind == lexer.TkKeyword && t.Lex == "properties":
			p.advance()
			props, err := p.parseProperties()
			if err != nil {
				return nil, err
			}
			cls.Properties = append(cls.Properties, props...)
		case t.Kind == lexer.TkKeyword && t.Lex == "methods":
			p.advance()
			methods, err := p.parseMethods()
			if err != nil {
				return nil, err
			}
			cls.Methods = append(cls.Methods, methods...)
		case t.Kind == lexer.TkKeyword && t.Lex == "events":
			p.advance()
			if err := p.skipToBlockEnd(); err != nil {
				return nil, err
			}
		default:
			return nil, &SyntaxError{Msg: "unexpected token in classdef body", Tok: t}
		}
	}
}

func (p *parser) parseProperties() ([]string, error) {
	var props []string
	for {
		t := p.curr()
		switch {
		case isSeparator(t) || t.Kind == lexer.TkComma:
			p.advance()
		case t.Kind == lexer.TkKeyword && t.Lex == "end":
			p.advance()
			return props, nil
		case t.Kind == lexer.TkIdent:
			props = append(props, p.advance().Lex)
		default:
			return nil, &SyntaxError{Msg: "unexpected token in properties block", Tok: t}
		}
	}
}

func (p *parser) parseMethods() ([]*ast.FunctionDef, error) {
	var methods []*ast.FunctionDef
	for {
		t := p.curr()
		switch {
		case isSeparator(t):
			p.advance()
		case t.Kind == lexer.TkKeyword && t.Lex == "end":
			p.advance()
			return methods, nil
		case t.Kind == lexer.TkKeyword && t.Lex == "function":
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			methods = append(methods, fn)
		default:
			return nil, &SyntaxError{Msg: "unexpected token in methods block", Tok: t}
		}
	}
}

// skipToBlockEnd discards tokens through the matching `end` of a block whose
// opening keyword was just consumed.
func (p *parser) skipToBlockEnd() error {
	depth := 1
	for depth > 0 {
		t := p.advance()
		switch {
		case t.Kind == lexer.TkEOF:
			return &SyntaxError{Msg: "unterminated block", Tok: t}
		case t.Kind == lexer.TkKeyword && t.Lex == "end":
			depth--
		case t.Kind == lexer.TkKeyword &&
			(t.Lex == "if" || t.Lex == "for" || t.Lex == "while" ||
				t.Lex == "switch" || t.Lex == "try" || t.Lex == "function"):
			depth++
		}
	}
	return nil
}
