// Package parser builds the dialect AST from a token stream using a
// precedence-climbing expression grammar. Statement dispatch is keyword-led;
// the command-syntax lookahead (`hold on`) runs before generic expression
// parsing.
package parser

import (
	"fmt"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
	"github.com/Prime01-oss/MathexLab/pkg/lexer"
)

// SyntaxError reports the offending token and its line.
type SyntaxError struct {
	Msg string
	Tok lexer.Token
}

func (e *SyntaxError) Error() string {
	if e.Tok.Lex != "" {
		return fmt.Sprintf("%s near '%s' (line %d)", e.Msg, e.Tok.Lex, e.Tok.Line)
	}
	return fmt.Sprintf("%s (line %d)", e.Msg, e.Tok.Line)
}

type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse consumes a full token stream into a Program.
func Parse(toks []lexer.Token) (*ast.Program, error) {
	p := &parser{toks: toks}
	return p.parseProgram()
}

// ParseSource tokenizes and parses src in one step.
func ParseSource(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

//-----------------------------------------------------------------------------
// Token helpers
//-----------------------------------------------------------------------------

func (p *parser) curr() lexer.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return lexer.Token{Kind: lexer.TkEOF}
}

func (p *parser) lookahead(n int) lexer.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return lexer.Token{Kind: lexer.TkEOF}
}

func (p *parser) advance() lexer.Token {
	t := p.curr()
	p.pos++
	return t
}

func (p *parser) expectKind(k lexer.TokenKind) (lexer.Token, error) {
	t := p.curr()
	if t.Kind != k {
		return t, &SyntaxError{Msg: fmt.Sprintf("expected %s, got %s", k, t.Kind), Tok: t}
	}
	p.pos++
	return t, nil
}

func (p *parser) expectLex(lex string) (lexer.Token, error) {
	t := p.curr()
	if t.Lex != lex {
		return t, &SyntaxError{Msg: fmt.Sprintf("expected '%s'", lex), Tok: t}
	}
	p.pos++
	return t, nil
}

func (p *parser) expectKeyword(word string) error {
	t := p.curr()
	if t.Kind != lexer.TkKeyword || t.Lex != word {
		return &SyntaxError{Msg: fmt.Sprintf("expected '%s'", word), Tok: t}
	}
	p.pos++
	return nil
}

func (p *parser) atKeyword(words ...string) bool {
	t := p.curr()
	if t.Kind != lexer.TkKeyword {
		return false
	}
	for _, w := range words {
		if t.Lex == w {
			return true
		}
	}
	return false
}

// Commas separate statements in single-line forms (`a = 1, b = 2`);
// suppression is decided later from the source text, not here.
func isSeparator(t lexer.Token) bool {
	return t.Kind == lexer.TkNewline || t.Kind == lexer.TkSemicolon || t.Kind == lexer.TkComma
}

func span(t lexer.Token) ast.Span { return ast.Span{Line: t.Line} }

//-----------------------------------------------------------------------------
// Program / statements
//-----------------------------------------------------------------------------

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{Span: ast.Span{Line: 1}}
	for p.curr().Kind != lexer.TkEOF {
		if isSeparator(p.curr()) {
			p.advance()
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

func (p *parser) statement() (ast.Node, error) {
	t := p.curr()

	if t.Kind == lexer.TkKeyword {
		switch t.Lex {
		case "classdef":
			return p.parseClassdef()
		case "function":
			return p.parseFunction()
		case "if":
			return p.parseIf()
		case "switch":
			return p.parseSwitch()
		case "try":
			return p.parseTry()
		case "for":
			return p.parseFor()
		case "while":
			return p.parseWhile()
		case "break":
			p.advance()
			return &ast.Break{Span: span(t)}, nil
		case "continue":
			p.advance()
			return &ast.Continue{Span: span(t)}, nil
		case "global":
			return p.parseGlobal()
		case "return":
			p.advance()
			if !isSeparator(p.curr()) && p.curr().Kind != lexer.TkEOF {
				val, err := p.expression()
				if err != nil {
					return nil, err
				}
				return &ast.Return{Span: span(t), Value: val}, nil
			}
			return &ast.Return{Span: span(t)}, nil
		}
	}

	// Command syntax: a bare identifier followed by a word-like token with
	// nothing that could start an expression trailer in between.
	if t.Kind == lexer.TkIdent {
		nxt := p.lookahead(1)
		if nxt.Kind == lexer.TkIdent || nxt.Kind == lexer.TkString || nxt.Kind == lexer.TkNumber {
			return p.parseCommand()
		}
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	if p.curr().Lex == "=" {
		eq := p.advance()
		rhs, err := p.expression()
		if err != nil {
			return nil, err
		}
		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{Span: span(eq), Target: target, Value: rhs}, nil
		case *ast.Matrix:
			var names []string
			for _, row := range target.Rows {
				for _, item := range row {
					v, ok := item.(*ast.Variable)
					if !ok {
						return nil, &SyntaxError{Msg: "multi-assignment targets must be plain variables", Tok: eq}
					}
					names = append(names, v.Name)
				}
			}
			return &ast.MultiAssign{Span: span(eq), Targets: names, Value: rhs}, nil
		case *ast.Member:
			return &ast.Assign{Span: span(eq), Target: target, Value: rhs}, nil
		case *ast.Call:
			return &ast.Assign{Span: span(eq), Target: target, Value: rhs}, nil
		default:
			return nil, &SyntaxError{Msg: "invalid assignment target", Tok: eq}
		}
	}

	return expr, nil
}

func (p *parser) parseCommand() (ast.Node, error) {
	name, err := p.expectKind(lexer.TkIdent)
	if err != nil {
		return nil, err
	}
	cmd := &ast.Command{Span: span(name), Name: name.Lex}
	for {
		t := p.curr()
		if t.Kind == lexer.TkIdent || t.Kind == lexer.TkString || t.Kind == lexer.TkNumber {
			cmd.Args = append(cmd.Args, t.Lex)
			p.advance()
			continue
		}
		break
	}
	return cmd, nil
}

//-----------------------------------------------------------------------------
// Blocks and keyword constructs
//-----------------------------------------------------------------------------

func (p *parser) parseBlock() ([]ast.Node, error) {
	var body []ast.Node
	for p.curr().Kind != lexer.TkEOF &&
		!p.atKeyword("end", "else", "elseif", "catch", "case", "otherwise") {
		if isSeparator(p.curr()) {
			p.advance()
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	return body, nil
}

func (p *parser) parseFunction() (*ast.FunctionDef, error) {
	kw := p.curr()
	if err := p.expectKeyword("function"); err != nil {
		return nil, err
	}

	var outputs []string

	// function [y1, y2] = f(x)
	if p.curr().Kind == lexer.TkLBracket {
		p.advance()
		for p.curr().Kind == lexer.TkIdent {
			outputs = append(outputs, p.advance().Lex)
			if p.curr().Kind == lexer.TkComma {
				p.advance()
			}
		}
		if _, err := p.expectKind(lexer.TkRBracket); err != nil {
			return nil, err
		}
		if _, err := p.expectLex("="); err != nil {
			return nil, err
		}
	} else if p.curr().Kind == lexer.TkIdent && p.lookahead(1).Lex == "=" {
		// function y = f(x)
		outputs = append(outputs, p.advance().Lex)
		p.advance() // '='
	}

	name, err := p.expectKind(lexer.TkIdent)
	if err != nil {
		return nil, err
	}

	if _, err := p.expectKind(lexer.TkLParen); err != nil {
		return nil, err
	}
	var params []string
	if p.curr().Kind == lexer.TkIdent {
		params = append(params, p.advance().Lex)
		for p.curr().Kind == lexer.TkComma {
			p.advance()
			arg, err := p.expectKind(lexer.TkIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, arg.Lex)
		}
	}
	if _, err := p.expectKind(lexer.TkRParen); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return &ast.FunctionDef{
		Span:    span(kw),
		Name:    name.Lex,
		Params:  params,
		Outputs: outputs,
		Body:    body,
	}, nil
}

func (p *parser) parseIf() (*ast.IfBlock, error) {
	kw := p.curr()
	if err := p.expectKeyword("if"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	blk := &ast.IfBlock{Span: span(kw), Clauses: []ast.IfClause{{Cond: cond, Body: body}}}

	for p.atKeyword("elseif") {
		p.advance()
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		blk.Clauses = append(blk.Clauses, ast.IfClause{Cond: cond, Body: body})
	}

	if p.atKeyword("else") {
		p.advance()
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if elseBody == nil {
			elseBody = []ast.Node{}
		}
		blk.Else = elseBody
	}

	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *parser) parseTry() (*ast.TryBlock, error) {
	kw := p.curr()
	if err := p.expectKeyword("try"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	blk := &ast.TryBlock{Span: span(kw), Body: body}

	if p.atKeyword("catch") {
		p.advance()
		// Optional capture: catch ME
		if p.curr().Kind == lexer.TkIdent {
			blk.CatchVar = p.advance().Lex
		}
		catch, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		blk.Catch = catch
	}

	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *parser) parseSwitch() (*ast.SwitchBlock, error) {
	kw := p.curr()
	if err := p.expectKeyword("switch"); err != nil {
		return nil, err
	}
	subject, err := p.expression()
	if err != nil {
		return nil, err
	}
	blk := &ast.SwitchBlock{Span: span(kw), Subject: subject}

	for isSeparator(p.curr()) {
		p.advance()
	}

	for p.atKeyword("case") {
		p.advance()
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		if isSeparator(p.curr()) || p.curr().Kind == lexer.TkComma {
			p.advance()
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		blk.Cases = append(blk.Cases, ast.SwitchCase{Value: val, Body: body})
	}

	if p.atKeyword("otherwise") {
		p.advance()
		otherwise, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if otherwise == nil {
			otherwise = []ast.Node{}
		}
		blk.Otherwise = otherwise
	}

	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *parser) parseFor() (*ast.ForLoop, error) {
	kw := p.curr()
	if err := p.expectKeyword("for"); err != nil {
		return nil, err
	}
	name, err := p.expectKind(lexer.TkIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectLex("="); err != nil {
		return nil, err
	}
	iter, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return &ast.ForLoop{Span: span(kw), Var: name.Lex, Iter: iter, Body: body}, nil
}

func (p *parser) parseWhile() (*ast.WhileLoop, error) {
	kw := p.curr()
	if err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return &ast.WhileLoop{Span: span(kw), Cond: cond, Body: body}, nil
}

func (p *parser) parseGlobal() (*ast.GlobalDecl, error) {
	kw := p.curr()
	if err := p.expectKeyword("global"); err != nil {
		return nil, err
	}
	decl := &ast.GlobalDecl{Span: span(kw)}
	for p.curr().Kind == lexer.TkIdent {
		decl.Names = append(decl.Names, p.advance().Lex)
	}
	return decl, nil
}
