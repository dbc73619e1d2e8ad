package lexer

import "fmt"

// TokenKind classifies a lexeme.
type TokenKind int

// Token kinds.
const (
	TkEOF TokenKind = iota
	TkNewline
	TkIdent
	TkKeyword
	TkNumber
	TkString
	TkOp
	TkLParen
	TkRParen
	TkLBracket
	TkRBracket
	TkLBrace
	TkRBrace
	TkComma
	TkSemicolon
	TkDot
	TkAt
)

func (k TokenKind) String() string {
	switch k {
	case TkEOF:
		return "EOF"
	case TkNewline:
		return "NEWLINE"
	case TkIdent:
		return "IDENT"
	case TkKeyword:
		return "KEYWORD"
	case TkNumber:
		return "NUMBER"
	case TkString:
		return "STRING"
	case TkOp:
		return "OP"
	case TkLParen:
		return "("
	case TkRParen:
		return ")"
	case TkLBracket:
		return "["
	case TkRBracket:
		return "]"
	case TkLBrace:
		return "{"
	case TkRBrace:
		return "}"
	case TkComma:
		return ","
	case TkSemicolon:
		return ";"
	case TkDot:
		return "."
	case TkAt:
		return "@"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is a single lexeme with its 1-based source line.
type Token struct {
	Kind TokenKind
	Lex  string
	Line int
}

func (t Token) String() string {
	return fmt.Sprintf("%s:%q@%d", t.Kind, t.Lex, t.Line)
}

// keywords uses lowercase comparison, matching the dialect.
var keywords = map[string]bool{
	"if": true, "elseif": true, "else": true, "end": true,
	"for": true, "while": true, "break": true, "continue": true,
	"global": true, "switch": true, "case": true, "otherwise": true,
	"try": true, "catch": true, "function": true, "return": true,
	"classdef": true, "properties": true, "methods": true, "events": true,
}
