package lexer

import (
	"errors"
	"testing"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func mustTokenize(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) returned error: %v", src, err)
	}
	return toks
}

func TestQuoteAfterIdentIsTranspose(t *testing.T) {
	toks := mustTokenize(t, "A'")
	if len(toks) != 3 {
		t.Fatalf("token count = %d, want 3 (ident, op, eof): %v", len(toks), toks)
	}
	if toks[1].Kind != TkOp || toks[1].Lex != "'" {
		t.Fatalf("second token = %v, want transpose op", toks[1])
	}
}

func TestQuoteAfterSpaceIsString(t *testing.T) {
	toks := mustTokenize(t, "x = 'hello'")
	last := toks[len(toks)-2]
	if last.Kind != TkString || last.Lex != "hello" {
		t.Fatalf("string token = %v, want STRING %q", last, "hello")
	}
}

func TestQuoteAfterParenIsTranspose(t *testing.T) {
	toks := mustTokenize(t, "(A+B)'")
	last := toks[len(toks)-2]
	if last.Kind != TkOp || last.Lex != "'" {
		t.Fatalf("token after ) = %v, want transpose op", last)
	}
}

func TestDoubleTranspose(t *testing.T) {
	toks := mustTokenize(t, "A''")
	if toks[1].Lex != "'" || toks[2].Lex != "'" {
		t.Fatalf("tokens = %v, want two transpose ops", toks)
	}
}

func TestSignedNumberAfterSpace(t *testing.T) {
	toks := mustTokenize(t, "[1 -5]")
	// [ 1 -5 ] EOF
	if len(toks) != 5 {
		t.Fatalf("token count = %d, want 5: %v", len(toks), toks)
	}
	if toks[2].Kind != TkNumber || toks[2].Lex != "-5" {
		t.Fatalf("third token = %v, want NUMBER -5", toks[2])
	}
}

func TestSignWithoutSpaceIsOperator(t *testing.T) {
	toks := mustTokenize(t, "1-5")
	if toks[1].Kind != TkOp || toks[1].Lex != "-" {
		t.Fatalf("second token = %v, want OP -", toks[1])
	}
}

func TestLineContinuation(t *testing.T) {
	toks := mustTokenize(t, "1 + ...\n2")
	var hasNewline bool
	for _, tok := range toks {
		if tok.Kind == TkNewline {
			hasNewline = true
		}
	}
	if hasNewline {
		t.Fatalf("continuation leaked a NEWLINE token: %v", toks)
	}
	if toks[2].Kind != TkNumber || toks[2].Lex != "2" {
		t.Fatalf("third token = %v, want NUMBER 2", toks[2])
	}
}

func TestImaginarySuffix(t *testing.T) {
	toks := mustTokenize(t, "3i + 4j")
	if toks[0].Lex != "3i" {
		t.Fatalf("first token lexeme = %q, want 3i", toks[0].Lex)
	}
	if toks[2].Lex != "4i" {
		t.Fatalf("third token lexeme = %q, want 4i (j normalized)", toks[2].Lex)
	}
}

func TestImaginarySuffixNotIdentifier(t *testing.T) {
	toks := mustTokenize(t, "3in")
	// Must lex as NUMBER 3 then IDENT in (a keyword-free identifier).
	if toks[0].Lex != "3" || toks[1].Lex != "in" {
		t.Fatalf("tokens = %v, want 3 then in", toks)
	}
}

func TestCommentsStripped(t *testing.T) {
	toks := mustTokenize(t, "x = 1 % note\ny = 2")
	for _, tok := range toks {
		if tok.Kind == TkIdent && tok.Lex == "note" {
			t.Fatalf("comment text leaked into tokens: %v", toks)
		}
	}
	if got := kinds(toks); got[4] != TkNewline {
		t.Fatalf("kinds = %v, want NEWLINE at index 4", got)
	}
}

func TestScientificNotation(t *testing.T) {
	toks := mustTokenize(t, "1.5e-3")
	if len(toks) != 2 || toks[0].Lex != "1.5e-3" {
		t.Fatalf("tokens = %v, want single number 1.5e-3", toks)
	}
}

func TestTwoCharOperators(t *testing.T) {
	toks := mustTokenize(t, "a ~= b && c <= d .* e")
	want := []string{"~=", "&&", "<=", ".*"}
	var ops []string
	for _, tok := range toks {
		if tok.Kind == TkOp {
			ops = append(ops, tok.Lex)
		}
	}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestKeywordsLoweredCompare(t *testing.T) {
	toks := mustTokenize(t, "If x")
	if toks[0].Kind != TkKeyword {
		t.Fatalf("first token = %v, want KEYWORD (case-insensitive)", toks[0])
	}
}

func TestLexErrorOnUnknownRune(t *testing.T) {
	_, err := Tokenize("x = 1\ny = #")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("error = %v, want *LexError", err)
	}
	if lexErr.Line != 2 {
		t.Fatalf("LexError.Line = %d, want 2", lexErr.Line)
	}
}

func TestLineNumbers(t *testing.T) {
	toks := mustTokenize(t, "a\nb\nc")
	lines := map[string]int{}
	for _, tok := range toks {
		if tok.Kind == TkIdent {
			lines[tok.Lex] = tok.Line
		}
	}
	if lines["a"] != 1 || lines["b"] != 2 || lines["c"] != 3 {
		t.Fatalf("lines = %v, want a:1 b:2 c:3", lines)
	}
}
