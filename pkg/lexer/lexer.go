// Package lexer turns dialect source text into a token stream. It resolves
// the language's context-sensitive ambiguities: a quote is a transpose
// operator only when it is adjacent to a value-like token, and a leading
// sign folds into the following number literal only after whitespace.
package lexer

import (
	"fmt"
	"strings"
)

// LexError reports an unrecognized character.
type LexError struct {
	Ch   rune
	Line int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected character %q at line %d", e.Ch, e.Line)
}

type lexer struct {
	src  string
	pos  int
	line int
}

// Tokenize scans src into tokens. Comments and line continuations are
// stripped; newlines are kept as explicit NEWLINE tokens because they
// separate statements and matrix rows. The stream always ends with EOF.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1}
	return lx.run()
}

func (lx *lexer) run() ([]Token, error) {
	var toks []Token
	// Start true so a leading sign at the very start of input folds into
	// the number, as after a newline.
	spaceSkipped := true

	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]

		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			if ch == '\n' {
				toks = append(toks, Token{Kind: TkNewline, Lex: "\n", Line: lx.line})
				lx.line++
			}
			lx.pos++
			spaceSkipped = true
			continue
		}

		if ch == '%' {
			lx.skipToEOL()
			spaceSkipped = true
			continue
		}

		// Line continuation: `...` swallows the rest of the physical line.
		if ch == '.' && lx.peek(1) == '.' && lx.peek(2) == '.' {
			lx.pos += 3
			lx.skipToEOL()
			spaceSkipped = true
			continue
		}

		// A sign after whitespace that is immediately followed by a digit
		// or decimal point belongs to the number: `[1 -5]` is two numbers.
		if (ch == '+' || ch == '-') && spaceSkipped {
			nxt := lx.peek(1)
			if isDigit(nxt) || (nxt == '.' && isDigit(lx.peek(2))) {
				toks = append(toks, lx.readNumber())
				spaceSkipped = false
				continue
			}
		}

		if isAlpha(ch) || ch == '_' {
			tok := lx.readIdent()
			if keywords[strings.ToLower(tok.Lex)] {
				tok.Kind = TkKeyword
			}
			toks = append(toks, tok)
			spaceSkipped = false
			continue
		}

		if isDigit(ch) || (ch == '.' && isDigit(lx.peek(1))) {
			toks = append(toks, lx.readNumber())
			spaceSkipped = false
			continue
		}

		// Quote: transpose only when adjacent to an identifier, number,
		// closing bracket or another transpose; otherwise a string opens.
		if ch == '\'' {
			transpose := false
			if len(toks) > 0 && !spaceSkipped {
				prev := toks[len(toks)-1]
				switch {
				case prev.Kind == TkIdent || prev.Kind == TkNumber:
					transpose = true
				case prev.Kind == TkRParen || prev.Kind == TkRBracket || prev.Kind == TkRBrace:
					transpose = true
				case prev.Kind == TkOp && (prev.Lex == "'" || prev.Lex == ".'"):
					transpose = true
				}
			}
			if transpose {
				toks = append(toks, Token{Kind: TkOp, Lex: "'", Line: lx.line})
				lx.pos++
			} else {
				toks = append(toks, lx.readString())
			}
			spaceSkipped = false
			continue
		}

		if ch == '@' {
			toks = append(toks, Token{Kind: TkAt, Lex: "@", Line: lx.line})
			lx.pos++
			spaceSkipped = false
			continue
		}

		if strings.IndexByte("+-*/^=<>:;(),[]{}\\.~&|", ch) >= 0 {
			toks = append(toks, lx.readOperator())
			spaceSkipped = false
			continue
		}

		return nil, &LexError{Ch: rune(ch), Line: lx.line}
	}

	toks = append(toks, Token{Kind: TkEOF, Line: lx.line})
	return toks, nil
}

func (lx *lexer) peek(off int) byte {
	p := lx.pos + off
	if p < len(lx.src) {
		return lx.src[p]
	}
	return 0
}

func (lx *lexer) skipToEOL() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
}

func (lx *lexer) readIdent() Token {
	start := lx.pos
	for lx.pos < len(lx.src) && (isAlnum(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
		lx.pos++
	}
	return Token{Kind: TkIdent, Lex: lx.src[start:lx.pos], Line: lx.line}
}

func (lx *lexer) readNumber() Token {
	start := lx.pos

	if lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-' {
		lx.pos++
	}
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}

	// Decimal part, unless the dot starts a `...` continuation.
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		if !(lx.peek(1) == '.' && lx.peek(2) == '.') {
			lx.pos++
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		}
	}

	// Scientific notation.
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		p := lx.pos + 1
		if p < len(lx.src) && (lx.src[p] == '+' || lx.src[p] == '-') {
			p++
		}
		if p < len(lx.src) && isDigit(lx.src[p]) {
			lx.pos = p
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		}
	}

	// Imaginary suffix `3i` / `4j`, but not when it starts an identifier
	// like `3in` (which is a lex-level adjacency the parser rejects).
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'i' || lx.src[lx.pos] == 'j') {
		nxt := lx.peek(1)
		if !isAlnum(nxt) && nxt != '_' {
			lit := lx.src[start:lx.pos] + "i"
			lx.pos++
			return Token{Kind: TkNumber, Lex: lit, Line: lx.line}
		}
	}

	return Token{Kind: TkNumber, Lex: lx.src[start:lx.pos], Line: lx.line}
}

func (lx *lexer) readString() Token {
	line := lx.line
	lx.pos++ // opening quote
	start := lx.pos
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\'' {
		lx.pos++
	}
	val := lx.src[start:lx.pos]
	if lx.pos < len(lx.src) {
		lx.pos++ // closing quote
	}
	return Token{Kind: TkString, Lex: val, Line: line}
}

func (lx *lexer) readOperator() Token {
	ch := lx.src[lx.pos]
	nxt := lx.peek(1)

	// Dotted operators: .* ./ .\ .^ .'
	if ch == '.' && (nxt == '*' || nxt == '/' || nxt == '\\' || nxt == '^' || nxt == '\'') {
		lx.pos += 2
		return Token{Kind: TkOp, Lex: string(ch) + string(nxt), Line: lx.line}
	}

	// Two-char comparisons: == ~= <= >=
	if (ch == '=' || ch == '~' || ch == '<' || ch == '>') && nxt == '=' {
		lx.pos += 2
		return Token{Kind: TkOp, Lex: string(ch) + string(nxt), Line: lx.line}
	}

	// Short-circuit && and ||
	if (ch == '&' || ch == '|') && nxt == ch {
		lx.pos += 2
		return Token{Kind: TkOp, Lex: string(ch) + string(nxt), Line: lx.line}
	}

	lx.pos++
	switch ch {
	case '(':
		return Token{Kind: TkLParen, Lex: "(", Line: lx.line}
	case ')':
		return Token{Kind: TkRParen, Lex: ")", Line: lx.line}
	case '[':
		return Token{Kind: TkLBracket, Lex: "[", Line: lx.line}
	case ']':
		return Token{Kind: TkRBracket, Lex: "]", Line: lx.line}
	case '{':
		return Token{Kind: TkLBrace, Lex: "{", Line: lx.line}
	case '}':
		return Token{Kind: TkRBrace, Lex: "}", Line: lx.line}
	case ',':
		return Token{Kind: TkComma, Lex: ",", Line: lx.line}
	case ';':
		return Token{Kind: TkSemicolon, Lex: ";", Line: lx.line}
	case '.':
		return Token{Kind: TkDot, Lex: ".", Line: lx.line}
	}
	return Token{Kind: TkOp, Lex: string(ch), Line: lx.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }
