package preprocessor

import (
	"bytes"

	"modernc.org/token"
)

// ---------------- Lexer ----------------

// lexer turns source text into preprocessing tokens. Backslash-newline
// pairs are removed up front; orig maps every spliced byte back to its
// offset in the original text so positions stay physical.
type lexer struct {
	file *token.File
	src  []byte
	orig []int
	off  int
}

func newLexer(name, src string) *lexer {
	f := token.NewFile(name, len(src))
	f.SetLinesForContent([]byte(src))
	b, orig := splice(src)
	return &lexer{file: f, src: b, orig: orig}
}

// splice deletes line continuations.
func splice(s string) ([]byte, []int) {
	b := make([]byte, 0, len(s))
	orig := make([]int, 0, len(s)+1)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
				continue
			}
			if i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n' {
				i += 2
				continue
			}
		}
		b = append(b, s[i])
		orig = append(orig, i)
	}
	orig = append(orig, len(s))
	return b, orig
}

// tokenize lexes a whole file. The returned token.File is shared by all
// tokens and receives #line information later on.
func tokenize(name, src string) ([]Token, *token.File, error) {
	l := newLexer(name, src)
	toks, err := l.lex()
	return toks, l.file, err
}

func (l *lexer) lex() ([]Token, error) {
	var toks []Token
	for l.off < len(l.src) {
		start := l.off
		c := l.src[l.off]
		var kind Kind
		switch {
		case c == '\n':
			l.off++
			kind = Newline
		case isSpaceByte(c):
			for l.off < len(l.src) && isSpaceByte(l.src[l.off]) {
				l.off++
			}
			kind = Space
		case c == '/' && l.peek(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.off++
			}
			toks = append(toks, l.token(Space, " ", start))
			continue
		case c == '/' && l.peek(1) == '*':
			end := bytes.Index(l.src[l.off+2:], []byte("*/"))
			if end < 0 {
				return toks, errorf(SyntaxError, l.token(Space, "", start), "unterminated comment")
			}
			l.off += 2 + end + 2
			toks = append(toks, l.token(Space, " ", start))
			continue
		case isIdentStart(c):
			for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
				l.off++
			}
			kind = Ident
			if isLiteralPrefix(string(l.src[start:l.off])) && l.off < len(l.src) {
				switch l.src[l.off] {
				case '"':
					l.quoted('"')
					kind = String
				case '\'':
					l.quoted('\'')
					kind = Char
				}
			}
		case isDigit(c) || c == '.' && isDigit(l.peek(1)):
			l.number()
			kind = Number
		case c == '"':
			l.quoted('"')
			kind = String
		case c == '\'':
			l.quoted('\'')
			kind = Char
		default:
			l.off += punctLen(l.src[l.off:])
			kind = Punct
		}
		toks = append(toks, l.token(kind, string(l.src[start:l.off]), start))
	}
	return toks, nil
}

func (l *lexer) token(kind Kind, text string, start int) Token {
	return Token{Kind: kind, Text: text, Pos: l.file.Pos(l.orig[start]), File: l.file}
}

func (l *lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

// quoted consumes a string or character literal. An unterminated literal
// stops at the end of the line.
func (l *lexer) quoted(q byte) {
	l.off++
	for l.off < len(l.src) {
		switch c := l.src[l.off]; {
		case c == '\\' && l.off+1 < len(l.src) && l.src[l.off+1] != '\n':
			l.off += 2
		case c == q:
			l.off++
			return
		case c == '\n':
			return
		default:
			l.off++
		}
	}
}

// number consumes a pp-number.
func (l *lexer) number() {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case (c == 'e' || c == 'E' || c == 'p' || c == 'P') && (l.peek(1) == '+' || l.peek(1) == '-'):
			l.off += 2
		case c == '\'' && isIdentPart(l.peek(1)):
			l.off += 2
		case isIdentPart(c) || c == '.':
			l.off++
		default:
			return
		}
	}
}

var puncts3 = []string{"...", "<<=", ">>="}

var puncts2 = []string{
	"##", "->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::",
}

func punctLen(b []byte) int {
	for _, p := range puncts3 {
		if bytes.HasPrefix(b, []byte(p)) {
			return 3
		}
	}
	for _, p := range puncts2 {
		if bytes.HasPrefix(b, []byte(p)) {
			return 2
		}
	}
	return 1
}

func isLiteralPrefix(s string) bool {
	return s == "L" || s == "u" || s == "U" || s == "u8"
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

func isDigit(b byte) bool { return '0' <= b && b <= '9' }

// Bytes >= 0x80 are accepted in identifiers so UTF-8 names stay whole.
func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || b >= 0x80
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

// lexText lexes a fragment that is not part of a source file, such as
// the result of a paste or a command line definition.
func lexText(name, s string) ([]Token, error) {
	toks, _, err := tokenize(name, s)
	return toks, err
}
