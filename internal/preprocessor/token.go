package preprocessor

import (
	"fmt"
	"strings"

	"modernc.org/token"
)

// Kind is the lexical class of a Token.
type Kind uint8

const (
	EOF Kind = iota
	Newline
	Space
	Ident
	Number
	String
	Char
	Punct
)

var tokenKinds = [...]string{
	EOF:     "EOF",
	Newline: "Newline",
	Space:   "Space",
	Ident:   "Ident",
	Number:  "Number",
	String:  "String",
	Char:    "Char",
	Punct:   "Punct",
}

func (k Kind) String() string {
	if int(k) < len(tokenKinds) {
		return tokenKinds[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a preprocessing token. Tokens are values; the expander derives
// new tokens instead of changing existing ones.
type Token struct {
	Kind Kind
	Text string
	Pos  token.Pos
	File *token.File
	hs   hideSet
}

// Position resolves the token position, honoring #line renumbering.
func (t Token) Position() token.Position {
	if t.File == nil {
		return token.Position{}
	}
	return t.File.Position(t.Pos)
}

// rawLine is the physical line of the token, ignoring #line.
func (t Token) rawLine() int {
	if t.File == nil {
		return 0
	}
	return t.File.PositionFor(t.Pos, false).Line
}

func (t Token) is(punct string) bool { return t.Kind == Punct && t.Text == punct }

func (t Token) String() string { return t.Text }

// at returns t re-spelled as text with the position of pos.
func (t Token) at(pos Token) Token {
	t.Pos, t.File = pos.Pos, pos.File
	return t
}

func spell(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func trimSpace(toks []Token) []Token {
	for len(toks) > 0 && toks[0].Kind == Space {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Kind == Space {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// skipSpace returns the index of the first non-space token at or after i.
func skipSpace(toks []Token, i int) int {
	for i < len(toks) && toks[i].Kind == Space {
		i++
	}
	return i
}

// sameTokens compares spellings, treating any run of whitespace as one
// separator. Used for benign macro redefinitions.
func sameTokens(a, b []Token) bool {
	a, b = trimSpace(a), trimSpace(b)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		as, bs := a[i].Kind == Space, b[j].Kind == Space
		if as != bs {
			return false
		}
		if as {
			i, j = skipSpace(a, i), skipSpace(b, j)
			continue
		}
		if a[i].Text != b[j].Text {
			return false
		}
		i++
		j++
	}
	return i == len(a) && j == len(b)
}
