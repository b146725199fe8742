package preprocessor

import (
	"strings"
)

// ---------------- Expansion ----------------

// marker stands in for an empty argument next to ## and is dropped once
// pasting is done.
const marker Kind = 0xff

// verbatim tokens are written to the output as is (_Pragma results).
const verbatim Kind = 0xfe

// expander rescans a token stream. Tokens pushed back by a substitution
// are read before the rest of the input, so an invocation may pick up its
// argument list from the text following the macro that produced its name.
type expander struct {
	p    *Preprocessor
	back []Token // top of stack is last
	toks []Token
	i    int

	// more supplies the next source line when an argument list continues
	// past the end of the current one. nil inside #if and arguments.
	more func() ([]Token, bool)

	// pragma handles _Pragma operators; nil disables them.
	pragma func(text string, at Token) ([]Token, error)

	// cond is set inside #if: a defined produced by a macro keeps its
	// operand unexpanded.
	cond bool
}

func (p *Preprocessor) newExpander(toks []Token) *expander {
	return &expander{p: p, toks: toks}
}

// expandTokens fully macro-expands toks without reading any further input.
func (p *Preprocessor) expandTokens(toks []Token) ([]Token, error) {
	return p.newExpander(toks).expand()
}

func (e *expander) next() (Token, bool) { return e.read(false) }

// read returns the next token. With more set, input is extended by
// further source lines when the current one is used up.
func (e *expander) read(more bool) (Token, bool) {
	if n := len(e.back); n > 0 {
		t := e.back[n-1]
		e.back = e.back[:n-1]
		return t, true
	}
	for e.i >= len(e.toks) {
		if !more || e.more == nil {
			return Token{}, false
		}
		line, ok := e.more()
		if !ok {
			return Token{}, false
		}
		e.toks, e.i = line, 0
	}
	t := e.toks[e.i]
	e.i++
	return t, true
}

func (e *expander) unread(toks ...Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		e.back = append(e.back, toks[i])
	}
}

func (e *expander) expand() ([]Token, error) {
	var out []Token
	for {
		t, ok := e.next()
		if !ok {
			return out, nil
		}
		if t.Kind != Ident {
			out = append(out, t)
			continue
		}
		if t.Text == "defined" && e.cond {
			out = append(append(out, t), e.definedOperand()...)
			continue
		}
		if t.Text == "_Pragma" && e.pragma != nil {
			r, err := e.pragmaOperator(t)
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
			continue
		}
		m, ok := e.p.macros.Lookup(t.Text)
		if !ok {
			out = append(out, t)
			continue
		}
		id := e.p.names.id(t.Text)
		if t.hs.has(id) {
			out = append(out, t)
			continue
		}
		if m.dynamic != nil {
			out = append(out, m.dynamic(e.p, t))
			continue
		}
		if depth := len(t.hs) + 1; depth > e.p.limit {
			return nil, errorf(RecursionLimitExceeded, t, "expansion of %q exceeds depth %d (via %s)",
				t.Text, e.p.limit, strings.Join(e.p.names.list(t.hs), ", "))
		}
		if !m.FuncLike {
			body, err := e.p.subst(m, nil, t)
			if err != nil {
				return nil, err
			}
			e.unread(paint(body, t.hs.add(id))...)
			continue
		}
		if !e.openParen() {
			out = append(out, t)
			continue
		}
		args, rparen, err := e.collectArgs(m, t)
		if err != nil {
			return nil, err
		}
		body, err := e.p.subst(m, args, t)
		if err != nil {
			return nil, err
		}
		e.unread(paint(body, t.hs.intersect(rparen.hs).add(id))...)
	}
}

// openParen consumes whitespace and the '(' that starts an argument
// list. Without one, nothing is consumed.
func (e *expander) openParen() bool {
	var skipped []Token
	for {
		t, ok := e.read(true)
		if !ok {
			e.unread(skipped...)
			return false
		}
		switch {
		case t.Kind == Space || t.Kind == Newline:
			skipped = append(skipped, t)
		case t.is("("):
			return true
		default:
			e.unread(append(skipped, t)...)
			return false
		}
	}
}

// collectArgs reads the arguments of an invocation of m up to the closing
// parenthesis, which it returns. Commas nested in parentheses do not split
// arguments, nor do the commas inside the variadic part.
func (e *expander) collectArgs(m *Macro, name Token) ([][]Token, Token, error) {
	var args [][]Token
	var cur []Token
	depth := 0
	for {
		t, ok := e.read(true)
		if !ok {
			return nil, Token{}, errorf(SyntaxError, name, "unterminated argument list invoking macro %q", m.Name)
		}
		switch {
		case t.Kind == Newline:
			t.Kind, t.Text = Space, " "
		case t.is("("):
			depth++
		case t.is(")"):
			if depth == 0 {
				args = append(args, cur)
				args, err := checkArity(m, name, args)
				return args, t, err
			}
			depth--
		case t.is(",") && depth == 0 && !(m.Variadic && len(args) == len(m.Params)-1):
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
}

func checkArity(m *Macro, name Token, args [][]Token) ([][]Token, error) {
	for i := range args {
		args[i] = trimSpace(args[i])
	}
	if len(m.Params) == 0 && len(args) == 1 && len(args[0]) == 0 {
		return nil, nil
	}
	if m.Variadic {
		need := len(m.Params) - 1
		if len(args) == need {
			args = append(args, nil)
		}
		if len(args) < need {
			return nil, errorf(ArgumentCountMismatch, name, "macro %q requires at least %d arguments, but only %d given",
				m.Name, need, len(args))
		}
		return args, nil
	}
	if len(args) != len(m.Params) {
		return nil, errorf(ArgumentCountMismatch, name, "macro %q requires %d arguments, but %d given",
			m.Name, len(m.Params), len(args))
	}
	return args, nil
}

// subst builds the replacement of one invocation of m: parameters are
// replaced by their fully expanded arguments, except where they are the
// operand of # or ##. All result tokens take the position of name.
func (p *Preprocessor) subst(m *Macro, args [][]Token, name Token) ([]Token, error) {
	expanded := make([][]Token, len(args))
	expandedOK := make([]bool, len(args))
	arg := func(i int) ([]Token, error) {
		if !expandedOK[i] {
			r, err := p.expandTokens(args[i])
			if err != nil {
				return nil, err
			}
			expanded[i], expandedOK[i] = trimSpace(r), true
		}
		return expanded[i], nil
	}

	var out []Token
	body := m.Body
	for i := 0; i < len(body); i++ {
		t := body[i]

		// # param
		if t.is("#") && m.FuncLike {
			j := skipSpace(body, i+1)
			out = append(out, stringize(args[m.param(body[j].Text)], name))
			i = j
			continue
		}

		// lhs ## rhs
		if t.is("##") {
			j := skipSpace(body, i+1)
			rhs := body[j]
			for len(out) > 0 && out[len(out)-1].Kind == Space {
				out = out[:len(out)-1]
			}
			var rtoks []Token
			switch idx := m.param(rhs.Text); {
			case rhs.is("#") && m.FuncLike:
				k := skipSpace(body, j+1)
				rtoks = []Token{stringize(args[m.param(body[k].Text)], name)}
				j = k
			case idx >= 0:
				rtoks = args[idx]
				if m.Variadic && idx == len(m.Params)-1 && len(out) > 0 && out[len(out)-1].is(",") {
					// GNU: , ## __VA_ARGS__ drops the comma when there are no variadic arguments.
					if len(rtoks) == 0 {
						out = out[:len(out)-1]
					} else {
						out = append(out, rtoks...)
					}
					i = j
					continue
				}
			default:
				rtoks = []Token{rhs}
			}
			i = j
			if len(rtoks) == 0 {
				continue
			}
			if len(out) == 0 || out[len(out)-1].Kind == marker {
				if len(out) > 0 {
					out = out[:len(out)-1]
				}
				out = append(out, rtoks...)
				continue
			}
			pasted, err := paste(m, out[len(out)-1], rtoks[0])
			if err != nil {
				return nil, err
			}
			out[len(out)-1] = pasted
			out = append(out, rtoks[1:]...)
			continue
		}

		idx := m.param(t.Text)
		if t.Kind != Ident || idx < 0 {
			out = append(out, t)
			continue
		}
		if k := skipSpace(body, i+1); k < len(body) && body[k].is("##") {
			if len(args[idx]) == 0 {
				out = append(out, Token{Kind: marker})
			} else {
				out = append(out, args[idx]...)
			}
			continue
		}
		r, err := arg(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}

	r := out[:0]
	for _, t := range out {
		if t.Kind == marker {
			continue
		}
		r = append(r, t.at(name))
	}
	return r, nil
}

// stringize spells toks as a string literal. Whitespace runs become a
// single space; quotes and backslashes inside literals are escaped.
func stringize(toks []Token, at Token) Token {
	var sb strings.Builder
	sb.WriteByte('"')
	space := false
	for _, t := range trimSpace(toks) {
		if t.Kind == Space || t.Kind == Newline {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		if t.Kind == String || t.Kind == Char {
			for i := 0; i < len(t.Text); i++ {
				if c := t.Text[i]; c == '"' || c == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteByte(t.Text[i])
			}
			continue
		}
		sb.WriteString(t.Text)
	}
	sb.WriteByte('"')
	return Token{Kind: String, Text: sb.String()}.at(at)
}

// paste joins the spellings of lhs and rhs, which must form exactly one
// token.
func paste(m *Macro, lhs, rhs Token) (Token, error) {
	text := lhs.Text + rhs.Text
	toks, err := lexText("<paste>", text)
	if err != nil || len(toks) != 1 || toks[0].Kind == Space || toks[0].Kind == Newline {
		return Token{}, errorf(InvalidPaste, lhs, "pasting %q and %q does not give a valid preprocessing token (in macro %q)",
			lhs.Text, rhs.Text, m.Name)
	}
	t := toks[0].at(lhs)
	t.hs = lhs.hs.union(rhs.hs)
	return t, nil
}

// pragmaOperator handles _Pragma("..."). Without a string operand the
// identifier is left alone.
func (e *expander) pragmaOperator(name Token) ([]Token, error) {
	if !e.openParen() {
		return []Token{name}, nil
	}
	var operand []Token
	for {
		t, ok := e.read(true)
		if !ok {
			return nil, errorf(SyntaxError, name, "_Pragma takes a parenthesized string literal")
		}
		if t.is(")") {
			break
		}
		if t.Kind != Space && t.Kind != Newline {
			operand = append(operand, t)
		}
	}
	if len(operand) != 1 || operand[0].Kind != String {
		return nil, errorf(SyntaxError, name, "_Pragma takes a parenthesized string literal")
	}
	return e.pragma(destringize(operand[0].Text), name)
}

// definedOperand copies "X" or "( X )" after a defined without
// expanding X. Malformed operands are left for the #if parser to report.
func (e *expander) definedOperand() []Token {
	var out []Token
	paren := false
	for {
		t, ok := e.next()
		if !ok {
			return out
		}
		switch {
		case t.Kind == Space || t.Kind == Newline:
			out = append(out, t)
		case t.is("(") && !paren:
			paren = true
			out = append(out, t)
		case t.Kind == Ident:
			out = append(out, t)
			if !paren {
				return out
			}
			for {
				u, ok := e.next()
				if !ok {
					return out
				}
				if u.Kind != Space && u.Kind != Newline && !u.is(")") {
					e.unread(u)
					return out
				}
				out = append(out, u)
				if u.is(")") {
					return out
				}
			}
		default:
			e.unread(t)
			return out
		}
	}
}

// destringize removes the quotes (and an encoding prefix) of a string
// literal and undoes the escaping of quotes and backslashes.
func destringize(s string) string {
	if i := strings.IndexByte(s, '"'); i >= 0 {
		s = s[i:]
	}
	s = strings.TrimPrefix(strings.TrimSuffix(s, "\""), "\"")
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
