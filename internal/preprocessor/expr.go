package preprocessor

import (
	"strconv"
	"strings"
)

// ---------------- #if expressions ----------------

// evalCondition evaluates the operand of #if or #elif. defined and
// __has_include are resolved before macro expansion, and once more for
// those a macro expanded to; identifiers left after expansion evaluate
// to 0.
func (p *Preprocessor) evalCondition(directive Token, toks []Token) (bool, error) {
	toks, err := p.resolveDefined(directive, toks)
	if err != nil {
		return false, err
	}
	x := p.newExpander(toks)
	x.cond = true
	if toks, err = x.expand(); err != nil {
		return false, err
	}
	if toks, err = p.resolveDefined(directive, toks); err != nil {
		return false, err
	}
	var clean []Token
	for _, t := range toks {
		if t.Kind != Space && t.Kind != Newline {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return false, errorf(SyntaxError, directive, "#%s with no expression", directive.Text)
	}
	ep := &exprParser{p: p, toks: clean, at: directive}
	v, err := ep.comma(true)
	if err != nil {
		return false, err
	}
	if ep.i < len(ep.toks) {
		return false, errorf(SyntaxError, ep.toks[ep.i], "missing binary operator before token %q", ep.toks[ep.i].Text)
	}
	return v != 0, nil
}

// resolveDefined replaces "defined X", "defined(X)" and __has_include
// operators by 1 or 0 so that their operands are never expanded.
func (p *Preprocessor) resolveDefined(directive Token, toks []Token) ([]Token, error) {
	var out []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != Ident || (t.Text != "defined" && t.Text != "__has_include") {
			out = append(out, t)
			continue
		}
		var v bool
		var err error
		if t.Text == "defined" {
			v, i, err = p.definedOperand(t, toks, i+1)
		} else {
			v, i, err = p.hasInclude(t, toks, i+1)
		}
		if err != nil {
			return nil, err
		}
		n := Token{Kind: Number, Text: "0"}.at(t)
		if v {
			n.Text = "1"
		}
		out = append(out, n)
	}
	return out, nil
}

// definedOperand parses the operand of defined starting at i and returns
// the index of its last token.
func (p *Preprocessor) definedOperand(op Token, toks []Token, i int) (bool, int, error) {
	i = skipSpace(toks, i)
	paren := i < len(toks) && toks[i].is("(")
	if paren {
		i = skipSpace(toks, i+1)
	}
	if i >= len(toks) || toks[i].Kind != Ident {
		return false, i, errorf(SyntaxError, op, "operator \"defined\" requires an identifier")
	}
	v := p.macros.IsDefined(toks[i].Text)
	if paren {
		j := skipSpace(toks, i+1)
		if j >= len(toks) || !toks[j].is(")") {
			return false, i, errorf(SyntaxError, op, "missing ')' after \"defined\"")
		}
		i = j
	}
	return v, i, nil
}

func (p *Preprocessor) hasInclude(op Token, toks []Token, i int) (bool, int, error) {
	i = skipSpace(toks, i)
	if i >= len(toks) || !toks[i].is("(") {
		return false, i, errorf(SyntaxError, op, "missing '(' after \"__has_include\"")
	}
	end := i + 1
	for end < len(toks) && !toks[end].is(")") {
		end++
	}
	if end >= len(toks) {
		return false, i, errorf(SyntaxError, op, "missing ')' after \"__has_include\" operand")
	}
	path, kind, err := includeOperand(op, toks[i+1:end])
	if err != nil {
		return false, end, err
	}
	found, err := p.canInclude(op, path, kind)
	return found, end, err
}

// exprParser is a precedence-climbing evaluator over 64-bit signed
// integers. live is false inside the unevaluated operand of &&, || and
// ?:, where division by zero is not an error.
type exprParser struct {
	p    *Preprocessor
	toks []Token
	i    int
	at   Token
}

func (x *exprParser) peek() (Token, bool) {
	if x.i < len(x.toks) {
		return x.toks[x.i], true
	}
	return Token{}, false
}

func (x *exprParser) accept(op string) bool {
	if t, ok := x.peek(); ok && t.is(op) {
		x.i++
		return true
	}
	return false
}

func (x *exprParser) comma(live bool) (int64, error) {
	v, err := x.ternary(live)
	for err == nil && x.accept(",") {
		v, err = x.ternary(live)
	}
	return v, err
}

func (x *exprParser) ternary(live bool) (int64, error) {
	c, err := x.binary(0, live)
	if err != nil || !x.accept("?") {
		return c, err
	}
	a, err := x.comma(live && c != 0)
	if err != nil {
		return 0, err
	}
	if !x.accept(":") {
		return 0, x.errorf("expected ':' in conditional expression")
	}
	b, err := x.ternary(live && c == 0)
	if err != nil {
		return 0, err
	}
	if c != 0 {
		return a, nil
	}
	return b, nil
}

// Binary operators by increasing precedence.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (x *exprParser) binaryOp(level int) (Token, bool) {
	t, ok := x.peek()
	if !ok || t.Kind != Punct {
		return t, false
	}
	for _, op := range binaryLevels[level] {
		if t.Text == op {
			return t, true
		}
	}
	return t, false
}

func (x *exprParser) binary(level int, live bool) (int64, error) {
	if level == len(binaryLevels) {
		return x.unary(live)
	}
	l, err := x.binary(level+1, live)
	if err != nil {
		return 0, err
	}
	for {
		op, ok := x.binaryOp(level)
		if !ok {
			return l, nil
		}
		x.i++
		rlive := live
		switch op.Text {
		case "||":
			rlive = live && l == 0
		case "&&":
			rlive = live && l != 0
		}
		r, err := x.binary(level+1, rlive)
		if err != nil {
			return 0, err
		}
		if l, err = apply(op, l, r, rlive); err != nil {
			return 0, err
		}
	}
}

func apply(op Token, l, r int64, live bool) (int64, error) {
	switch op.Text {
	case "||":
		return b2i(l != 0 || r != 0), nil
	case "&&":
		return b2i(l != 0 && r != 0), nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "&":
		return l & r, nil
	case "==":
		return b2i(l == r), nil
	case "!=":
		return b2i(l != r), nil
	case "<":
		return b2i(l < r), nil
	case "<=":
		return b2i(l <= r), nil
	case ">":
		return b2i(l > r), nil
	case ">=":
		return b2i(l >= r), nil
	case "<<":
		return l << (uint64(r) & 63), nil
	case ">>":
		return l >> (uint64(r) & 63), nil
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/", "%":
		if r == 0 {
			if !live {
				return 0, nil
			}
			return 0, errorf(DivisionByZero, op, "division by zero in #if")
		}
		if op.Text == "/" {
			return l / r, nil
		}
		return l % r, nil
	}
	return 0, errorf(SyntaxError, op, "unexpected operator %q", op.Text)
}

func (x *exprParser) unary(live bool) (int64, error) {
	t, ok := x.peek()
	if !ok {
		return 0, x.errorf("#if expression ends unexpectedly")
	}
	if t.Kind == Punct {
		switch t.Text {
		case "+", "-", "!", "~":
			x.i++
			v, err := x.unary(live)
			if err != nil {
				return 0, err
			}
			switch t.Text {
			case "-":
				return -v, nil
			case "!":
				return b2i(v == 0), nil
			case "~":
				return ^v, nil
			}
			return v, nil
		case "(":
			x.i++
			v, err := x.comma(live)
			if err != nil {
				return 0, err
			}
			if !x.accept(")") {
				return 0, x.errorf("missing ')' in expression")
			}
			return v, nil
		}
	}
	x.i++
	switch t.Kind {
	case Number:
		return parseInteger(t)
	case Char:
		return parseChar(t)
	case Ident:
		return 0, nil
	}
	return 0, errorf(SyntaxError, t, "token %q is not valid in preprocessor expressions", t.Text)
}

func (x *exprParser) errorf(format string, args ...any) error {
	at := x.at
	if t, ok := x.peek(); ok {
		at = t
	}
	return errorf(SyntaxError, at, format, args...)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// parseInteger accepts decimal, octal, hex and binary constants with
// optional u/l suffixes. The value wraps to int64.
func parseInteger(t Token) (int64, error) {
	s := strings.ReplaceAll(t.Text, "'", "")
	s = strings.TrimRight(s, "uUlL")
	isHex := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
	if !isHex && strings.ContainsAny(s, ".eE") || isHex && strings.ContainsAny(s, ".pP") {
		return 0, errorf(SyntaxError, t, "floating constant in preprocessor expression")
	}
	base := 10
	switch {
	case isHex:
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, errorf(SyntaxError, t, "invalid integer constant %q in #if", t.Text)
	}
	return int64(v), nil
}

// parseChar evaluates a character constant; multi-character constants
// combine their bytes as in GCC.
func parseChar(t Token) (int64, error) {
	s := t.Text
	if i := strings.IndexByte(s, '\''); i >= 0 {
		s = s[i:]
	}
	if len(s) < 3 || s[len(s)-1] != '\'' {
		return 0, errorf(SyntaxError, t, "invalid character constant %s", t.Text)
	}
	s = s[1 : len(s)-1]
	var v int64
	for s != "" {
		r, tail, ok := charValue(s)
		if !ok {
			return 0, errorf(SyntaxError, t, "invalid character constant %s", t.Text)
		}
		v = v<<8 | int64(r)
		s = tail
	}
	return v, nil
}

// charValue decodes one character of a character constant. Octal and hex
// escapes take as many digits as C allows.
func charValue(s string) (rune, string, bool) {
	if len(s) >= 2 && s[0] == '\\' {
		switch c := s[1]; {
		case '0' <= c && c <= '7':
			n, i := 0, 1
			for ; i < len(s) && i <= 3 && '0' <= s[i] && s[i] <= '7'; i++ {
				n = n*8 + int(s[i]-'0')
			}
			return rune(n), s[i:], true
		case c == 'x':
			n, i := 0, 2
			for ; i < len(s) && isHexDigit(s[i]); i++ {
				n = n*16 + hexValue(s[i])
			}
			return rune(n), s[i:], i > 2
		case c == '?':
			return '?', s[2:], true
		}
	}
	r, _, tail, err := strconv.UnquoteChar(s, '\'')
	return r, tail, err == nil
}

func isHexDigit(b byte) bool {
	return isDigit(b) || 'a' <= b && b <= 'f' || 'A' <= b && b <= 'F'
}

func hexValue(b byte) int {
	switch {
	case isDigit(b):
		return int(b - '0')
	case 'a' <= b && b <= 'f':
		return int(b-'a') + 10
	}
	return int(b-'A') + 10
}
