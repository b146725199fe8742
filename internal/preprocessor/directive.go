package preprocessor

import (
	"strconv"
	"strings"
)

// ---------------- Directives ----------------

func isDirective(line []Token) bool {
	i := skipSpace(line, 0)
	return i < len(line) && line[i].is("#")
}

// handleDirective runs one directive line. Only the conditional
// directives are looked at inside a skipped region.
func (p *Preprocessor) handleDirective(f *fileState, line []Token) error {
	end := len(line)
	if end > 0 && line[end-1].Kind == Newline {
		end--
	}
	i := skipSpace(line[:end], skipSpace(line, 0)+1)
	if i >= end {
		// null directive
		f.endLine(line)
		return nil
	}
	name := line[i]
	args := trimSpace(line[i+1 : end])
	active := f.cond.Active()

	var err error
	consumed := false
	switch name.Text {
	case "if":
		cond := false
		if active {
			cond, err = p.evalCondition(name, args)
		}
		f.cond.Push(cond, name)

	case "ifdef", "ifndef":
		cond := false
		if active {
			var id Token
			if id, err = macroName(name, args); err == nil {
				cond = p.macros.IsDefined(id.Text) == (name.Text == "ifdef")
				p.extraTokens(name, args[1:])
			}
		}
		f.cond.Push(cond, name)

	case "elif":
		err = f.cond.Elif(name, func() (bool, error) { return p.evalCondition(name, args) })

	case "elifdef", "elifndef":
		err = f.cond.Elif(name, func() (bool, error) {
			id, err := macroName(name, args)
			if err != nil {
				return false, err
			}
			return p.macros.IsDefined(id.Text) == (name.Text == "elifdef"), nil
		})

	case "else":
		if err = f.cond.Else(name); err == nil && f.cond.Active() {
			p.extraTokens(name, args)
		}

	case "endif":
		if err = f.cond.Pop(name); err == nil && f.cond.Active() {
			p.extraTokens(name, args)
		}

	default:
		if !active {
			break
		}
		switch name.Text {
		case "define":
			err = p.defineDirective(name, args)
		case "undef":
			var id Token
			if id, err = macroName(name, args); err == nil {
				p.macros.Undefine(id.Text)
				p.extraTokens(name, args[1:])
			}
		case "include":
			consumed, err = p.includeDirective(f, name, args)
		case "line":
			err = p.lineDirective(f, name, args, line)
		case "error":
			err = errorf(UserError, name, "%s", spell(args))
		case "warning":
			msg := "#warning directive"
			if len(args) > 0 {
				msg = "#warning: " + spell(args)
			}
			p.warn(name, msg)
		case "pragma":
			p.pragmaDirective(f, args)
		default:
			if name.Kind == Number {
				// GNU line marker: # 42 "file.c" flags
				err = p.lineDirective(f, name, line[i:end], line)
				break
			}
			err = errorf(UnknownDirective, name, "invalid preprocessing directive #%s", name.Text)
		}
	}
	if err != nil {
		return err
	}
	if consumed {
		f.out.skip(line)
		return nil
	}
	f.endLine(line)
	return nil
}

func macroName(directive Token, args []Token) (Token, error) {
	if len(args) == 0 {
		return Token{}, errorf(SyntaxError, directive, "no macro name given in #%s directive", directive.Text)
	}
	if args[0].Kind != Ident {
		return Token{}, errorf(SyntaxError, args[0], "macro names must be identifiers")
	}
	if args[0].Text == "defined" {
		return Token{}, errorf(SyntaxError, args[0], "\"defined\" cannot be used as a macro name")
	}
	return args[0], nil
}

func (p *Preprocessor) extraTokens(directive Token, rest []Token) {
	if rest = trimSpace(rest); len(rest) > 0 {
		p.warn(rest[0], "extra tokens at end of #"+directive.Text+" directive")
	}
}

func (p *Preprocessor) defineDirective(directive Token, args []Token) error {
	m, err := parseDefine(directive, args)
	if err != nil {
		return err
	}
	if prev, ok := p.macros.Lookup(m.Name); ok && prev.Builtin {
		p.warn(args[0], "redefining builtin macro \""+m.Name+"\"")
	}
	if err := p.macros.Define(m); err != nil {
		return err
	}
	p.logf("define %s", m.Name)
	return nil
}

// parseDefine parses the operand of #define: a name, an optional
// parameter list directly attached to it, and the replacement list.
func parseDefine(directive Token, args []Token) (*Macro, error) {
	id, err := macroName(directive, args)
	if err != nil {
		return nil, err
	}
	m := &Macro{Name: id.Text, Pos: id.Position()}
	rest := args[1:]
	if len(rest) > 0 && rest[0].is("(") {
		m.FuncLike = true
		n, err := parseParams(m, rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
	}

	var body []Token
	for _, t := range trimSpace(rest) {
		if t.Kind == Space {
			if len(body) > 0 && body[len(body)-1].Kind == Space {
				continue
			}
			t.Text = " "
		}
		body = append(body, t)
	}
	m.Body = body

	if len(body) > 0 && (body[0].is("##") || body[len(body)-1].is("##")) {
		return nil, errorf(SyntaxError, id, "'##' cannot appear at either end of a macro expansion")
	}
	if m.FuncLike {
		for i, t := range body {
			if !t.is("#") {
				continue
			}
			j := skipSpace(body, i+1)
			if j >= len(body) || body[j].Kind != Ident || m.param(body[j].Text) < 0 {
				return nil, errorf(SyntaxError, t, "'#' is not followed by a macro parameter")
			}
		}
	}
	return m, nil
}

// parseParams reads "(a, b, ...)" from toks and returns the number of
// tokens consumed.
func parseParams(m *Macro, toks []Token) (int, error) {
	i := 1
	for {
		i = skipSpace(toks, i)
		if i >= len(toks) {
			return 0, errorf(SyntaxError, toks[0], "missing ')' in macro parameter list")
		}
		t := toks[i]
		switch {
		case t.is(")") && len(m.Params) == 0:
			return i + 1, nil
		case t.is("..."):
			m.Variadic = true
			m.Params = append(m.Params, "__VA_ARGS__")
			i = skipSpace(toks, i+1)
			if i >= len(toks) || !toks[i].is(")") {
				return 0, errorf(SyntaxError, t, "missing ')' after \"...\"")
			}
			return i + 1, nil
		case t.Kind == Ident:
			if m.param(t.Text) >= 0 {
				return 0, errorf(SyntaxError, t, "duplicate macro parameter %q", t.Text)
			}
			if t.Text == "__VA_ARGS__" {
				return 0, errorf(SyntaxError, t, "__VA_ARGS__ can only appear in the expansion of a variadic macro")
			}
			m.Params = append(m.Params, t.Text)
			i = skipSpace(toks, i+1)
			if i < len(toks) && toks[i].is("...") {
				// GNU named variadic parameter
				m.Variadic = true
				i = skipSpace(toks, i+1)
				if i >= len(toks) || !toks[i].is(")") {
					return 0, errorf(SyntaxError, t, "missing ')' after \"...\"")
				}
				return i + 1, nil
			}
			if i < len(toks) && toks[i].is(")") {
				return i + 1, nil
			}
			if i >= len(toks) || !toks[i].is(",") {
				return 0, errorf(SyntaxError, t, "expected ',' or ')' in macro parameter list")
			}
			i++
		default:
			return 0, errorf(SyntaxError, t, "invalid token %q in macro parameter list", t.Text)
		}
	}
}

// parseDefinition builds a macro from "NAME BODY" or "NAME(ARGS) BODY".
func (p *Preprocessor) parseDefinition(file, def string) (*Macro, error) {
	toks, err := lexText(file, def)
	if err != nil {
		return nil, err
	}
	var at Token
	if len(toks) > 0 {
		at = toks[0]
	}
	return parseDefine(Token{Kind: Ident, Text: "define"}.at(at), trimSpace(toks))
}

// ParseDefine splits a command line definition "NAME=VALUE". A bare NAME
// defines it to 1.
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}

// lineDirective handles #line N ["file"] by registering the alternative
// position for the start of the next line.
func (p *Preprocessor) lineDirective(f *fileState, name Token, args, line []Token) error {
	if len(args) == 0 || args[0].Kind != Number {
		expanded, err := p.expandTokens(args)
		if err != nil {
			return err
		}
		args = trimSpace(expanded)
	}
	if len(args) == 0 || args[0].Kind != Number {
		return errorf(SyntaxError, name, "#line directive requires a positive integer argument")
	}
	n, err := strconv.ParseUint(args[0].Text, 10, 31)
	if err != nil || n == 0 {
		return errorf(SyntaxError, args[0], "%q after #line is not a positive integer", args[0].Text)
	}
	filename := name.Position().Filename
	if i := skipSpace(args, 1); i < len(args) {
		if args[i].Kind != String || !strings.HasPrefix(args[i].Text, `"`) {
			return errorf(SyntaxError, args[i], "invalid filename %s", args[i].Text)
		}
		filename = destringize(args[i].Text)
	}
	last := line[len(line)-1]
	if last.Kind != Newline {
		return nil
	}
	f.tf.AddLineInfo(f.tf.Offset(last.Pos)+1, filename, int(n))
	return nil
}

// pragmaDirective consumes #pragma once and passes any other pragma
// through to the output unexpanded.
func (p *Preprocessor) pragmaDirective(f *fileState, args []Token) {
	if len(args) == 1 && args[0].Kind == Ident && args[0].Text == "once" {
		p.once[f.name] = true
		return
	}
	f.out.text("#pragma " + spell(args))
}

// pragmaOperator is the _Pragma hook for text lines. The pragma is
// written in place, on the line that held the operator.
func (p *Preprocessor) pragmaOperator(f *fileState) func(text string, at Token) ([]Token, error) {
	return func(text string, at Token) ([]Token, error) {
		text = strings.TrimSpace(text)
		if text == "once" {
			p.once[f.name] = true
			return nil, nil
		}
		return []Token{Token{Kind: verbatim, Text: "#pragma " + text}.at(at)}, nil
	}
}
